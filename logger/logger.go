package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/fleetrun/fleetrun/common"
)

// Log is the global logger instance.
var Log *FleetLog

func init() {
	// A usable console logger exists before InitGlobalLogger runs so early
	// startup errors are not lost.
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&Formatter{
		TimestampFormat:        "15:04:05",
		DisplayLevelName:       ShowAboveWarn,
		DisableCaller:          true,
		FieldsDisplayWithOrder: []string{common.LogFieldRun, common.LogFieldHost},
	})
	l.SetOutput(os.Stderr)
	Log = &FleetLog{Logger: l}
}

// FleetLog wraps logrus.Logger with fleet-specific field helpers.
type FleetLog struct {
	*logrus.Logger
}

// InitGlobalLogger (re)initializes the global Log. With a non-empty outputPath
// log lines additionally go to a daily-rotated file under that directory.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	l := logrus.New()

	level := defaultLevel
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)

	displayLevels := ShowAboveWarn
	if verbose {
		displayLevels = ShowAll
	}

	fieldsOrder := []string{common.LogFieldRun, common.LogFieldHost}

	consoleFormatter := &Formatter{
		TimestampFormat:        "15:04:05",
		DisplayLevelName:       displayLevels,
		DisableCaller:          true,
		FieldsDisplayWithOrder: fieldsOrder,
	}
	l.SetFormatter(consoleFormatter)
	l.SetOutput(os.Stderr)

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0755); err != nil {
			return fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
		}
		logFilePath := filepath.Join(outputPath, common.AppName+".log")

		writer, err := rotatelogs.New(
			logFilePath+".%Y%m%d",
			rotatelogs.WithLinkName(logFilePath),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
		}

		fileFormatter := &Formatter{
			TimestampFormat:        "2006-01-02 15:04:05.000 MST",
			NoColors:               true,
			DisplayLevelName:       ShowAll,
			FieldsDisplayWithOrder: fieldsOrder,
			DisableCaller:          true,
		}

		logWriters := lfshook.WriterMap{}
		for _, lvl := range logrus.AllLevels {
			if l.IsLevelEnabled(lvl) {
				logWriters[lvl] = writer
			}
		}
		l.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
	}

	Log = &FleetLog{Logger: l}
	return nil
}

// SetOutput redirects console output, mainly for tests.
func (fl *FleetLog) SetOutput(w io.Writer) {
	fl.Logger.SetOutput(w)
}

// WithRun returns an entry carrying the run identifier field.
func (fl *FleetLog) WithRun(runID string) *logrus.Entry {
	return fl.Logger.WithField(common.LogFieldRun, runID)
}

// WithHost returns an entry carrying the host field.
func (fl *FleetLog) WithHost(host string) *logrus.Entry {
	return fl.Logger.WithField(common.LogFieldHost, host)
}

// WithRunHost returns an entry carrying both run and host fields.
func (fl *FleetLog) WithRunHost(runID, host string) *logrus.Entry {
	return fl.Logger.WithFields(logrus.Fields{
		common.LogFieldRun:  runID,
		common.LogFieldHost: host,
	})
}
