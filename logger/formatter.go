package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	resetColorCode         = 0
	defaultFieldSeparator  = " | "
	defaultTimestampFormat = time.RFC3339
)

// Formatter implements logrus.Formatter with ordered context fields and a
// configurable level display, tuned for per-host progress lines.
type Formatter struct {
	// TimestampFormat specifies the format of the timestamp. Default: time.RFC3339.
	TimestampFormat string
	// NoColors disables colorized output.
	NoColors bool
	// DisableTimestamp disables timestamp output.
	DisableTimestamp bool
	// DisplayLevelName configures which log level names are shown.
	DisplayLevelName LevelNameDisplayMode
	// FieldsDisplayWithOrder lists field keys to display first, in order.
	// Remaining fields follow alphabetically.
	FieldsDisplayWithOrder []string
	// FieldSeparator separates fields. Default: " | ".
	FieldSeparator string
	// DisableCaller disables caller information output.
	DisableCaller bool
	// CustomCallerFormatter overrides the default caller rendering.
	CustomCallerFormatter func(*runtime.Frame) string
}

// LevelNameDisplayMode defines how log level names are displayed.
type LevelNameDisplayMode int

const (
	// ShowAll shows all level names.
	ShowAll LevelNameDisplayMode = iota
	// ShowAboveWarn shows level names for WARN, ERROR, FATAL, PANIC.
	ShowAboveWarn
	// HideAll hides all level names.
	HideAll
)

// Format formats the log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(timestampFormat))
		b.WriteString(" ")
	}

	showLevelName := false
	switch f.DisplayLevelName {
	case ShowAll:
		showLevelName = true
	case ShowAboveWarn:
		showLevelName = entry.Level <= logrus.WarnLevel
	case HideAll:
		showLevelName = false
	}

	if showLevelName {
		if !f.NoColors {
			fmt.Fprintf(b, "\x1b[%dm", getColorByLevel(entry.Level))
		}
		levelStr := entry.Level.String()
		if len(levelStr) > 4 {
			levelStr = levelStr[:4]
		}
		fmt.Fprintf(b, "[%s]", strings.ToUpper(levelStr))
		if !f.NoColors {
			fmt.Fprintf(b, "\x1b[%dm", resetColorCode)
		}
		b.WriteString(" ")
	}

	fieldSeparator := f.FieldSeparator
	if fieldSeparator == "" {
		fieldSeparator = defaultFieldSeparator
	}

	if len(entry.Data) > 0 {
		b.WriteString("[")
		f.writeFields(b, entry, fieldSeparator)
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if !f.DisableCaller && entry.HasCaller() {
		b.WriteString(" ")
		f.writeCaller(b, entry)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) writeFields(b *bytes.Buffer, entry *logrus.Entry, separator string) {
	written := 0
	ordered := make(map[string]bool, len(f.FieldsDisplayWithOrder))

	for _, field := range f.FieldsDisplayWithOrder {
		if value, ok := entry.Data[field]; ok {
			if written > 0 {
				b.WriteString(separator)
			}
			fmt.Fprintf(b, "%s:%v", field, value)
			ordered[field] = true
			written++
		}
	}

	remaining := make([]string, 0, len(entry.Data)-written)
	for field := range entry.Data {
		if !ordered[field] {
			remaining = append(remaining, field)
		}
	}
	sort.Strings(remaining)

	for _, field := range remaining {
		if written > 0 {
			b.WriteString(separator)
		}
		fmt.Fprintf(b, "%s:%v", field, entry.Data[field])
		written++
	}
}

func (f *Formatter) writeCaller(b *bytes.Buffer, entry *logrus.Entry) {
	if !entry.HasCaller() {
		return
	}
	if f.CustomCallerFormatter != nil {
		fmt.Fprint(b, f.CustomCallerFormatter(entry.Caller))
		return
	}
	callerFunc := filepath.Base(entry.Caller.Function)
	if parts := strings.Split(callerFunc, "."); len(parts) > 1 {
		callerFunc = parts[len(parts)-1]
	}
	fmt.Fprintf(b, "(%s:%d %s)", filepath.Base(entry.Caller.File), entry.Caller.Line, callerFunc)
}

func getColorByLevel(level logrus.Level) int {
	switch level {
	case logrus.TraceLevel:
		return colorGray
	case logrus.DebugLevel:
		return colorBlue
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGray
	}
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)
