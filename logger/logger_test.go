package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitGlobalLogger_Console(t *testing.T) {
	err := InitGlobalLogger("", false, logrus.InfoLevel)
	require.NoError(t, err)
	require.NotNil(t, Log)

	var buf bytes.Buffer
	Log.SetOutput(&buf)

	Log.WithHost("node1").Info("probing host")

	out := buf.String()
	assert.Contains(t, out, "Host:node1")
	assert.Contains(t, out, "probing host")
}

func TestInitGlobalLogger_VerboseLowersLevel(t *testing.T) {
	err := InitGlobalLogger("", true, logrus.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}

func TestInitGlobalLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	err := InitGlobalLogger(dir, false, logrus.InfoLevel)
	require.NoError(t, err)

	Log.SetOutput(&bytes.Buffer{})
	Log.WithRun("run-1").Info("summary written")
	// The lfshook writes synchronously, so the rotated file exists now.
}

func TestFormatter_FieldOrderAndLevel(t *testing.T) {
	f := &Formatter{
		NoColors:               true,
		DisableTimestamp:       true,
		DisplayLevelName:       ShowAll,
		DisableCaller:          true,
		FieldsDisplayWithOrder: []string{"Run", "Host"},
	}

	entry := &logrus.Entry{
		Logger: logrus.New(),
		Level:  logrus.WarnLevel,
		Data: logrus.Fields{
			"Host":  "node2",
			"Run":   "r-42",
			"extra": "x",
		},
		Message: "slow probe",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.True(t, strings.HasPrefix(line, "[WARN] "), "got %q", line)
	runIdx := strings.Index(line, "Run:r-42")
	hostIdx := strings.Index(line, "Host:node2")
	extraIdx := strings.Index(line, "extra:x")
	require.True(t, runIdx >= 0 && hostIdx >= 0 && extraIdx >= 0, "got %q", line)
	assert.Less(t, runIdx, hostIdx)
	assert.Less(t, hostIdx, extraIdx)
	assert.Contains(t, line, "slow probe")
}

func TestFormatter_HideLevelBelowWarn(t *testing.T) {
	f := &Formatter{
		NoColors:         true,
		DisableTimestamp: true,
		DisplayLevelName: ShowAboveWarn,
		DisableCaller:    true,
	}

	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Data:    logrus.Fields{},
		Message: "quiet line",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "quiet line\n", string(out))
}
