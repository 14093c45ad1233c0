package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	_, err := New(Config{Level: "info", Output: "file"})
	require.Error(t, err)

	l, err := New(Config{Level: "info", Output: "file", File: filepath.Join(t.TempDir(), "app.log")})
	require.NoError(t, err)
	l.Info("hello")
}

func TestNewRejectsUnknownOutput(t *testing.T) {
	_, err := New(Config{Output: "syslog"})
	require.Error(t, err)
}

func TestSetDefaultNil(t *testing.T) {
	SetDefault(nil)
	assert.NotNil(t, L())
	Info("no panic with %s logger", "nop")
}
