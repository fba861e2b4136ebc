package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "DEBUG", want: zapcore.DebugLevel},
		{name: "info", want: zapcore.InfoLevel},
		{name: "", want: zapcore.InfoLevel},
		{name: "WARNING", want: zapcore.WarnLevel},
		{name: "warn", want: zapcore.WarnLevel},
		{name: "ERROR", want: zapcore.ErrorLevel},
		{name: "CRITICAL", want: zapcore.ErrorLevel},
		{name: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.log")

	logger, err := New(path, "WARNING")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("table", "songs"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "WARN - kept")
	assert.Contains(t, string(data), `"songs"`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("", "LOUD")
	assert.Error(t, err)
}

func TestCritical(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	Critical(zap.New(core), "phase failed", zap.String("phase", "connect"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "critical", entry.ContextMap()["severity"])
	assert.Equal(t, "connect", entry.ContextMap()["phase"])
}
