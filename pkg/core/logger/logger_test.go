package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "development", cfg: Config{Level: zapcore.DebugLevel, Development: true, StacktraceLevel: zapcore.ErrorLevel}},
		{name: "production", cfg: Config{Level: zapcore.InfoLevel, StacktraceLevel: zapcore.ErrorLevel}},
		{name: "console encoding", cfg: Config{Level: zapcore.WarnLevel, Encoding: "console", StacktraceLevel: zapcore.ErrorLevel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := defaultLogger
			t.Cleanup(func() { defaultLogger = original })

			l, err := newLogger(tt.cfg)

			require.NoError(t, err)
			require.NotNil(t, l)
			assert.True(t, l.Core().Enabled(tt.cfg.Level))
			assert.Same(t, l, zap.L())
			assert.Same(t, l, defaultLogger)
			_ = syncLogger(l)
		})
	}
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	_, err := newLogger(Config{Encoding: "yaml"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
