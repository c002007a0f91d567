package logger

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig_DefaultValues(t *testing.T) {
	// Given: viper without logger section
	v := viper.New()

	// When
	cfg, err := newConfig(v)

	// Then
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, zapcore.ErrorLevel, cfg.StacktraceLevel)
	assert.False(t, cfg.Development)
}

func TestNewConfig_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zapcore.Level
	}{
		{name: "debug", level: "debug", expected: zapcore.DebugLevel},
		{name: "uppercase warn", level: "WARN", expected: zapcore.WarnLevel},
		{name: "error", level: "error", expected: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("logger.level", tt.level)

			cfg, err := newConfig(v)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Level)
		})
	}
}

func TestNewConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		value       any
		expectedErr string
	}{
		{name: "unknown level", key: "logger.level", value: "loud", expectedErr: "invalid log level 'loud'"},
		{name: "unknown stacktrace level", key: "logger.stacktrace-level", value: "x", expectedErr: "invalid stacktrace level"},
		{name: "unknown encoding", key: "logger.encoding", value: "xml", expectedErr: "encoding"},
		{name: "bad development flag", key: "logger.development", value: "not-a-boolean", expectedErr: "failed to load logger config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := newConfig(v)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestNewConfig_OutputPaths(t *testing.T) {
	v := viper.New()
	v.Set("logger.output-paths", []string{"stdout"})
	v.Set("logger.encoding", "console")

	cfg, err := newConfig(v)

	require.NoError(t, err)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.Equal(t, "console", cfg.Encoding)
}
