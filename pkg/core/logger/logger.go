package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(conf Config) (*zap.Logger, error) {
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("logger configuration validation failed: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(conf.Level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if conf.Encoding != "" {
		cfg.Encoding = conf.Encoding
	}
	if len(conf.OutputPaths) > 0 {
		cfg.OutputPaths = conf.OutputPaths
	}

	logger, err := cfg.Build(zap.AddCaller(), zap.AddStacktrace(conf.StacktraceLevel))
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	defaultLogger = logger

	logger.Info("logger initialized",
		zap.String("level", conf.Level.String()),
		zap.Bool("development", conf.Development),
	)
	return logger, nil
}
