package config

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewDotEnvModule loads variables from a .env file before any other module
// reads the environment. A missing file is not an error.
func NewDotEnvModule(path string) fx.Option {
	path, loaded := LoadDotEnv(path)

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if loaded {
						logger.Info("loaded .env file", zap.String("path", path))
					} else {
						logger.Debug("no .env file loaded", zap.String("path", path))
					}
					return nil
				},
			})
		}),
	)
}

// LoadDotEnv loads path, or ".env" when empty, without overriding variables
// that are already set. It reports the file used and whether it was read.
func LoadDotEnv(path string) (string, bool) {
	if path == "" {
		path = ".env"
	}
	return path, godotenv.Load(path) == nil
}
