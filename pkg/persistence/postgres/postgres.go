// Package postgres provides a pgx connection pool managed by the fx lifecycle.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func newPool(ctx context.Context, conf Config, appName string) (*pgxpool.Pool, error) {
	poolConf, err := pgxpool.ParseConfig(conf.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConf.MaxConns = conf.MaxConns
	poolConf.MinConns = conf.MinConns
	poolConf.MaxConnIdleTime = conf.MaxConnIdleTime
	poolConf.ConnConfig.ConnectTimeout = conf.ConnectTimeout
	if appName != "" {
		poolConf.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return pool, nil
}

func ping(ctx context.Context, log *zap.Logger, pool *pgxpool.Pool, conf Config) error {
	ctx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	log.Info("connected to postgres",
		zap.String("database", pool.Config().ConnConfig.Database),
		zap.Int32("max-conns", conf.MaxConns),
	)
	return nil
}
