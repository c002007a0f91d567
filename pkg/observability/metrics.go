package observability

import (
	"context"
	"errors"
	"time"

	"github.com/relaydocs/document-events/pkg/core/config"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errMetricsEndpointRequired = errors.New("metrics: otel-collector-endpoint is required")

func provideMeterProvider(p providerParams) (metric.MeterProvider, error) {
	if !p.Cfg.Metrics.Enabled {
		p.Log.Info("metrics disabled")
		return metricnoop.NewMeterProvider(), nil
	}

	mp, err := newMeterProvider(context.Background(), p.Cfg.OtelCollectorEndpoint, p.Cfg.Metrics.Interval, p.AppCfg)
	if err != nil {
		return nil, err
	}

	markReady := p.Readiness.AddComponent("metrics")
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(mp)
			if err := otelruntime.Start(otelruntime.WithMeterProvider(mp), otelruntime.WithMinimumReadMemStatsInterval(defaultRuntimeStatsInterval)); err != nil {
				p.Log.Warn("failed to start runtime metrics", zap.Error(err))
			}
			p.Log.Info("metrics initialized",
				zap.String("endpoint", p.Cfg.OtelCollectorEndpoint),
				zap.Duration("interval", p.Cfg.Metrics.Interval),
			)
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
			return mp.Shutdown(shutdownCtx)
		},
	})
	return mp, nil
}

func newMeterProvider(ctx context.Context, endpoint string, interval time.Duration, appCfg config.AppConfig) (*sdkmetric.MeterProvider, error) {
	if endpoint == "" {
		return nil, errMetricsEndpointRequired
	}

	res, err := newResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}
