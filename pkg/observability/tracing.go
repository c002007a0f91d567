package observability

import (
	"context"

	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/relaydocs/document-events/pkg/core/health"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type providerParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	Cfg       Config
	AppCfg    config.AppConfig
	Readiness health.ComponentManager
}

func provideTracerProvider(p providerParams) (trace.TracerProvider, error) {
	if !p.Cfg.Tracing.Enabled {
		p.Log.Info("tracing disabled")
		return noop.NewTracerProvider(), nil
	}

	tp, err := newTracerProvider(context.Background(), p.Log, p.Cfg.OtelCollectorEndpoint, p.AppCfg)
	if err != nil {
		return nil, err
	}

	markReady := p.Readiness.AddComponent("tracing")
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			p.Log.Info("tracing initialized", zap.String("endpoint", p.Cfg.OtelCollectorEndpoint))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		},
	})
	return tp, nil
}

// newTracerProvider exports over OTLP gRPC. Without an endpoint spans are
// still sampled so trace ids reach Kafka headers and logs.
func newTracerProvider(ctx context.Context, log *zap.Logger, endpoint string, appCfg config.AppConfig) (*sdktrace.TracerProvider, error) {
	res, err := newResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	if endpoint == "" {
		log.Info("tracing: no collector endpoint, running in local mode")
		return sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
			sdktrace.WithResource(res),
		), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newResource(ctx context.Context, appCfg config.AppConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(appCfg.ServiceName),
			semconv.ServiceVersionKey.String(appCfg.ServiceVersion),
			semconv.DeploymentEnvironmentNameKey.String(appCfg.Environment),
		),
	)
}

func setPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// TraceFields returns trace_id and span_id for the span in ctx, if any.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
