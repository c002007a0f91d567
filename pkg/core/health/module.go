package health

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewReadinessModule() fx.Option {
	return fx.Module("health",
		fx.Provide(
			fx.Private,
			func(log *zap.Logger) *readiness { return newReadiness(log.Named("readiness")) },
		),
		fx.Provide(
			func(r *readiness) ComponentManager { return r },
			func(r *readiness) ReadinessWaiter { return r },
			func(r *readiness) ReadinessChecker { return r },
		),
		fx.Invoke(func(lc fx.Lifecycle, r *readiness) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.seal()
					return nil
				},
			})
		}),
	)
}
