package main

import (
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/events/consumer"
	"github.com/relaydocs/document-events/pkg/events/ledger"
	"github.com/relaydocs/document-events/pkg/persistence/mongo"
	"github.com/relaydocs/document-events/pkg/persistence/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the event consumer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			base, backend, err := baseModules(flags)
			if err != nil {
				return err
			}

			app := fx.New(serveModules(base, backend))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

// serveModules is the consumer side only. Publishing runs through the
// publish and share commands.
func serveModules(base fx.Option, backend string) fx.Option {
	return fx.Options(
		base,
		persistenceModule(backend),
		ledger.NewModule(backend),
		consumer.NewModule(newApplier),
	)
}

func persistenceModule(backend string) fx.Option {
	switch backend {
	case eventsconfig.BackendPostgres:
		return postgres.NewPostgresModule()
	case eventsconfig.BackendMemory:
		return fx.Options()
	default:
		return mongo.NewMongoModule()
	}
}
