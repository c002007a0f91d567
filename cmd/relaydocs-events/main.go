// Package main provides the relaydocs-events CLI: it runs the document event
// consumer and publishes events by hand.
//
// Usage:
//
//	relaydocs-events serve --config ./config.yaml
//	relaydocs-events publish --type document.updated --aggregate 42 --payload '{"documentId":42,"actorUserId":7}'
//	relaydocs-events share --document 42 --actor 7 --target 9 --role editor
package main

import (
	"fmt"
	"os"

	"github.com/relaydocs/document-events/pkg/core"
	"github.com/relaydocs/document-events/pkg/core/config"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/observability"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "relaydocs-events",
		Short:         "Publish and consume relaydocs document events",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the config file (defaults to $CONFIG_FILE)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newPublishCmd(flags),
		newShareCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
}

// baseModules wires configuration, logging, readiness, telemetry and the
// events configuration. It returns the ledger backend read from the same
// configuration so callers can choose a persistence module.
func baseModules(flags *rootFlags) (fx.Option, string, error) {
	config.LoadDotEnv("")
	v, err := config.ReadViper(flags.configPath)
	if err != nil {
		return nil, "", err
	}

	return fx.Options(
		core.NewCoreModule(core.WithViper(v)),
		observability.NewModule(),
		eventsconfig.NewConfigModule(),
	), eventsconfig.LedgerBackend(v), nil
}
