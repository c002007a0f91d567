package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaydocs/document-events/pkg/documents"
	"github.com/relaydocs/document-events/pkg/events/publisher"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type publishFlags struct {
	eventType   string
	aggregateID string
	payload     string
}

func newPublishCmd(root *rootFlags) *cobra.Command {
	flags := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one event to the domain event topic",
		Example: `  relaydocs-events publish --type document.updated --aggregate 42 \
    --payload '{"documentId":42,"actorUserId":7}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := parsePayload(flags.payload)
			if err != nil {
				return err
			}
			return withPublisher(cmd.Context(), root, func(ctx context.Context, pub publisher.Publisher) error {
				return pub.Publish(ctx, flags.eventType, flags.aggregateID, payload)
			})
		},
	}

	cmd.Flags().StringVar(&flags.eventType, "type", "", "event type, e.g. document.updated")
	cmd.Flags().StringVar(&flags.aggregateID, "aggregate", "", "aggregate id, also the partition key")
	cmd.Flags().StringVar(&flags.payload, "payload", "{}", "JSON object carried as the event payload")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("aggregate")

	return cmd
}

type shareFlags struct {
	documentID   int64
	actorUserID  int64
	targetUserID int64
	role         string
}

func newShareCmd(root *rootFlags) *cobra.Command {
	flags := &shareFlags{}

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Emit document.shared and permission.changed for a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := parseRole(flags.role)
			if err != nil {
				return err
			}
			return withPublisher(cmd.Context(), root, func(ctx context.Context, pub publisher.Publisher) error {
				return documents.NewNotifier(pub).DocumentShared(ctx, flags.documentID, flags.actorUserID, flags.targetUserID, role)
			})
		},
	}

	cmd.Flags().Int64Var(&flags.documentID, "document", 0, "document id")
	cmd.Flags().Int64Var(&flags.actorUserID, "actor", 0, "user sharing the document")
	cmd.Flags().Int64Var(&flags.targetUserID, "target", 0, "user receiving access")
	cmd.Flags().StringVar(&flags.role, "role", "viewer", "viewer or editor")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// withPublisher starts a publishing-only application, runs fn and stops it,
// flushing the producer.
func withPublisher(ctx context.Context, root *rootFlags, fn func(context.Context, publisher.Publisher) error) error {
	base, _, err := baseModules(root)
	if err != nil {
		return err
	}

	var pub publisher.Publisher
	app := fx.New(
		base,
		publisher.NewModule(),
		fx.Populate(&pub),
	)

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx, pub)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func parsePayload(raw string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}

func parseRole(raw string) (documents.Role, error) {
	switch role := documents.Role(strings.ToUpper(raw)); role {
	case documents.RoleViewer, documents.RoleEditor:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q, want viewer or editor", raw)
	}
}
