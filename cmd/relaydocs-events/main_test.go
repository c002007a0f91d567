package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/relaydocs/document-events/pkg/core/logger"
	"github.com/relaydocs/document-events/pkg/documents"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/events/consumer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestApplier_LogsDocumentActivity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.With(context.Background(), zap.New(core))

	err := newApplier().Apply(ctx, consumer.Event{
		Type:    documents.EventDocumentShared,
		Payload: map[string]any{"documentId": float64(42), "actorUserId": float64(7), "targetUserId": float64(9), "role": "editor"},
	})

	require.NoError(t, err)
	entries := logs.FilterMessage("document activity").All()
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]any{"documentId": float64(42), "actorUserId": float64(7), "targetUserId": float64(9), "role": "editor"}, entries[0].ContextMap())
}

func TestApplier_SkipsMissingFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.With(context.Background(), zap.New(core))

	err := newApplier().Apply(ctx, consumer.Event{
		Type:    documents.EventDocumentUpdated,
		Payload: map[string]any{"documentId": float64(42)},
	})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, map[string]any{"documentId": float64(42)}, logs.All()[0].ContextMap())
}

func TestApplier_AcknowledgesUnknownTypes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.With(context.Background(), zap.New(core))

	err := newApplier().Apply(ctx, consumer.Event{Type: "folder.created"})

	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("unhandled event type, acknowledging").Len())
}

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload(`{"documentId":42,"actorUserId":7}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"documentId": float64(42), "actorUserId": float64(7)}, payload)

	_, err = parsePayload(`[1,2]`)
	assert.ErrorContains(t, err, "JSON object")
}

func TestParseRole(t *testing.T) {
	role, err := parseRole("editor")
	require.NoError(t, err)
	assert.Equal(t, documents.RoleEditor, role)

	role, err = parseRole("VIEWER")
	require.NoError(t, err)
	assert.Equal(t, documents.RoleViewer, role)

	_, err = parseRole("owner")
	assert.ErrorContains(t, err, "unknown role")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "dev\n", out.String())
}

func TestPublishCmd_RequiresType(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"publish", "--aggregate", "42"})

	err := cmd.Execute()

	assert.ErrorContains(t, err, `"type" not set`)
}

func TestServeModules(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	for _, backend := range []string{eventsconfig.BackendMongo, eventsconfig.BackendPostgres, eventsconfig.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			base, _, err := baseModules(&rootFlags{})
			require.NoError(t, err)

			opts := serveModules(base, backend)

			require.NoError(t, fx.ValidateApp(opts))
			assert.NotContains(t, opts.String(), "publisher")
			assert.NotContains(t, opts.String(), "documents")
		})
	}
}
