// Package documents emits the domain events of the document service.
package documents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/relaydocs/document-events/pkg/events/publisher"
	"go.uber.org/fx"
)

const (
	EventDocumentCreated   = "document.created"
	EventDocumentUpdated   = "document.updated"
	EventDocumentShared    = "document.shared"
	EventPermissionChanged = "permission.changed"
)

// Role is the access level granted when a document is shared.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleEditor Role = "EDITOR"
)

// Notifier publishes document events after the owning mutation is stored.
// The aggregate id of every event is the decimal document id.
type Notifier struct {
	publisher publisher.Publisher
}

func NewNotifier(p publisher.Publisher) *Notifier {
	return &Notifier{publisher: p}
}

// NewModule provides a Notifier to applications that install publisher.NewModule.
func NewModule() fx.Option {
	return fx.Provide(NewNotifier)
}

func (n *Notifier) DocumentCreated(ctx context.Context, documentID, ownerUserID, actorUserID int64) error {
	return n.publish(ctx, EventDocumentCreated, documentID, map[string]any{
		"documentId":  documentID,
		"ownerUserId": ownerUserID,
		"actorUserId": actorUserID,
	})
}

func (n *Notifier) DocumentUpdated(ctx context.Context, documentID, actorUserID int64) error {
	return n.publish(ctx, EventDocumentUpdated, documentID, map[string]any{
		"documentId":  documentID,
		"actorUserId": actorUserID,
	})
}

// DocumentShared emits document.shared followed by permission.changed with
// the same payload. Both share the document's key, so consumers see them in
// that order. permission.changed is not sent if document.shared fails.
func (n *Notifier) DocumentShared(ctx context.Context, documentID, actorUserID, targetUserID int64, role Role) error {
	payload := map[string]any{
		"documentId":   documentID,
		"actorUserId":  actorUserID,
		"targetUserId": targetUserID,
		"role":         strings.ToLower(string(role)),
	}
	if err := n.publish(ctx, EventDocumentShared, documentID, payload); err != nil {
		return err
	}
	return n.publish(ctx, EventPermissionChanged, documentID, payload)
}

func (n *Notifier) publish(ctx context.Context, eventType string, documentID int64, payload map[string]any) error {
	if err := n.publisher.Publish(ctx, eventType, strconv.FormatInt(documentID, 10), payload); err != nil {
		return fmt.Errorf("failed to notify %s for document %d: %w", eventType, documentID, err)
	}
	return nil
}
