package main

import (
	"context"

	"github.com/relaydocs/document-events/pkg/core/logger"
	"github.com/relaydocs/document-events/pkg/documents"
	"github.com/relaydocs/document-events/pkg/events/consumer"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// newApplier records document activity in the service log. Unknown event
// types are acknowledged so newer producers never block this consumer.
func newApplier() *consumer.Router {
	return consumer.NewRouter().
		HandleFunc(documents.EventDocumentCreated, logActivity("documentId", "ownerUserId", "actorUserId")).
		HandleFunc(documents.EventDocumentUpdated, logActivity("documentId", "actorUserId")).
		HandleFunc(documents.EventDocumentShared, logActivity("documentId", "actorUserId", "targetUserId", "role")).
		HandleFunc(documents.EventPermissionChanged, logActivity("documentId", "targetUserId", "role")).
		Fallback(consumer.ApplierFunc(func(ctx context.Context, event consumer.Event) error {
			logger.Get(ctx).Debug("unhandled event type, acknowledging")
			return nil
		}))
}

func logActivity(keys ...string) func(context.Context, consumer.Event) error {
	return func(ctx context.Context, event consumer.Event) error {
		fields := lo.FilterMap(keys, func(key string, _ int) (zap.Field, bool) {
			v, ok := event.Payload[key]
			return zap.Any(key, v), ok
		})
		logger.Get(ctx).Info("document activity", fields...)
		return nil
	}
}
