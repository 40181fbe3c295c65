package service

import (
	"context"
	"errors"
	"fmt"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/repository/memory"
	"insightdocs-be/pkg/events"
	"insightdocs-be/pkg/storage"
)

const BlobCleanupDurable = "blob-cleanup"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber   IEventSubscriber
	storages     *storage.Registry
	sessionCache *memory.ChatSessionCache
	logger       logger.ILogger
}

func NewConsumerService(
	subscriber IEventSubscriber,
	storages *storage.Registry,
	sessionCache *memory.ChatSessionCache,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:   subscriber,
		storages:     storages,
		sessionCache: sessionCache,
		logger:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	return cs.subscriber.Subscribe(ctx, constant.EventDocumentDeleted, BlobCleanupDurable, cs.handleDocumentDeleted)
}

// handleDocumentDeleted removes the blob of a deleted document. Only storage
// failures are returned so the transport can retry them.
func (cs *consumerService) handleDocumentDeleted(ctx context.Context, event events.Event) error {
	if documentId, ok := events.UintField(event, "document_id"); ok {
		cs.sessionCache.ForgetDocument(documentId)
	}

	key := events.StringField(event, "storage_key")
	if key == "" {
		cs.logger.Warn("CONSUMER", "DOCUMENT_DELETED without storage key", map[string]interface{}{
			"payload": event.Payload(),
		})
		return nil
	}

	store, err := cs.storages.Get(events.StringField(event, "storage_backend"))
	if err != nil {
		cs.logger.Error("CONSUMER", "Cannot resolve storage backend", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return nil
	}

	if err := store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	cs.logger.Info("CONSUMER", "Blob removed", map[string]interface{}{
		"key":     key,
		"backend": store.Name(),
	})
	return nil
}
