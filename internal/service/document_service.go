package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/repository/memory"
	"insightdocs-be/internal/repository/specification"
	"insightdocs-be/internal/repository/unitofwork"
	"insightdocs-be/pkg/events"
	"insightdocs-be/pkg/storage"

	"github.com/google/uuid"
)

const recentDocumentsLimit = 5

type IDocumentService interface {
	// Authorize returns the document when userId owns it.
	Authorize(ctx context.Context, userId uuid.UUID, documentId uint) (*entity.Document, error)
	Upload(ctx context.Context, ownerId uuid.UUID, req *dto.UploadDocumentRequest, content io.Reader) (*dto.UploadDocumentResponse, error)
	List(ctx context.Context, ownerId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
	ChatPage(ctx context.Context, ownerId uuid.UUID, documentId uint) (*dto.DocumentChatResponse, error)
	Delete(ctx context.Context, ownerId uuid.UUID, documentId uint) error
}

type documentService struct {
	uowFactory    unitofwork.RepositoryFactory
	storages      *storage.Registry
	conversations IConversationService
	sessionCache  *memory.ChatSessionCache
	publisher     IEventPublisher
	logger        logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	storages *storage.Registry,
	conversations IConversationService,
	sessionCache *memory.ChatSessionCache,
	publisher IEventPublisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:    uowFactory,
		storages:      storages,
		conversations: conversations,
		sessionCache:  sessionCache,
		publisher:     publisher,
		logger:        log,
	}
}

func (s *documentService) Authorize(ctx context.Context, userId uuid.UUID, documentId uint) (*entity.Document, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, ErrDocumentNotFound
	}
	if !document.IsOwnedBy(userId) {
		return nil, ErrDocumentForbidden
	}
	return document, nil
}

func (s *documentService) Upload(ctx context.Context, ownerId uuid.UUID, req *dto.UploadDocumentRequest, content io.Reader) (*dto.UploadDocumentResponse, error) {
	store := s.storages.Default()

	document := entity.Document{
		OwnerId:        ownerId,
		Title:          strings.TrimSpace(req.Title),
		StorageBackend: store.Name(),
		OriginalName:   req.OriginalName,
		ContentType:    req.ContentType,
		SizeBytes:      req.SizeBytes,
		Metadata:       map[string]interface{}{},
	}
	if document.Title == "" {
		document.Title = strings.TrimSuffix(req.OriginalName, filepath.Ext(req.OriginalName))
	}
	if document.Extension() != "" {
		document.Metadata["extension"] = document.Extension()
	}
	document.StorageKey = fmt.Sprintf("documents/%s/%s%s", ownerId, uuid.NewString(), document.Extension())

	if err := store.Put(ctx, document.StorageKey, content, req.SizeBytes, req.ContentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		s.discardBlob(store, document.StorageKey)
		return nil, err
	}
	defer func() {
		_ = uow.Rollback()
	}()

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		s.discardBlob(store, document.StorageKey)
		return nil, fmt.Errorf("save document: %w", err)
	}
	session, err := uow.ChatSessionRepository().GetOrCreate(ctx, document.Id, ownerId)
	if err != nil {
		s.discardBlob(store, document.StorageKey)
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	if err := uow.Commit(); err != nil {
		s.discardBlob(store, document.StorageKey)
		return nil, err
	}
	s.sessionCache.Save(document.Id, ownerId, session.Id)

	s.publish(ctx, events.New(constant.EventDocumentUploaded, map[string]interface{}{
		"document_id":     document.Id,
		"owner_id":        ownerId.String(),
		"storage_backend": document.StorageBackend,
		"storage_key":     document.StorageKey,
		"size_bytes":      document.SizeBytes,
	}))

	s.logger.Info("DOCUMENT", "Document uploaded", map[string]interface{}{
		"document_id": document.Id,
		"owner_id":    ownerId.String(),
		"backend":     document.StorageBackend,
	})

	return &dto.UploadDocumentResponse{
		Document:  toDocumentResponse(&document),
		SessionId: session.Id,
	}, nil
}

func (s *documentService) List(ctx context.Context, ownerId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	total, err := uow.DocumentRepository().Count(ctx, specification.OwnedBy{OwnerID: ownerId})
	if err != nil {
		return nil, err
	}
	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: ownerId},
		specification.RecentlyUploaded{},
		specification.Pagination{Limit: req.Limit, Offset: req.Offset},
	)
	if err != nil {
		return nil, err
	}

	return &dto.ListDocumentsResponse{
		Documents: toDocumentResponses(documents),
		Total:     total,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}, nil
}

func (s *documentService) ChatPage(ctx context.Context, ownerId uuid.UUID, documentId uint) (*dto.DocumentChatResponse, error) {
	document, err := s.Authorize(ctx, ownerId, documentId)
	if err != nil {
		return nil, err
	}

	session, err := s.conversations.GetOrCreateSession(ctx, documentId, ownerId)
	if err != nil {
		return nil, err
	}
	messages, err := s.conversations.History(ctx, session.Id)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	recent, err := uow.DocumentRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: ownerId},
		specification.RecentlyUploaded{},
		specification.Pagination{Limit: recentDocumentsLimit},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*dto.ChatHistoryMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, &dto.ChatHistoryMessage{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: dto.FormatTimestamp(msg.CreatedAt),
		})
	}

	return &dto.DocumentChatResponse{
		Document:        toDocumentResponse(document),
		SessionId:       session.Id,
		Messages:        history,
		RecentDocuments: toDocumentResponses(recent),
	}, nil
}

// Delete removes the document with its sessions and messages. The blob is
// removed later by the DOCUMENT_DELETED consumer.
func (s *documentService) Delete(ctx context.Context, ownerId uuid.UUID, documentId uint) error {
	document, err := s.Authorize(ctx, ownerId, documentId)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback()
	}()

	if err := uow.ChatMessageRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	if err := uow.ChatSessionRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return fmt.Errorf("delete chat sessions: %w", err)
	}
	if err := uow.DocumentRepository().Delete(ctx, documentId); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}
	s.sessionCache.ForgetDocument(documentId)

	s.publish(ctx, events.New(constant.EventDocumentDeleted, map[string]interface{}{
		"document_id":     documentId,
		"owner_id":        ownerId.String(),
		"storage_backend": document.StorageBackend,
		"storage_key":     document.StorageKey,
	}))
	return nil
}

func (s *documentService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("DOCUMENT", "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *documentService) discardBlob(store storage.Storage, key string) {
	if err := store.Delete(context.Background(), key); err != nil {
		s.logger.Warn("DOCUMENT", "Failed to remove orphaned blob", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func toDocumentResponse(document *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:           document.Id,
		Title:        document.Title,
		OriginalName: document.OriginalName,
		Extension:    document.Extension(),
		ContentType:  document.ContentType,
		SizeBytes:    document.SizeBytes,
		UploadedAt:   document.UploadedAt,
	}
}

func toDocumentResponses(documents []*entity.Document) []*dto.DocumentResponse {
	res := make([]*dto.DocumentResponse, 0, len(documents))
	for _, document := range documents {
		res = append(res, toDocumentResponse(document))
	}
	return res
}
