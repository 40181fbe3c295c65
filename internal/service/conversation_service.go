package service

import (
	"context"
	"fmt"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/repository/memory"
	"insightdocs-be/internal/repository/specification"
	"insightdocs-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IConversationService interface {
	GetOrCreateSession(ctx context.Context, documentId uint, userId uuid.UUID) (*entity.ChatSession, error)
	// SessionId is GetOrCreateSession through the session cache.
	SessionId(ctx context.Context, documentId uint, userId uuid.UUID) (uint, error)
	AppendMessage(ctx context.Context, sessionId uint, role string, content string) (*entity.ChatMessage, error)
	History(ctx context.Context, sessionId uint) ([]*entity.ChatMessage, error)
	HistoryBefore(ctx context.Context, sessionId uint, messageId uint) ([]*entity.ChatMessage, error)
}

type conversationService struct {
	uowFactory   unitofwork.RepositoryFactory
	sessionCache *memory.ChatSessionCache
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	sessionCache *memory.ChatSessionCache,
) IConversationService {
	return &conversationService{
		uowFactory:   uowFactory,
		sessionCache: sessionCache,
	}
}

func (s *conversationService) GetOrCreateSession(ctx context.Context, documentId uint, userId uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().GetOrCreate(ctx, documentId, userId)
	if err != nil {
		return nil, fmt.Errorf("get or create chat session: %w", err)
	}
	s.sessionCache.Save(documentId, userId, session.Id)
	return session, nil
}

func (s *conversationService) SessionId(ctx context.Context, documentId uint, userId uuid.UUID) (uint, error) {
	if id, ok := s.sessionCache.Get(documentId, userId); ok {
		return id, nil
	}
	session, err := s.GetOrCreateSession(ctx, documentId, userId)
	if err != nil {
		return 0, err
	}
	return session.Id, nil
}

// AppendMessage inserts the message and bumps the session's updated_at in one
// transaction.
func (s *conversationService) AppendMessage(ctx context.Context, sessionId uint, role string, content string) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback()
	}()

	message := entity.ChatMessage{
		SessionId: sessionId,
		Role:      role,
		Content:   content,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &message); err != nil {
		return nil, fmt.Errorf("save chat message: %w", err)
	}
	if err := uow.ChatSessionRepository().Touch(ctx, sessionId, message.CreatedAt); err != nil {
		return nil, fmt.Errorf("touch chat session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return &message, nil
}

func (s *conversationService) History(ctx context.Context, sessionId uint) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ExcludeContent{Content: constant.GeneratingPlaceholder},
		specification.Chronological{},
	)
}

func (s *conversationService) HistoryBefore(ctx context.Context, sessionId uint, messageId uint) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.BeforeMessage{ID: messageId},
		specification.ExcludeContent{Content: constant.GeneratingPlaceholder},
		specification.Chronological{},
	)
}
