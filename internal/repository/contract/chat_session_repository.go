package contract

import (
	"context"
	"time"

	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	// GetOrCreate returns the single session for (documentId, userId), creating it if needed.
	GetOrCreate(ctx context.Context, documentId uint, userId uuid.UUID) (*entity.ChatSession, error)
	Touch(ctx context.Context, id uint, at time.Time) error
	DeleteByDocumentId(ctx context.Context, documentId uint) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
