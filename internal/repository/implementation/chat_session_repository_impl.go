package implementation

import (
	"context"
	"errors"
	"time"

	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/mapper"
	"insightdocs-be/internal/model"
	"insightdocs-be/internal/repository/contract"
	"insightdocs-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatSessionRepositoryImpl) findByPair(ctx context.Context, documentId uint, userId uuid.UUID) (*entity.ChatSession, error) {
	return r.FindOne(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.ByUserID{UserID: userId},
	)
}

// GetOrCreate relies on the (document_id, user_id) unique index: a concurrent
// insert for the same pair is ignored and both callers read the same row.
func (r *ChatSessionRepositoryImpl) GetOrCreate(ctx context.Context, documentId uint, userId uuid.UUID) (*entity.ChatSession, error) {
	existing, err := r.findByPair(ctx, documentId, userId)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	m := &model.ChatSession{DocumentId: documentId, UserId: userId}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return nil, err
	}

	session, err := r.findByPair(ctx, documentId, userId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("chat session vanished after insert")
	}
	return session, nil
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

func (r *ChatSessionRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uint) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.ChatSession{}).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatSessionToEntity(m)
	}
	return entities, nil
}

func (r *ChatSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
