package specification

import (
	"insightdocs-be/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uint
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByDocumentID struct {
	DocumentID uint
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ExcludeContent drops messages whose content equals Content exactly.
type ExcludeContent struct {
	Content string
}

func (s ExcludeContent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content <> ?", s.Content)
}

// Chronological is the canonical conversation order.
type Chronological struct{}

func (s Chronological) Apply(db *gorm.DB) *gorm.DB {
	return scope.OrderByCreatedAsc(db)
}

// BeforeMessage keeps messages inserted before the given message id.
type BeforeMessage struct {
	ID uint
}

func (s BeforeMessage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id < ?", s.ID)
}
