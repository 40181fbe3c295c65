package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is unique per (document, user).
type ChatSession struct {
	Id         uint      `gorm:"primaryKey;autoIncrement"`
	DocumentId uint      `gorm:"not null;uniqueIndex:idx_chat_sessions_document_user"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_sessions_document_user"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	Document *Document `gorm:"foreignKey:DocumentId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
