package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         uint
	DocumentId uint
	UserId     uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
