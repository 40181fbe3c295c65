package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnedBy struct {
	OwnerID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

// RecentlyUploaded orders newest first.
type RecentlyUploaded struct{}

func (s RecentlyUploaded) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("uploaded_at DESC").Order("id DESC")
}
