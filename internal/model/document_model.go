package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Document struct {
	Id             uint              `gorm:"primaryKey;autoIncrement"`
	OwnerId        uuid.UUID         `gorm:"type:uuid;not null;index"`
	Title          string            `gorm:"type:varchar(255);not null"`
	StorageBackend string            `gorm:"type:varchar(20);not null;default:local"`
	StorageKey     string            `gorm:"type:varchar(512);not null"`
	OriginalName   string            `gorm:"type:varchar(255);not null"`
	ContentType    string            `gorm:"type:varchar(255)"`
	SizeBytes      int64             `gorm:"not null;default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:json"`
	UploadedAt     time.Time         `gorm:"autoCreateTime;index"`
}

func (Document) TableName() string {
	return "documents"
}
