package entity

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id             uint
	OwnerId        uuid.UUID
	Title          string
	StorageBackend string
	StorageKey     string
	OriginalName   string
	ContentType    string
	SizeBytes      int64
	Metadata       map[string]interface{}
	UploadedAt     time.Time
}

// Extension is the lowercase extension of the uploaded file name, dot included.
func (d *Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.OriginalName))
}

func (d *Document) IsOwnedBy(userId uuid.UUID) bool {
	return d.OwnerId == userId
}
