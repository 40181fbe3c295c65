package mapper

import (
	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) DocumentToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var metadata map[string]interface{}
	if d.Metadata != nil {
		metadata = map[string]interface{}(d.Metadata)
	}

	return &entity.Document{
		Id:             d.Id,
		OwnerId:        d.OwnerId,
		Title:          d.Title,
		StorageBackend: d.StorageBackend,
		StorageKey:     d.StorageKey,
		OriginalName:   d.OriginalName,
		ContentType:    d.ContentType,
		SizeBytes:      d.SizeBytes,
		Metadata:       metadata,
		UploadedAt:     d.UploadedAt,
	}
}

func (m *DocumentMapper) DocumentToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if d.Metadata != nil {
		metadata = datatypes.JSONMap(d.Metadata)
	}

	return &model.Document{
		Id:             d.Id,
		OwnerId:        d.OwnerId,
		Title:          d.Title,
		StorageBackend: d.StorageBackend,
		StorageKey:     d.StorageKey,
		OriginalName:   d.OriginalName,
		ContentType:    d.ContentType,
		SizeBytes:      d.SizeBytes,
		Metadata:       metadata,
		UploadedAt:     d.UploadedAt,
	}
}
