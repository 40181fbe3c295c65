package scope

import "gorm.io/gorm"

// OrderByCreatedAsc breaks created_at ties by insertion order.
func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
