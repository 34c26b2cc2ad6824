package database

import "agora/internal/store"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// The document store keeps everything in one generic table.
func PersistentModels() []interface{} {
	return []interface{}{
		&store.DocumentRow{},
	}
}
