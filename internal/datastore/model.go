package datastore

import "time"

// ImageLog is one cached prediction outcome, keyed by the SHA-256 of the
// downloaded image bytes. Rows are immutable once written.
type ImageLog struct {
	ID         uint      `gorm:"primaryKey"`
	ImageHash  string    `gorm:"size:64;not null;uniqueIndex:idx_image_logs_image_hash"`
	ImageURL   string    `gorm:"type:text"`
	IsDog      bool      `gorm:"not null"`
	BreedLabel *int      // nil when IsDog is false
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable across ORM naming strategies
func (ImageLog) TableName() string {
	return "image_logs"
}
