// Package dbschema defines the persisted table models and their mapping to
// domain types.
package dbschema

import "time"

// BaseModel carries the common identity and timestamp columns.
type BaseModel struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
