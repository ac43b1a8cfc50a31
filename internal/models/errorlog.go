package models

import (
	"time"
)

// ErrorLog records per-event failures for operators; the engine writes one row
// for every error that ends up in a batch failure list.
type ErrorLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      string    `gorm:"size:20;not null" json:"level"`
	Source     string    `gorm:"size:100;not null" json:"source"`
	Title      string    `gorm:"size:500;not null" json:"title"`
	Message    string    `gorm:"type:text" json:"message"`
	DetailType string    `gorm:"size:50;index" json:"detail_type"`
	MessageID  string    `gorm:"size:100;index" json:"message_id"`
	LegacyID   *int64    `gorm:"index" json:"legacy_id"`
	Context    string    `gorm:"type:text" json:"context"`
	Resolved   bool      `gorm:"default:false" json:"resolved"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
