package storage

import (
	"time"

	"gorm.io/gorm"
)

// Call represents one telephone call handled by the bridge
type Call struct {
	StreamSID   string         `gorm:"primaryKey" json:"stream_sid"`
	CalleeName  string         `json:"callee_name"`
	CalleePhone string         `gorm:"index" json:"callee_phone"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     *time.Time     `json:"ended_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Turns       []CallTurn     `gorm:"foreignKey:StreamSID" json:"turns"`
}

// CallTurn represents a single spoken turn in a call
type CallTurn struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	StreamSID string    `gorm:"index" json:"stream_sid"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents a messaging-channel (WhatsApp) exchange, keyed by the
// counterpart's phone number
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"index" json:"phone"`
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
