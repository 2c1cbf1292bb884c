package storage

import (
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Init initializes the database connection
func Init(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	// Auto-migrate schemas
	if err := DB.AutoMigrate(&Call{}, &CallTurn{}, &Message{}); err != nil {
		return err
	}

	log.Printf("[Storage] Database initialized: %s", dbPath)
	return nil
}

// CreateCall records a newly started call
func CreateCall(call *Call) error {
	return DB.Create(call).Error
}

// EndCall stamps the call's end time
func EndCall(streamSID string, endedAt time.Time) error {
	return DB.Model(&Call{}).Where("stream_sid = ?", streamSID).Update("ended_at", endedAt).Error
}

// GetCall retrieves a call with its turns in spoken order
func GetCall(streamSID string) (*Call, error) {
	var call Call
	err := DB.Preload("Turns", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&call, "stream_sid = ?", streamSID).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// GetCalls retrieves recent calls, newest first
func GetCalls(limit int) ([]Call, error) {
	var calls []Call
	err := DB.Order("started_at DESC").Limit(limit).Find(&calls).Error
	return calls, err
}

// AddTurn appends a spoken turn to a call
func AddTurn(turn *CallTurn) error {
	return DB.Create(turn).Error
}

// SaveMessage records a messaging-channel exchange
func SaveMessage(msg *Message) error {
	return DB.Create(msg).Error
}

// RecentMessages returns the last n messages for a phone number in
// chronological order
func RecentMessages(phone string, n int) ([]Message, error) {
	var messages []Message
	err := DB.Where("phone = ?", phone).
		Order("created_at DESC").
		Limit(n).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
