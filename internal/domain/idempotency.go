// Package domain defines the persisted record shapes shared by every
// session. This file holds the idempotency record used to deduplicate
// retried sends.
package domain

import "time"

// Idempotency records the outcome of a previously processed send,
// keyed by (sender, chat, key). A replayed request within the TTL
// window returns the recorded message instead of appending again.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SenderID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_chat_key,priority:1"`
	ChatID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_chat_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_chat_key,priority:3"`
	MessageID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
