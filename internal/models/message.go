package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a single chat message. Identity (ID, chat, sender, CreatedAt)
// is immutable once created; only Seen flips afterwards, and Content for the
// synthetic chatbot sender while a reply is being composed.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"type:text;not null;index" json:"-"`
	Chat      *Chat     `gorm:"foreignKey:ChatID" json:"chat,omitempty"`
	SenderID  string    `gorm:"type:text;not null" json:"-"`
	Sender    User      `gorm:"foreignKey:SenderID" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Seen      bool      `gorm:"not null;default:false" json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// ChatRef returns the owning chat id regardless of how the message arrived:
// REST responses nest messages inside their chat, realtime payloads embed a
// shallow Chat object instead.
func (m *Message) ChatRef() string {
	if m.ChatID != "" {
		return m.ChatID
	}
	if m.Chat != nil {
		return m.Chat.ID
	}
	return ""
}
