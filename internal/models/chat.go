package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a 1-on-1 conversation between two users. The participant pair is
// unordered: lookups must check both orientations. Messages are kept in
// arrival order, which is the order they render in.
type Chat struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	User1ID   string    `gorm:"type:text;not null;index:idx_chat_pair" json:"-"`
	User2ID   string    `gorm:"type:text;not null;index:idx_chat_pair" json:"-"`
	User1     User      `gorm:"foreignKey:User1ID" json:"user1"`
	User2     User      `gorm:"foreignKey:User2ID" json:"user2"`
	Messages  []Message `gorm:"foreignKey:ChatID" json:"messages"`
	CreatedAt time.Time `json:"-"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasParticipant reports whether userID is one of the two sides of the chat.
func (c *Chat) HasParticipant(userID string) bool {
	return c.User1.ID == userID || c.User2.ID == userID ||
		c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the side of the chat that is not userID,
// for either orientation of the pair.
func (c *Chat) OtherParticipant(userID string) *User {
	if c.User1.ID == userID {
		return &c.User2
	}
	return &c.User1
}
