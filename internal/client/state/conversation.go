package state

import (
	"sync"

	"orachat/backend/internal/models"
)

// Conversation tracks the single chat currently open plus its ephemeral
// signals. Typing and generating are UI-only flags and reset whenever the
// active conversation changes.
type Conversation struct {
	mu sync.Mutex

	chat         *models.Chat
	other        *models.User
	isTyping     bool
	isGenerating bool
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// SetActive switches the open conversation. A non-nil chat also derives the
// other participant from whichever side is not currentUserID. A nil chat
// clears both the chat and the participant; no stale chat reference stays
// queryable.
func (c *Conversation) SetActive(chat *models.Chat, currentUserID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isTyping = false
	c.isGenerating = false

	if chat == nil {
		c.chat = nil
		c.other = nil
		return
	}

	cp := *chat
	cp.Messages = append([]models.Message(nil), chat.Messages...)
	c.chat = &cp

	other := *cp.OtherParticipant(currentUserID)
	c.other = &other
}

// ActiveChatID returns the open chat's id, or "" when none is open.
func (c *Conversation) ActiveChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil {
		return ""
	}
	return c.chat.ID
}

// OtherParticipant returns a copy of the derived other participant, or nil.
func (c *Conversation) OtherParticipant() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.other == nil {
		return nil
	}
	u := *c.other
	return &u
}

// AddMessage upserts by message id into the active chat. Messages for any
// other chat are ignored here; they belong to the session's chat list.
// Returns whether the message was applied.
func (c *Conversation) AddMessage(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil || msg.ChatRef() != c.chat.ID {
		return false
	}
	for i := range c.chat.Messages {
		if c.chat.Messages[i].ID == msg.ID {
			c.chat.Messages[i] = msg
			return true
		}
	}
	c.chat.Messages = append(c.chat.Messages, msg)
	return true
}

// Messages returns a copy of the active chat's message sequence in arrival
// order.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil {
		return nil
	}
	return append([]models.Message(nil), c.chat.Messages...)
}

func (c *Conversation) SetTyping(typing bool) {
	c.mu.Lock()
	c.isTyping = typing
	c.mu.Unlock()
}

func (c *Conversation) IsTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isTyping
}

// BeginGenerating claims the generating flag. It reports false when a
// completion is already in flight.
func (c *Conversation) BeginGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isGenerating {
		return false
	}
	c.isGenerating = true
	return true
}

func (c *Conversation) SetGenerating(generating bool) {
	c.mu.Lock()
	c.isGenerating = generating
	c.mu.Unlock()
}

func (c *Conversation) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isGenerating
}

// UpdateParticipantPresence updates the online flag on the derived
// participant and on the matching side of the active chat.
func (c *Conversation) UpdateParticipantPresence(userID string, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.other != nil && c.other.ID == userID {
		c.other.Online = online
	}
	if c.chat != nil {
		if c.chat.User1.ID == userID {
			c.chat.User1.Online = online
		}
		if c.chat.User2.ID == userID {
			c.chat.User2.Online = online
		}
	}
}
