package syncer

import (
	"context"
	"encoding/json"

	"orachat/backend/internal/models"

	"go.uber.org/zap"
)

// handleReceiveMessage applies a delivered message to both stores. The
// active conversation gets it only when the chat matches; the chat list
// copy is updated unconditionally, and an unknown chat triggers a refetch.
func (c *Controller) handleReceiveMessage(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("malformed receiveMessage payload", zap.Error(err))
		return
	}
	user := c.session.User()
	if user == nil {
		return
	}

	chatID := msg.ChatRef()
	active := chatID != "" && chatID == c.conversation.ActiveChatID()
	if active {
		c.conversation.AddMessage(msg)
	}

	if !c.session.UpsertChatMessage(chatID, msg) {
		// A chat this client has never fetched: rebuild the list.
		if err := c.RefreshChats(context.Background()); err != nil {
			c.logger.Warn("chat refresh for unknown chat failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}

	if active && msg.Sender.ID != user.ID {
		c.emit(models.EventMarkMessagesSeen, models.MarkSeenPayload{ChatID: chatID, UserID: user.ID})
	}
}

// handleMessagesSeen replaces each updated message in place. AddMessage
// already ignores chats other than the active one.
func (c *Controller) handleMessagesSeen(data json.RawMessage) {
	var msgs []models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		c.logger.Warn("malformed messagesSeen payload", zap.Error(err))
		return
	}
	for _, msg := range msgs {
		c.conversation.AddMessage(msg)
		c.session.UpsertChatMessage(msg.ChatRef(), msg)
	}
}

// handleTyping flips the indicator, but only for the active conversation's
// other participant. Everyone else's typing is noise here.
func (c *Controller) handleTyping(data json.RawMessage, typing bool) {
	var p models.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("malformed typing payload", zap.Error(err))
		return
	}
	other := c.conversation.OtherParticipant()
	if other == nil || other.ID != p.UserID {
		return
	}
	c.conversation.SetTyping(typing)
}

// handleUserStatus applies presence to the roster, the chat participants and
// the active conversation in one step.
func (c *Controller) handleUserStatus(data json.RawMessage) {
	var p models.UserStatusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("malformed userStatus payload", zap.Error(err))
		return
	}
	c.session.ApplyPresence(p.UserID, p.Online)
	c.conversation.UpdateParticipantPresence(p.UserID, p.Online)
}
