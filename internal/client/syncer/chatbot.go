package syncer

import (
	"context"
	"time"

	"orachat/backend/internal/chatbot"
	"orachat/backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sendToChatbot runs the local-only chatbot exchange: the user's message is
// appended immediately, a completion is requested over the accumulated
// transcript, and the reply (or the fixed apology on failure) is appended
// when it settles. The generating flag is always released.
func (c *Controller) sendToChatbot(ctx context.Context, user models.User, content string) error {
	if !c.conversation.BeginGenerating() {
		return ErrGenerating
	}
	defer c.conversation.SetGenerating(false)

	c.conversation.AddMessage(models.Message{
		ID:        uuid.New().String(),
		Chat:      &models.Chat{ID: models.ChatbotChatID},
		Sender:    user,
		Content:   content,
		Seen:      true,
		CreatedAt: time.Now(),
	})

	reply := chatbot.Apology
	if c.bot != nil {
		got, err := c.bot.Complete(ctx, c.conversation.Messages())
		if err != nil {
			c.logger.Warn("chatbot completion failed", zap.Error(err))
		} else {
			reply = got
		}
	}

	c.conversation.AddMessage(models.Message{
		ID:        uuid.New().String(),
		Chat:      &models.Chat{ID: models.ChatbotChatID},
		Sender:    models.ChatbotUser(),
		Content:   reply,
		Seen:      true,
		CreatedAt: time.Now(),
	})
	return nil
}
