package state

import (
	"testing"

	"orachat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChat() *models.Chat {
	return &models.Chat{
		ID:    "chat1",
		User1: models.User{ID: "user_A", Username: "alice"},
		User2: models.User{ID: "user_B", Username: "bob"},
		Messages: []models.Message{
			{ID: "m1", ChatID: "chat1", SenderID: "user_A", Content: "hi"},
		},
	}
}

func TestConversation_SetActiveDerivesOtherParticipant(t *testing.T) {
	c := NewConversation()

	c.SetActive(testChat(), "user_A")
	require.NotNil(t, c.OtherParticipant())
	assert.Equal(t, "user_B", c.OtherParticipant().ID)

	// Same chat from the other side.
	c.SetActive(testChat(), "user_B")
	assert.Equal(t, "user_A", c.OtherParticipant().ID)
}

func TestConversation_SetActiveNilClearsEverything(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")
	c.SetTyping(true)

	c.SetActive(nil, "")

	assert.Equal(t, "", c.ActiveChatID())
	assert.Nil(t, c.OtherParticipant())
	assert.Nil(t, c.Messages())
	assert.False(t, c.IsTyping())
}

func TestConversation_SetActiveResetsFlags(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")
	c.SetTyping(true)
	c.SetGenerating(true)

	other := testChat()
	other.ID = "chat2"
	c.SetActive(other, "user_A")

	assert.False(t, c.IsTyping())
	assert.False(t, c.IsGenerating())
}

func TestConversation_SetActiveCopiesChat(t *testing.T) {
	c := NewConversation()
	src := testChat()
	c.SetActive(src, "user_A")

	src.Messages[0].Content = "tampered"
	src.ID = "changed"

	assert.Equal(t, "chat1", c.ActiveChatID())
	assert.Equal(t, "hi", c.Messages()[0].Content)
}

func TestConversation_AddMessage(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")

	applied := c.AddMessage(models.Message{ID: "m2", ChatID: "chat1", Content: "hello"})
	assert.True(t, applied)
	assert.Len(t, c.Messages(), 2)

	// Re-delivery replaces in place.
	applied = c.AddMessage(models.Message{ID: "m2", ChatID: "chat1", Content: "hello", Seen: true})
	assert.True(t, applied)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Seen)

	// A message for another chat never leaks in.
	applied = c.AddMessage(models.Message{ID: "m3", ChatID: "chat9", Content: "stray"})
	assert.False(t, applied)
	assert.Len(t, c.Messages(), 2)
}

func TestConversation_AddMessageResolvesChatFromStruct(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")

	// Decoded realtime payloads carry the chat as a nested object.
	applied := c.AddMessage(models.Message{ID: "m2", Chat: &models.Chat{ID: "chat1"}, Content: "hello"})
	assert.True(t, applied)
	assert.Len(t, c.Messages(), 2)
}

func TestConversation_AddMessageWithoutActiveChat(t *testing.T) {
	c := NewConversation()
	assert.False(t, c.AddMessage(models.Message{ID: "m1", ChatID: "chat1"}))
}

func TestConversation_BeginGenerating(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")

	assert.True(t, c.BeginGenerating())
	// A second claim while in flight is refused.
	assert.False(t, c.BeginGenerating())
	assert.True(t, c.IsGenerating())

	c.SetGenerating(false)
	assert.True(t, c.BeginGenerating())
}

func TestConversation_UpdateParticipantPresence(t *testing.T) {
	c := NewConversation()
	c.SetActive(testChat(), "user_A")

	c.UpdateParticipantPresence("user_B", true)
	assert.True(t, c.OtherParticipant().Online)

	c.UpdateParticipantPresence("user_B", false)
	assert.False(t, c.OtherParticipant().Online)

	// Someone else's presence does not touch the participant.
	c.UpdateParticipantPresence("user_C", true)
	assert.False(t, c.OtherParticipant().Online)
}
