package models

import "time"

// The chatbot is a synthetic participant that exists only on the client.
// Its chat is never persisted and never touches the realtime channel.
const (
	ChatbotUserID   = "chatbot"
	ChatbotChatID   = "chatbot-chat"
	ChatbotUsername = "Ora Chatbot"
	ChatbotEmail    = "ora@h.ai"
)

// ChatbotUser returns the synthetic chatbot participant. It is always online.
func ChatbotUser() User {
	now := time.Now()
	return User{
		ID:        ChatbotUserID,
		Username:  ChatbotUsername,
		Email:     ChatbotEmail,
		Online:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChatbotChat builds the local-only conversation between user and the chatbot.
func ChatbotChat(user User) *Chat {
	return &Chat{
		ID:    ChatbotChatID,
		User1: user,
		User2: ChatbotUser(),
	}
}

// IsChatbotChat reports whether chatID refers to the synthetic conversation.
func IsChatbotChat(chatID string) bool {
	return chatID == ChatbotChatID
}
