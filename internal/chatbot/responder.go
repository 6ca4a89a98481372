// Package chatbot generates replies for the synthetic "Ora Chatbot"
// participant. The completion call runs on the client, never through the
// realtime channel.
package chatbot

import (
	"context"
	"errors"
	"strings"

	"orachat/backend/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Apology is appended as a normal bot reply when a completion fails.
// Failures are never surfaced as system errors.
const Apology = "Sorry, I am having trouble responding right now. Please try again in a moment."

const systemPrompt = "You are Ora, a friendly chat assistant inside a messaging app. " +
	"Answer conversationally and keep replies reasonably short. Markdown is allowed."

// Completer produces a reply given the conversation so far.
type Completer interface {
	Complete(ctx context.Context, history []models.Message) (string, error)
}

// OpenAIResponder is the production Completer.
type OpenAIResponder struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

func NewOpenAIResponder(apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) *OpenAIResponder {
	return &OpenAIResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		logger:      logger,
	}
}

func (r *OpenAIResponder) Complete(ctx context.Context, history []models.Message) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    historyToMessages(history),
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		r.logger.Error("chat completion failed", zap.Error(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("completion returned empty content")
	}
	return content, nil
}

// historyToMessages maps the conversation onto completion roles: the bot's
// own messages become assistant turns, everything else user turns.
func historyToMessages(history []models.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if msg.Sender.ID == models.ChatbotUserID {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
