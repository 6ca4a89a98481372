package models

import "encoding/json"

// Event names used on the realtime channel. These are part of the wire
// contract shared with the web client and must not change.
const (
	// client -> server
	EventUserConnect      = "userConnect"
	EventJoinChat         = "joinChat"
	EventSendMessage      = "sendMessage"
	EventTyping           = "typing"
	EventStopTyping       = "stopTyping"
	EventMarkMessagesSeen = "markMessagesSeen"
	EventUserLogout       = "userLogout"

	// server -> client
	EventUserStatus     = "userStatus"
	EventReceiveMessage = "receiveMessage"
	EventMessagesSeen   = "messagesSeen"
)

// Envelope frames every message exchanged on the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an Envelope for the given event.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Outbound is an envelope addressed to specific users. It is the unit
// exchanged between server instances over the Redis fan-out channel.
// An empty UserIDs list means broadcast to everyone connected.
type Outbound struct {
	UserIDs  []string `json:"userIds,omitempty"`
	Envelope Envelope `json:"envelope"`
}

// SendMessagePayload is the body of a sendMessage intent.
type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// TypingPayload is the body of typing and stopTyping events. The server
// relays only the userId to the chat peer.
type TypingPayload struct {
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId"`
}

// MarkSeenPayload is the body of a markMessagesSeen intent: UserID is the
// reader, not the author of the messages being marked.
type MarkSeenPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// UserStatusPayload announces a presence change.
type UserStatusPayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}
