package chathub

import "orachat/backend/internal/models"

// Client is one active realtime connection. It abstracts the underlying
// transport so the hub can manage connections uniformly and tests can swap
// in fakes.
type Client interface {
	// UserID returns the authenticated user behind the connection.
	UserID() string
	// ChatID returns the chat the client has joined, or "" when none.
	ChatID() string
	// SetChatID records which chat the client is currently viewing.
	SetChatID(string)

	// SendChannel is where the hub queues envelopes destined for this client.
	SendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down and stops the pumps.
	Close()
}

// Inbound pairs a decoded envelope with the client that produced it.
type Inbound struct {
	Client   Client
	Envelope models.Envelope
}
