package chathub

import (
	"encoding/json"

	"orachat/backend/internal/models"
	"orachat/backend/internal/storage"

	"go.uber.org/zap"
)

// Manager owns the set of connected clients and routes every realtime event.
// All state is touched only from the Run goroutine, so no locking is needed
// around the Clients map.
type Manager struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound
	// PubSubCh receives addressed envelopes from the Redis fan-out, including
	// the ones this instance published itself.
	PubSubCh chan models.Outbound

	Storage storage.Storage
	logger  *zap.Logger
}

func NewManager(s storage.Storage, logger *zap.Logger) *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound),
		PubSubCh:     make(chan models.Outbound),
		Storage:      s,
		logger:       logger,
	}
}

// Run is the hub's main dispatch loop.
func (m *Manager) Run() {
	m.startPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.UserID()] = client
			m.setPresence(client.UserID(), true)

		case client := <-m.UnregisterCh:
			if current, ok := m.Clients[client.UserID()]; ok && current == client {
				delete(m.Clients, client.UserID())
				client.Close()
				m.setPresence(client.UserID(), false)
			}

		case in := <-m.IncomingCh:
			m.handleEvent(in)

		case out := <-m.PubSubCh:
			m.deliver(out)
		}
	}
}

func (m *Manager) handleEvent(in Inbound) {
	env := in.Envelope

	switch env.Event {
	case models.EventUserConnect:
		// The connection is already authenticated; the event only re-asserts
		// presence, e.g. after the web client restores a session.
		m.setPresence(in.Client.UserID(), true)

	case models.EventUserLogout:
		m.setPresence(in.Client.UserID(), false)

	case models.EventJoinChat:
		var chatID string
		if err := json.Unmarshal(env.Data, &chatID); err != nil {
			m.logger.Warn("bad joinChat payload", zap.Error(err))
			return
		}
		in.Client.SetChatID(chatID)

	case models.EventSendMessage:
		m.handleSendMessage(in)

	case models.EventTyping, models.EventStopTyping:
		m.handleTyping(in)

	case models.EventMarkMessagesSeen:
		m.handleMarkSeen(in)

	default:
		m.logger.Warn("unknown realtime event", zap.String("event", env.Event))
	}
}

func (m *Manager) handleSendMessage(in Inbound) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(in.Envelope.Data, &p); err != nil {
		m.logger.Warn("bad sendMessage payload", zap.Error(err))
		return
	}
	if p.Content == "" {
		return
	}

	chat, err := m.Storage.GetChatByID(p.ChatID)
	if err != nil {
		m.logger.Warn("sendMessage for unknown chat", zap.String("chat_id", p.ChatID), zap.Error(err))
		return
	}
	if !chat.HasParticipant(p.SenderID) || in.Client.UserID() != p.SenderID {
		m.logger.Warn("sendMessage sender mismatch",
			zap.String("chat_id", p.ChatID),
			zap.String("sender_id", p.SenderID),
			zap.String("conn_user", in.Client.UserID()))
		return
	}

	msg := &models.Message{
		ChatID:   p.ChatID,
		SenderID: p.SenderID,
		Content:  p.Content,
	}
	if err := m.Storage.SaveMessage(msg); err != nil {
		m.logger.Error("failed to save message", zap.Error(err))
		return
	}

	if chat.User1.ID == p.SenderID {
		msg.Sender = chat.User1
	} else {
		msg.Sender = chat.User2
	}
	msg.Chat = &models.Chat{ID: p.ChatID}

	env, err := models.NewEnvelope(models.EventReceiveMessage, msg)
	if err != nil {
		m.logger.Error("failed to encode receiveMessage", zap.Error(err))
		return
	}
	m.publish(models.Outbound{
		UserIDs:  []string{chat.User1.ID, chat.User2.ID},
		Envelope: env,
	})
}

func (m *Manager) handleTyping(in Inbound) {
	var p models.TypingPayload
	if err := json.Unmarshal(in.Envelope.Data, &p); err != nil {
		m.logger.Warn("bad typing payload", zap.Error(err))
		return
	}

	chat, err := m.Storage.GetChatByID(p.ChatID)
	if err != nil {
		return
	}
	other := chat.OtherParticipant(p.UserID)

	// Relayed payload carries only the typist's id, per the wire contract.
	env, err := models.NewEnvelope(in.Envelope.Event, models.TypingPayload{UserID: p.UserID})
	if err != nil {
		return
	}
	m.publish(models.Outbound{UserIDs: []string{other.ID}, Envelope: env})
}

func (m *Manager) handleMarkSeen(in Inbound) {
	var p models.MarkSeenPayload
	if err := json.Unmarshal(in.Envelope.Data, &p); err != nil {
		m.logger.Warn("bad markMessagesSeen payload", zap.Error(err))
		return
	}

	msgs, err := m.Storage.MarkMessagesSeen(p.ChatID, p.UserID)
	if err != nil {
		m.logger.Error("failed to mark messages seen", zap.Error(err))
		return
	}
	if len(msgs) == 0 {
		return
	}

	chat, err := m.Storage.GetChatByID(p.ChatID)
	if err != nil {
		return
	}
	env, err := models.NewEnvelope(models.EventMessagesSeen, msgs)
	if err != nil {
		return
	}
	// Both sides get the batch: the author learns their messages were read,
	// the reader's other tabs stay consistent.
	m.publish(models.Outbound{
		UserIDs:  []string{chat.User1.ID, chat.User2.ID},
		Envelope: env,
	})
}

// setPresence records the flag and announces it to everyone connected.
func (m *Manager) setPresence(userID string, online bool) {
	if err := m.Storage.SetUserOnline(userID, online); err != nil {
		m.logger.Error("failed to store presence", zap.String("user_id", userID), zap.Error(err))
	}
	env, err := models.NewEnvelope(models.EventUserStatus, models.UserStatusPayload{UserID: userID, Online: online})
	if err != nil {
		return
	}
	m.publish(models.Outbound{Envelope: env})
}

// publish hands the envelope to the fan-out channel. Delivery to local
// clients happens when it comes back through PubSubCh, so single-instance
// and multi-instance deployments take the same path.
func (m *Manager) publish(out models.Outbound) {
	if err := m.Storage.PublishEvent(out); err != nil {
		m.logger.Error("failed to publish event", zap.String("event", out.Envelope.Event), zap.Error(err))
	}
}

func (m *Manager) deliver(out models.Outbound) {
	if len(out.UserIDs) == 0 {
		for _, client := range m.Clients {
			m.send(client, out.Envelope)
		}
		return
	}
	for _, userID := range out.UserIDs {
		if client, ok := m.Clients[userID]; ok {
			m.send(client, out.Envelope)
		}
	}
}

func (m *Manager) send(client Client, env models.Envelope) {
	select {
	case client.SendChannel() <- env:
	default:
		// Slow consumer: drop rather than stall the dispatch loop.
		m.logger.Warn("dropping event for slow client",
			zap.String("user_id", client.UserID()),
			zap.String("event", env.Event))
	}
}
