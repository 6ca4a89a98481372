package chathub

import (
	"encoding/json"

	"orachat/backend/internal/models"

	"go.uber.org/zap"
)

// startPubSubListener feeds Redis fan-out messages into PubSubCh. A nil
// subscription (as the test storage returns) disables the listener; events
// can then be injected into PubSubCh directly.
func (m *Manager) startPubSubListener() {
	sub := m.Storage.SubscribeEvents()
	if sub == nil {
		return
	}

	go func() {
		defer sub.Close()
		for msg := range sub.Channel() {
			var out models.Outbound
			if err := json.Unmarshal([]byte(msg.Payload), &out); err != nil {
				m.logger.Warn("bad fan-out payload", zap.Error(err))
				continue
			}
			m.PubSubCh <- out
		}
	}()
}
