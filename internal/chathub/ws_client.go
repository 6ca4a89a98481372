package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"orachat/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	userID string
	hub    *Manager
	conn   *websocket.Conn
	send   chan models.Envelope
	logger *zap.Logger

	mu        sync.RWMutex
	chatID    string
	closeOnce sync.Once
}

func NewWebSocketClient(hub *Manager, conn *websocket.Conn, userID string, logger *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan models.Envelope, 256),
		logger: logger,
	}
}

func (c *WebSocketClient) UserID() string { return c.userID }

func (c *WebSocketClient) ChatID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatID
}

func (c *WebSocketClient) SetChatID(id string) {
	c.mu.Lock()
	c.chatID = id
	c.mu.Unlock()
}

func (c *WebSocketClient) SendChannel() chan<- models.Envelope { return c.send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump; the read pump exits when the connection
// closes underneath it.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.UnregisterCh <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("invalid envelope", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		c.hub.IncomingCh <- Inbound{Client: c, Envelope: env}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				c.logger.Warn("failed to encode envelope", zap.String("user_id", c.userID), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
