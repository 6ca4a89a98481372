// Package realtime maintains the client's persistent event connection.
// It exposes a subscribe/unsubscribe contract per event type so the caller
// owns listener lifecycle explicitly; nothing is tied to UI mount timing.
package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"orachat/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler receives the raw data of one inbound event. Handlers run on the
// channel's single read goroutine, so store mutations never interleave.
type Handler = func(data json.RawMessage)

const (
	pongWait         = 60 * time.Second
	writeWait        = 10 * time.Second
	minReconnectWait = time.Second
	maxReconnectWait = 30 * time.Second
)

var ErrClosed = errors.New("realtime channel closed")

// Channel is a long-lived websocket connection carrying JSON envelopes.
// Outbound intents are fire-and-forget; no acknowledgment is expected.
type Channel struct {
	url    string
	jar    http.CookieJar
	logger *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]map[int]Handler
	nextID   int
	closed   bool

	onReconnect func()
}

// Dial connects and starts reading. The jar supplies the session cookie, so
// the channel authenticates the same way the REST client does. Connect only
// after authentication succeeds; the channel never auto-connects.
func Dial(url string, jar http.CookieJar, logger *zap.Logger) (*Channel, error) {
	c := &Channel{
		url:      url,
		jar:      jar,
		logger:   logger,
		handlers: make(map[string]map[int]Handler),
	}
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	go c.readLoop(conn)
	return c, nil
}

func (c *Channel) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Jar:              c.jar,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(c.url, nil)
	return conn, err
}

// SetReconnectHook registers a callback invoked after every successful
// reconnect, before events start flowing again. The caller uses it to
// re-assert presence, re-join the active chat and refetch missed state.
func (c *Channel) SetReconnectHook(fn func()) {
	c.mu.Lock()
	c.onReconnect = fn
	c.mu.Unlock()
}

// Subscribe registers a handler for one event type and returns the function
// that deregisters it. Failing to call it causes duplicate delivery on the
// next subscription, so subscription lifecycle belongs to whoever owns the
// conversation lifecycle.
func (c *Channel) Subscribe(event string, h Handler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Emit sends one event, fire-and-forget.
func (c *Channel) Emit(event string, data any) error {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return ErrClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return c.conn.Close()
	}
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.reconnect()
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("invalid envelope from server", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env models.Envelope) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		h(env.Data)
	}
}

// reconnect redials with exponential backoff until it succeeds or the
// channel is closed, then fires the reconnect hook.
func (c *Channel) reconnect() {
	wait := minReconnectWait
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		time.Sleep(wait)
		conn, err := c.dial()
		if err != nil {
			c.logger.Warn("reconnect failed", zap.Duration("retry_in", wait), zap.Error(err))
			wait *= 2
			if wait > maxReconnectWait {
				wait = maxReconnectWait
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		hook := c.onReconnect
		c.mu.Unlock()

		c.logger.Info("realtime channel reconnected")
		if hook != nil {
			hook()
		}
		go c.readLoop(conn)
		return
	}
}
