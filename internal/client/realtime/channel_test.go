package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"orachat/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wsServer is a minimal envelope echo endpoint: everything the client
// emits is parked on received, and tests can push envelopes down to the
// client with push.
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	received chan models.Envelope
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{received: make(chan models.Envelope, 16)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		for {
			var env models.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			s.received <- env
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) push(t *testing.T, event string, data any) {
	t.Helper()
	env, err := models.NewEnvelope(event, data)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			require.NoError(t, conn.WriteJSON(env))
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no client connection")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *wsServer) awaitEnvelope(t *testing.T) models.Envelope {
	t.Helper()
	select {
	case env := <-s.received:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an envelope")
		return models.Envelope{}
	}
}

func TestChannel_EmitWritesEnvelope(t *testing.T) {
	server := newWSServer(t)

	ch, err := Dial(server.url(), nil, zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.Emit(models.EventUserConnect, "user_A"))

	env := server.awaitEnvelope(t)
	assert.Equal(t, models.EventUserConnect, env.Event)

	var userID string
	require.NoError(t, json.Unmarshal(env.Data, &userID))
	assert.Equal(t, "user_A", userID)
}

func TestChannel_DispatchAndUnsubscribe(t *testing.T) {
	server := newWSServer(t)

	ch, err := Dial(server.url(), nil, zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	got := make(chan string, 4)
	unsubscribe := ch.Subscribe(models.EventReceiveMessage, func(data json.RawMessage) {
		var msg models.Message
		if json.Unmarshal(data, &msg) == nil {
			got <- msg.Content
		}
	})

	server.push(t, models.EventReceiveMessage, models.Message{ID: "m1", Content: "hello"})
	select {
	case content := <-got:
		assert.Equal(t, "hello", content)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	unsubscribe()
	server.push(t, models.EventReceiveMessage, models.Message{ID: "m2", Content: "after"})
	select {
	case content := <-got:
		t.Fatalf("handler invoked after unsubscribe: %q", content)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestChannel_OnlyMatchingEventFires(t *testing.T) {
	server := newWSServer(t)

	ch, err := Dial(server.url(), nil, zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	typing := make(chan struct{}, 1)
	ch.Subscribe(models.EventTyping, func(json.RawMessage) { typing <- struct{}{} })

	server.push(t, models.EventUserStatus, models.UserStatusPayload{UserID: "user_B", Online: true})
	server.push(t, models.EventTyping, models.TypingPayload{UserID: "user_B"})

	select {
	case <-typing:
	case <-time.After(time.Second):
		t.Fatal("typing handler was not invoked")
	}
	assert.Empty(t, typing)
}

func TestChannel_EmitAfterClose(t *testing.T) {
	server := newWSServer(t)

	ch, err := Dial(server.url(), nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	err = ch.Emit(models.EventUserConnect, "user_A")
	assert.ErrorIs(t, err, ErrClosed)
}
