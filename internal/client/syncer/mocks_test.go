package syncer_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"orachat/backend/internal/client/realtime"
	"orachat/backend/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAPI is a testify mock of the REST surface the controller consumes.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Register(ctx context.Context, username, email, password string) (*models.AuthResponse, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAPI) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAPI) GetUser(ctx context.Context) (*models.UserResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserResponse), args.Error(1)
}

func (m *MockAPI) GetAllUsers(ctx context.Context) (*models.UsersResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsersResponse), args.Error(1)
}

func (m *MockAPI) GetUserChats(ctx context.Context, userID string) (*models.ChatsResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatsResponse), args.Error(1)
}

func (m *MockAPI) StartChat(ctx context.Context, userID1, userID2 string) (*models.StartChatResponse, error) {
	args := m.Called(ctx, userID1, userID2)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StartChatResponse), args.Error(1)
}

func (m *MockAPI) Logout(ctx context.Context) (*models.MessageResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageResponse), args.Error(1)
}

type emittedEvent struct {
	event string
	data  any
}

// fakeRealtime is an in-memory stand-in for the websocket channel: it
// records emits and lets tests fire server events at the registered
// handlers.
type fakeRealtime struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]realtime.Handler
	emitted  []emittedEvent
}

func (f *fakeRealtime) Subscribe(event string, h realtime.Handler) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]map[int]realtime.Handler)
	}
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[int]realtime.Handler)
	}
	id := f.nextID
	f.nextID++
	f.handlers[event][id] = h
	return func() {
		f.mu.Lock()
		delete(f.handlers[event], id)
		f.mu.Unlock()
	}
}

func (f *fakeRealtime) Emit(event string, data any) error {
	f.mu.Lock()
	f.emitted = append(f.emitted, emittedEvent{event: event, data: data})
	f.mu.Unlock()
	return nil
}

// fire delivers a server event to every subscribed handler, the way the
// channel's read loop would.
func (f *fakeRealtime) fire(t *testing.T, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	f.mu.Lock()
	hs := make([]realtime.Handler, 0, len(f.handlers[event]))
	for _, h := range f.handlers[event] {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(raw)
	}
}

func (f *fakeRealtime) emittedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]string, len(f.emitted))
	for i, e := range f.emitted {
		events[i] = e.event
	}
	return events
}

func (f *fakeRealtime) lastEmit(event string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.emitted) - 1; i >= 0; i-- {
		if f.emitted[i].event == event {
			return f.emitted[i].data, true
		}
	}
	return nil, false
}

func (f *fakeRealtime) subscriberCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[event])
}

// stubCompleter is a canned chatbot backend. A non-nil block channel makes
// Complete wait, so tests can hold a generation in flight.
type stubCompleter struct {
	reply string
	err   error
	block chan struct{}
}

func (s *stubCompleter) Complete(ctx context.Context, history []models.Message) (string, error) {
	if s.block != nil {
		<-s.block
	}
	return s.reply, s.err
}
