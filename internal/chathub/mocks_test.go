package chathub_test

import (
	"orachat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetAllUsers() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStorage) GetOrCreateChat(userID1, userID2 string) (*models.Chat, bool, error) {
	args := m.Called(userID1, userID2)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Chat), args.Bool(1), args.Error(2)
}

func (m *MockStorage) GetChatByID(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStorage) GetUserChats(userID string) ([]models.Chat, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) MarkMessagesSeen(chatID, readerID string) ([]models.Message, error) {
	args := m.Called(chatID, readerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) SetUserOnline(userID string, online bool) error {
	args := m.Called(userID, online)
	return args.Error(0)
}

func (m *MockStorage) GetOnlineUserIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) PublishEvent(out models.Outbound) error {
	args := m.Called(out)
	return args.Error(0)
}

// SubscribeEvents returns nil in tests, which disables the fan-out listener;
// manager tests push into PubSubCh directly instead.
func (m *MockStorage) SubscribeEvents() *redis.PubSub {
	m.Called()
	return nil
}

// MockClient is an in-memory realtime connection. Envelopes the hub sends
// land on RecvCh.
type MockClient struct {
	userID string
	chatID string
	closed bool
	RecvCh chan models.Envelope
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID: userID,
		RecvCh: make(chan models.Envelope, 10),
	}
}

func (c *MockClient) UserID() string { return c.userID }

func (c *MockClient) ChatID() string { return c.chatID }

func (c *MockClient) SetChatID(chatID string) { c.chatID = chatID }

func (c *MockClient) SendChannel() chan<- models.Envelope { return c.RecvCh }

func (c *MockClient) Run() {}

func (c *MockClient) Close() { c.closed = true }
