package storage

import (
	"context"
	"encoding/json"
	"errors"

	"orachat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// eventsChannel is the Redis pub/sub channel used to fan realtime events out
// to every server instance.
const eventsChannel = "realtime:events"

// onlineSetKey holds the set of currently connected user ids in Redis.
const onlineSetKey = "presence:online"

type Storage interface {
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetAllUsers() ([]models.User, error)

	GetOrCreateChat(userID1, userID2 string) (*models.Chat, bool, error)
	GetChatByID(chatID string) (*models.Chat, error)
	GetUserChats(userID string) ([]models.Chat, error)

	SaveMessage(msg *models.Message) error
	MarkMessagesSeen(chatID, readerID string) ([]models.Message, error)

	SetUserOnline(userID string, online bool) error
	GetOnlineUserIDs() ([]string, error)

	PublishEvent(out models.Outbound) error
	SubscribeEvents() *redis.PubSub
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService constructs the PostgreSQL+Redis backed storage.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) CreateUser(user *models.User) error {
	return s.DB.Create(user).Error
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetAllUsers() ([]models.User, error) {
	var users []models.User
	if err := s.DB.Order("username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetOrCreateChat finds the chat between the pair, checking both
// orientations, and creates it if missing. The bool reports creation.
func (s *Service) GetOrCreateChat(userID1, userID2 string) (*models.Chat, bool, error) {
	var chat models.Chat
	err := s.chatQuery().
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
			userID1, userID2, userID2, userID1).
		First(&chat).Error
	if err == nil {
		return &chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	chat = models.Chat{User1ID: userID1, User2ID: userID2}
	if err := s.DB.Create(&chat).Error; err != nil {
		return nil, false, err
	}
	created, err := s.GetChatByID(chat.ID)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *Service) GetChatByID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.chatQuery().First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *Service) GetUserChats(userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.chatQuery().
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at asc").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *Service) chatQuery() *gorm.DB {
	return s.DB.
		Preload("User1").
		Preload("User2").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at asc")
		}).
		Preload("Messages.Sender")
}

func (s *Service) SaveMessage(msg *models.Message) error {
	return s.DB.Create(msg).Error
}

// MarkMessagesSeen flips seen on every unseen message in the chat that was
// not written by the reader, and returns the updated rows with their senders
// loaded so they can be pushed back out as full message objects.
func (s *Service) MarkMessagesSeen(chatID, readerID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.Preload("Sender").
		Where("chat_id = ? AND sender_id <> ? AND seen = ?", chatID, readerID, false).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	if err := s.DB.Model(&models.Message{}).Where("id IN ?", ids).Update("seen", true).Error; err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Seen = true
		msgs[i].Chat = &models.Chat{ID: chatID}
	}
	return msgs, nil
}

// SetUserOnline records presence both in PostgreSQL, so REST responses carry
// the current flag, and in the Redis online set for fast lookups.
func (s *Service) SetUserOnline(userID string, online bool) error {
	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).Update("online", online).Error; err != nil {
		return err
	}
	if online {
		return s.Redis.SAdd(s.Ctx, onlineSetKey, userID).Err()
	}
	return s.Redis.SRem(s.Ctx, onlineSetKey, userID).Err()
}

func (s *Service) GetOnlineUserIDs() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, onlineSetKey).Result()
}

// PublishEvent puts an addressed envelope on the fan-out channel. Every
// instance, including the publisher, receives it and delivers to whichever
// of the target users are connected locally.
func (s *Service) PublishEvent(out models.Outbound) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventsChannel, payload).Err()
}

func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, eventsChannel)
}
