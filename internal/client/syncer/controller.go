// Package syncer is the synchronization layer: it owns the client stores,
// issues REST calls, drives the realtime channel and applies everything that
// comes back. Handlers are idempotent under re-delivery; the channel is
// at-least-once, not exactly-once.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"orachat/backend/internal/chatbot"
	"orachat/backend/internal/client/realtime"
	"orachat/backend/internal/client/rest"
	"orachat/backend/internal/client/state"
	"orachat/backend/internal/models"

	"go.uber.org/zap"
)

// typingDelay is how long after the last keystroke the stopTyping intent
// fires.
const typingDelay = 2 * time.Second

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotConnected     = errors.New("realtime channel not connected")
	ErrNoActiveChat     = errors.New("no active conversation")
	// ErrGenerating rejects a second chatbot send while one is in flight.
	ErrGenerating = errors.New("a chatbot reply is already being generated")
)

// API is the subset of the REST surface the controller consumes.
type API interface {
	Register(ctx context.Context, username, email, password string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	GetUser(ctx context.Context) (*models.UserResponse, error)
	GetAllUsers(ctx context.Context) (*models.UsersResponse, error)
	GetUserChats(ctx context.Context, userID string) (*models.ChatsResponse, error)
	StartChat(ctx context.Context, userID1, userID2 string) (*models.StartChatResponse, error)
	Logout(ctx context.Context) (*models.MessageResponse, error)
}

// Realtime is the event channel as the controller sees it: per-event
// subscription with explicit deregistration, and fire-and-forget emits.
type Realtime interface {
	Subscribe(event string, h realtime.Handler) (unsubscribe func())
	Emit(event string, data any) error
}

// Controller wires the stores to the outside world. It is the only owner of
// store mutations.
type Controller struct {
	session      *state.Session
	conversation *state.Conversation
	api          API
	bot          chatbot.Completer
	stateFile    string
	logger       *zap.Logger

	mu          sync.Mutex
	rt          Realtime
	globalSubs  []func()
	convSubs    []func()
	typingTimer *time.Timer
	typingLive  bool
}

func NewController(session *state.Session, conversation *state.Conversation, api API, bot chatbot.Completer, stateFile string, logger *zap.Logger) *Controller {
	return &Controller{
		session:      session,
		conversation: conversation,
		api:          api,
		bot:          bot,
		stateFile:    stateFile,
		logger:       logger,
	}
}

func (c *Controller) Session() *state.Session           { return c.session }
func (c *Controller) Conversation() *state.Conversation { return c.conversation }

// Register creates an account and authenticates the session.
func (c *Controller) Register(ctx context.Context, username, email, password string) error {
	c.session.SetLoading(true)
	resp, err := c.api.Register(ctx, username, email, password)
	if err != nil {
		c.session.ApplyAuthFailure(userMessage(err))
		return err
	}
	c.session.ApplyLogin(resp.User, resp.Message)
	c.persist()
	return nil
}

func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.session.SetLoading(true)
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.session.ApplyAuthFailure(userMessage(err))
		return err
	}
	c.session.ApplyLogin(resp.User, resp.Message)
	c.persist()
	return nil
}

// RestoreSession revalidates a persisted session against the server.
func (c *Controller) RestoreSession(ctx context.Context) error {
	resp, err := c.api.GetUser(ctx)
	if err != nil {
		c.session.ApplyAuthFailure(userMessage(err))
		return err
	}
	c.session.ApplyLogin(resp.User, "")
	c.persist()
	return nil
}

// Logout tears the session down: presence intent first, then the REST call,
// then both stores reset.
func (c *Controller) Logout(ctx context.Context) error {
	if user := c.session.User(); user != nil {
		if err := c.emit(models.EventUserLogout, user.ID); err != nil && !errors.Is(err, ErrNotConnected) {
			c.logger.Warn("userLogout intent failed", zap.Error(err))
		}
	}

	resp, err := c.api.Logout(ctx)
	if err != nil {
		c.session.SetError(userMessage(err))
		return err
	}
	c.session.ApplyLogout(resp.Message)
	c.CloseConversation()
	c.clearPersisted()
	return nil
}

// RefreshUsers replaces the roster from the server.
func (c *Controller) RefreshUsers(ctx context.Context) error {
	c.session.SetLoading(true)
	resp, err := c.api.GetAllUsers(ctx)
	if err != nil {
		c.session.SetError(userMessage(err))
		return err
	}
	c.session.SetUsers(resp.Users)
	return nil
}

// RefreshChats replaces the chat list from the server. Callers holding
// unflushed optimistic state should not refresh until it lands server-side.
func (c *Controller) RefreshChats(ctx context.Context) error {
	user := c.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	c.session.SetLoading(true)
	resp, err := c.api.GetUserChats(ctx, user.ID)
	if err != nil {
		c.session.SetError(userMessage(err))
		return err
	}
	c.session.SetChats(resp.Chats)
	return nil
}

// StartChat opens (or finds) the chat with the other user and refreshes the
// chat list so it appears there.
func (c *Controller) StartChat(ctx context.Context, otherUserID string) (*models.Chat, error) {
	user := c.session.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	resp, err := c.api.StartChat(ctx, user.ID, otherUserID)
	if err != nil {
		c.session.SetError(userMessage(err))
		return nil, err
	}
	if err := c.RefreshChats(ctx); err != nil {
		return nil, err
	}
	chat := resp.Chat
	return &chat, nil
}

// ConnectRealtime attaches the channel. Global handlers (presence, message
// delivery, read receipts) live for the whole session; they are what keeps
// the chat list correct even when no conversation is open.
func (c *Controller) ConnectRealtime(rt Realtime) error {
	user := c.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	for _, unsub := range c.globalSubs {
		unsub()
	}
	c.rt = rt
	c.globalSubs = []func(){
		rt.Subscribe(models.EventUserStatus, c.handleUserStatus),
		rt.Subscribe(models.EventReceiveMessage, c.handleReceiveMessage),
		rt.Subscribe(models.EventMessagesSeen, c.handleMessagesSeen),
	}
	c.mu.Unlock()

	return rt.Emit(models.EventUserConnect, user.ID)
}

// OnReconnect re-asserts presence and the joined chat, then refetches the
// chat list: missed events cannot be replayed, so state is rebuilt instead.
func (c *Controller) OnReconnect() {
	user := c.session.User()
	if user == nil {
		return
	}
	c.emit(models.EventUserConnect, user.ID)
	if chatID := c.conversation.ActiveChatID(); chatID != "" && !models.IsChatbotChat(chatID) {
		c.emit(models.EventJoinChat, chatID)
	}
	if err := c.RefreshChats(context.Background()); err != nil {
		c.logger.Warn("chat refresh after reconnect failed", zap.Error(err))
	}
}

// OpenConversation makes chat the active one and moves the typing listeners
// over to it. Passing nil closes the conversation. The chatbot chat is
// local-only and never touches the channel.
func (c *Controller) OpenConversation(chat *models.Chat) error {
	user := c.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	c.unsubscribeConversation()
	c.conversation.SetActive(chat, user.ID)
	if chat == nil {
		return nil
	}
	if models.IsChatbotChat(chat.ID) {
		return nil
	}

	if err := c.emit(models.EventJoinChat, chat.ID); err != nil {
		return err
	}
	if err := c.emit(models.EventMarkMessagesSeen, models.MarkSeenPayload{ChatID: chat.ID, UserID: user.ID}); err != nil {
		return err
	}

	c.mu.Lock()
	if rt := c.rt; rt != nil {
		c.convSubs = []func(){
			rt.Subscribe(models.EventTyping, func(d json.RawMessage) { c.handleTyping(d, true) }),
			rt.Subscribe(models.EventStopTyping, func(d json.RawMessage) { c.handleTyping(d, false) }),
		}
	}
	c.mu.Unlock()
	return nil
}

// OpenChatbot opens the synthetic conversation.
func (c *Controller) OpenChatbot() error {
	user := c.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	return c.OpenConversation(models.ChatbotChat(*user))
}

func (c *Controller) CloseConversation() {
	c.unsubscribeConversation()
	c.conversation.SetActive(nil, "")
}

func (c *Controller) unsubscribeConversation() {
	c.mu.Lock()
	subs := c.convSubs
	c.convSubs = nil
	c.typingLive = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
}

// SendMessage routes to the realtime channel, or to the chatbot when the
// synthetic conversation is open.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	user := c.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	chatID := c.conversation.ActiveChatID()
	if chatID == "" {
		return ErrNoActiveChat
	}
	if models.IsChatbotChat(chatID) {
		return c.sendToChatbot(ctx, *user, content)
	}

	err := c.emit(models.EventSendMessage, models.SendMessagePayload{
		ChatID:   chatID,
		SenderID: user.ID,
		Content:  content,
	})
	if err != nil {
		return err
	}
	c.stopTyping(chatID, user.ID)

	// First message into a brand-new chat: the server-created row is not in
	// the list yet, so refetch.
	if len(c.conversation.Messages()) == 0 {
		if err := c.RefreshChats(ctx); err != nil {
			c.logger.Warn("chat refresh after first message failed", zap.Error(err))
		}
	}
	return nil
}

// NotifyTyping emits a typing intent on the first keystroke and schedules
// stopTyping once input pauses.
func (c *Controller) NotifyTyping() {
	user := c.session.User()
	chatID := c.conversation.ActiveChatID()
	if user == nil || chatID == "" || models.IsChatbotChat(chatID) {
		return
	}

	c.mu.Lock()
	first := !c.typingLive
	c.typingLive = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(typingDelay, func() { c.stopTyping(chatID, user.ID) })
	c.mu.Unlock()

	if first {
		c.emit(models.EventTyping, models.TypingPayload{ChatID: chatID, UserID: user.ID})
	}
}

func (c *Controller) stopTyping(chatID, userID string) {
	c.mu.Lock()
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	live := c.typingLive
	c.typingLive = false
	c.mu.Unlock()

	if live {
		c.emit(models.EventStopTyping, models.TypingPayload{ChatID: chatID, UserID: userID})
	}
}

func (c *Controller) emit(event string, data any) error {
	c.mu.Lock()
	rt := c.rt
	c.mu.Unlock()
	if rt == nil {
		return ErrNotConnected
	}
	return rt.Emit(event, data)
}

// userMessage extracts the user-facing text from a REST failure.
func userMessage(err error) string {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return rest.FallbackErrorMessage
}
