// Package state holds the client's in-memory stores. Each store is an
// explicit container with a fixed set of transitions; nothing mutates it
// except the synchronization layer that owns it.
package state

import (
	"sync"

	"orachat/backend/internal/models"
)

// Session holds the authenticated user, the roster of known users and the
// chat list. At most one error and one info message are current at a time;
// each new outcome replaces, never accumulates.
type Session struct {
	mu sync.Mutex

	loading       bool
	authenticated bool
	user          *models.User
	users         []models.User
	chats         []models.Chat
	errMsg        string
	infoMsg       string
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ApplyLogin records a successful authentication.
func (s *Session) ApplyLogin(user models.User, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.authenticated = true
	u := user
	s.user = &u
	s.infoMsg = message
	s.errMsg = ""
}

// ApplyAuthFailure clears the authenticated user and records the error.
func (s *Session) ApplyAuthFailure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.authenticated = false
	s.user = nil
	s.errMsg = message
}

// ApplyLogout clears the user and the chats. The roster stays; it does not
// belong to the session.
func (s *Session) ApplyLogout(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.authenticated = false
	s.user = nil
	s.chats = nil
	s.infoMsg = message
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// User returns a copy of the authenticated user, or nil.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUsers replaces the entire roster. Full replace, not a merge.
func (s *Session) SetUsers(users []models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.users = append([]models.User(nil), users...)
}

func (s *Session) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...)
}

// SetChats replaces the entire chat list. Any optimistic local mutation made
// since the last fetch is discarded unless the server already reflects it.
func (s *Session) SetChats(chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.chats = append([]models.Chat(nil), chats...)
}

func (s *Session) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Chat(nil), s.chats...)
}

// ChatByID returns a copy of the chat, or nil when the list has not caught
// up yet.
func (s *Session) ChatByID(chatID string) *models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			c := s.chats[i]
			c.Messages = append([]models.Message(nil), c.Messages...)
			return &c
		}
	}
	return nil
}

// ApplyPresence updates the online flag on the roster entry and on every
// chat participant with that id. Message data is untouched.
func (s *Session) ApplyPresence(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].Online = online
		}
	}
	for i := range s.chats {
		if s.chats[i].User1.ID == userID {
			s.chats[i].User1.Online = online
		}
		if s.chats[i].User2.ID == userID {
			s.chats[i].User2.Online = online
		}
	}
}

// UpsertChatMessage applies a message to the chat list: replace when the id
// already exists (seen updates arrive as full message objects), append
// otherwise. Returns false when the chat is not in the list yet, which the
// caller should treat as a cue to refresh the chat list.
func (s *Session) UpsertChatMessage(chatID string, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID != chatID {
			continue
		}
		for j := range s.chats[i].Messages {
			if s.chats[i].Messages[j].ID == msg.ID {
				s.chats[i].Messages[j] = msg
				return true
			}
		}
		s.chats[i].Messages = append(s.chats[i].Messages, msg)
		return true
	}
	return false
}

// SetError replaces the current error message.
func (s *Session) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.errMsg = message
}

func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Session) InfoMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoMsg
}

// ClearNotices drops the current error and info messages, the way the UI
// does after showing a toast.
func (s *Session) ClearNotices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.infoMsg = ""
}
