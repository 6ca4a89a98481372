package models

// REST response shapes, shared by the server handlers and the client so both
// ends agree on field names.

type AuthResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type ChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type StartChatResponse struct {
	Success bool   `json:"success"`
	Chat    Chat   `json:"chat"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the single error shape every endpoint uses on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}
