package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"orachat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestLoginDecodesResponseAndKeepsCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		http.SetCookie(w, &http.Cookie{Name: "token", Value: "jwt-token", Path: "/"})
		json.NewEncoder(w).Encode(models.AuthResponse{
			User:    models.User{ID: "user_A", Username: "alice"},
			Message: "Logged in successfully",
		})
	})
	mux.HandleFunc("/user/getuser", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value != "jwt-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Unauthorized"})
			return
		}
		json.NewEncoder(w).Encode(models.UserResponse{User: models.User{ID: "user_A"}})
	})

	client := newTestClient(t, mux)

	resp, err := client.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)

	// The session cookie rides along on the next call.
	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user_A", user.User.ID)
}

func TestErrorResponsesBecomeAPIErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Invalid email or password."})
	}))

	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password.", apiErr.UserMessage())
}

func TestUnstructuredErrorFallsBack(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))

	_, err := client.GetAllUsers(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, FallbackErrorMessage, apiErr.UserMessage())
}

func TestStartChatPostsBothIDs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/start", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user_A", body["userId1"])
		assert.Equal(t, "user_B", body["userId2"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.StartChatResponse{
			Success: true,
			Chat:    models.Chat{ID: "chat1"},
			Message: "Chat started",
		})
	}))

	resp, err := client.StartChat(context.Background(), "user_A", "user_B")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "chat1", resp.Chat.ID)
}

func TestGetUserChatsPathCarriesUserID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/user/user_A", r.URL.Path)
		json.NewEncoder(w).Encode(models.ChatsResponse{Chats: []models.Chat{{ID: "chat1"}}})
	}))

	resp, err := client.GetUserChats(context.Background(), "user_A")
	require.NoError(t, err)
	require.Len(t, resp.Chats, 1)
}

func TestConnectionFailureIsAnAPIError(t *testing.T) {
	client, err := New("http://127.0.0.1:1", zap.NewNop())
	require.NoError(t, err)

	_, err = client.GetAllUsers(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, FallbackErrorMessage, apiErr.UserMessage())
}
