// Package rest is the typed HTTP client for the chat API. Each endpoint
// returns either its success payload or an *APIError carrying the server's
// structured message, never an untyped union.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"orachat/backend/internal/models"

	"go.uber.org/zap"
)

// FallbackErrorMessage is shown when the server gives no structured message.
const FallbackErrorMessage = "Something went wrong. Please try again."

// APIError is a failed response with the server's {message} payload.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// UserMessage returns the text suitable for showing to the user.
func (e *APIError) UserMessage() string {
	if e.Message == "" {
		return FallbackErrorMessage
	}
	return e.Message
}

// Client talks to the REST API. The cookie jar holds the session token and
// is shared with the realtime dialer so both surfaces authenticate the same
// way.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}, nil
}

// Jar exposes the session cookies for the websocket dialer.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/user/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/user/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.do(ctx, http.MethodGet, "/user/getuser", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAllUsers(ctx context.Context) (*models.UsersResponse, error) {
	var out models.UsersResponse
	if err := c.do(ctx, http.MethodGet, "/user/getallusers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.do(ctx, http.MethodGet, "/user/logout", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserChats(ctx context.Context, userID string) (*models.ChatsResponse, error) {
	var out models.ChatsResponse
	if err := c.do(ctx, http.MethodGet, "/chat/user/"+userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartChat(ctx context.Context, userID1, userID2 string) (*models.StartChatResponse, error) {
	var out models.StartChatResponse
	body := map[string]string{"userId1": userID1, "userId2": userID2}
	if err := c.do(ctx, http.MethodPost, "/chat/start", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("path", path), zap.Error(err))
		return &APIError{Status: 0, Message: FallbackErrorMessage}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Message == "" {
			return &APIError{Status: resp.StatusCode, Message: FallbackErrorMessage}
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: FallbackErrorMessage}
	}
	return nil
}
