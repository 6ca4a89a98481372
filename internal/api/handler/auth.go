package handler

import (
	"errors"
	"net/http"

	"orachat/backend/internal/auth"
	"orachat/backend/internal/models"
	"orachat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and opens a session.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Username, email and password are required."})
		return
	}

	if _, err := h.Storage.GetUserByEmail(req.Email); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{Message: "An account with this email already exists."})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.internalError(c, "register lookup failed", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internalError(c, "password hash failed", err)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
	}
	if err := h.Storage.CreateUser(&user); err != nil {
		h.internalError(c, "failed to create user", err)
		return
	}

	if err := h.issueSession(c, user.ID); err != nil {
		h.internalError(c, "failed to issue token", err)
		return
	}
	c.JSON(http.StatusCreated, models.AuthResponse{User: user, Message: "Registered successfully"})
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Email and password are required."})
		return
	}

	user, err := h.Storage.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid email or password."})
			return
		}
		h.internalError(c, "login lookup failed", err)
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid email or password."})
		return
	}

	if err := h.issueSession(c, user.ID); err != nil {
		h.internalError(c, "failed to issue token", err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{User: *user, Message: "Logged in successfully"})
}

// GetUser returns the authenticated account, used for session restore.
func (h *Handler) GetUser(c *gin.Context) {
	userID := c.GetString(auth.ContextUserID)
	user, err := h.Storage.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Session expired. Please log in again."})
			return
		}
		h.internalError(c, "get user failed", err)
		return
	}
	c.JSON(http.StatusOK, models.UserResponse{User: *user})
}

// GetAllUsers returns the full roster.
func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.Storage.GetAllUsers()
	if err != nil {
		h.internalError(c, "get all users failed", err)
		return
	}
	c.JSON(http.StatusOK, models.UsersResponse{Users: users})
}

// Logout clears the session cookie. Presence is flipped separately by the
// userLogout realtime intent, so a dropped websocket still goes offline.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) issueSession(c *gin.Context, userID string) error {
	token, err := auth.GenerateToken(userID, h.JWTSecret)
	if err != nil {
		return err
	}
	c.SetCookie(auth.CookieName, token, int((72 * 60 * 60)), "/", "", false, true)
	return nil
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.Logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Something went wrong. Please try again."})
}
