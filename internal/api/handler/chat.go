package handler

import (
	"errors"
	"net/http"

	"orachat/backend/internal/auth"
	"orachat/backend/internal/models"
	"orachat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type startChatRequest struct {
	UserID1 string `json:"userId1" binding:"required"`
	UserID2 string `json:"userId2" binding:"required"`
}

// GetUserChats returns every chat the user participates in, messages
// included, ordered oldest first.
func (h *Handler) GetUserChats(c *gin.Context) {
	userID := c.Param("userId")
	if userID != c.GetString(auth.ContextUserID) {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "You can only fetch your own chats."})
		return
	}

	chats, err := h.Storage.GetUserChats(userID)
	if err != nil {
		h.internalError(c, "get user chats failed", err)
		return
	}
	c.JSON(http.StatusOK, models.ChatsResponse{Chats: chats})
}

// StartChat returns the existing chat for the pair or creates one. At most
// one chat exists per pair; the lookup checks both orientations.
func (h *Handler) StartChat(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Both user ids are required."})
		return
	}
	if req.UserID1 == req.UserID2 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Cannot start a chat with yourself."})
		return
	}
	caller := c.GetString(auth.ContextUserID)
	if caller != req.UserID1 && caller != req.UserID2 {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "You must be a participant of the chat."})
		return
	}

	if _, err := h.Storage.GetUserByID(req.UserID2); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found."})
			return
		}
		h.internalError(c, "start chat lookup failed", err)
		return
	}

	chat, created, err := h.Storage.GetOrCreateChat(req.UserID1, req.UserID2)
	if err != nil {
		h.internalError(c, "start chat failed", err)
		return
	}

	message := "Chat already exists"
	status := http.StatusOK
	if created {
		message = "Chat started"
		status = http.StatusCreated
	}
	c.JSON(status, models.StartChatResponse{Success: true, Chat: *chat, Message: message})
}
