package handler

import (
	"net/http"

	"orachat/backend/internal/auth"
	"orachat/backend/internal/chathub"
	"orachat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin is enforced by the CORS layer on the REST routes; the
	// websocket accepts any origin and relies on the session token instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers it with the hub.
// The session token comes from the cookie (browsers) or, as a fallback,
// a token query parameter (non-browser clients).
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString, err := c.Cookie(auth.CookieName)
	if err != nil || tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Authentication required. Please log in."})
		return
	}

	userID, err := auth.ValidateToken(tokenString, h.JWTSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Session expired. Please log in again."})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, userID, h.Logger)
	h.Hub.RegisterCh <- client
	client.Run()
}
