package auth

import (
	"net/http"

	"orachat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key under which the middleware stores the
// authenticated user id.
const ContextUserID = "userID"

// Middleware validates the session cookie and stores the user id in the
// context. Requests without a valid token are rejected with a 401 so the
// client redirects to login.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(CookieName)
		if err != nil || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Authentication required. Please log in."})
			return
		}

		userID, err := ValidateToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Session expired. Please log in again."})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
