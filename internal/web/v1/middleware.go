package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hoangnd/tokengate/internal/core/domain"
	logicv1 "github.com/hoangnd/tokengate/internal/logic/v1"
)

// userContextKey is where the gate stores the resolved user in the gin
// context. Per-request only; concurrent requests never share state.
const userContextKey = "auth.user"

// RequireAuth is the validation gate for protected routes. It extracts the
// bearer token, resolves it to a user, and attaches that user to the request
// context for downstream handlers. Missing and unknown tokens both reject
// with 401.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token missing"})
			return
		}

		user, err := h.auth.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, logicv1.ErrTokenInvalid) || errors.Is(err, logicv1.ErrTokenMissing) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFromContext returns the user attached by the validation gate.
func UserFromContext(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" for an absent or malformed header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
