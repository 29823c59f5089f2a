package handler

import (
	"errors"
	"net/http"
	"strings"

	"taskmanager/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenVerifier проверяет bearer-токен и возвращает ID пользователя
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Authenticator выполняет явную проверку токена в каждом защищенном обработчике
type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Caller returns the verified caller id. On failure it writes a 401 or 403
// response and reports false.
func (a *Authenticator) Caller(c *gin.Context) (uuid.UUID, bool) {
	header := c.GetHeader("Authorization")

	var token string
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return uuid.Nil, false
		}
		token = strings.TrimSpace(parts[1])
	}

	userID, err := a.verifier.Verify(token)
	switch {
	case err == nil:
		return userID, true
	case errors.Is(err, auth.ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
	case errors.Is(err, auth.ErrInvalidClaims):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid user ID in token"})
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
	}
	return uuid.Nil, false
}
