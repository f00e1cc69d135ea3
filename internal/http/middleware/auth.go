package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/gigpay/internal/model"
)

const principalKey = "principal"

// TokenParser validates an access token and returns the profile id it was
// issued for.
type TokenParser interface {
	ParseProfileID(token string) (uuid.UUID, error)
}

// ProfileLoader resolves a profile id to its durable record.
type ProfileLoader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// Auth resolves the caller identity: bearer token → profile id → profile
// row, stored as a Principal on the request context. Requests without a
// resolvable profile never reach a handler.
func Auth(parser TokenParser, profiles ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		profileID, err := parser.ParseProfileID(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		profile, err := profiles.GetProfile(c.Request.Context(), profileID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown profile"})
			return
		}

		c.Set(principalKey, model.Principal{ProfileID: profile.ID, Type: profile.Type})
		c.Next()
	}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	return principal, ok
}
