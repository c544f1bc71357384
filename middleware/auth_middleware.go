package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/services"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer access token into an Identity and
// stores it on the request context.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		ident, err := auth.ResolveIdentity(c.Request.Context(), tokenStr)
		if err != nil {
			switch apperrors.KindOf(err) {
			case apperrors.NotFound:
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			}
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireAdmin sits behind AuthMiddleware and gates admin-only routes.
func RequireAdmin(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err := auth.RequireRole(ident, models.RoleAdmin); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (services.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return services.Identity{}, false
	}
	ident, ok := val.(services.Identity)
	return ident, ok
}
