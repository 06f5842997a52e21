package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

const (
	callerKey = "caller_address"
	roleKey   = "caller_role"
)

// Middleware validates the bearer token and stores the operator's on-ledger
// address and role in the request context.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := service.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerKey, claims.Address)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// RequireRole rejects requests whose operator role is not in the allowed set.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(roleKey)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// CallerAddress returns the authenticated on-ledger address for the request.
func CallerAddress(c *gin.Context) ledger.Address {
	return ledger.Address(c.GetString(callerKey))
}
