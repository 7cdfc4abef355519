package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickup/internal/apperr"
)

const claimsKey = "claims"

var (
	ErrAdminRequired   = apperr.Forbidden("Admin access required")
	ErrScannerRequired = apperr.Forbidden("Scanner access required")
)

// Authenticate enforces bearer JWT tokens signed with HS256.
func Authenticate(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin lets admin, both and legacy scopes through.
func RequireAdmin() gin.HandlerFunc {
	return requireScope(Access.CanAdmin, ErrAdminRequired)
}

// RequireScanner lets scanner, both and legacy scopes through.
func RequireScanner() gin.HandlerFunc {
	return requireScope(Access.CanScan, ErrScannerRequired)
}

func requireScope(allowed func(Access) bool, denied error) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		if !allowed(claims.Scope()) {
			c.AbortWithStatusJSON(apperr.Status(denied), gin.H{"error": apperr.Message(denied)})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
