package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meno/internal/utils"
)

// TokenParser validates an access token and returns its claims.
type TokenParser interface {
	Parse(token string) (*utils.Claims, error)
}

// Auth requires a bearer token and stores the caller's id under "user_id".
// With allowQuery set the token may also come from the "token" query
// parameter, which browsers need for websocket handshakes.
func Auth(tokens TokenParser, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenStr := bearer(c.GetHeader("Authorization"))
		if tokenStr == "" && allowQuery {
			tokenStr = strings.TrimSpace(c.Query("token"))
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

func bearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
