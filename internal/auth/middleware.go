package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crowdqueue/backend/pkg/jwt"
	"github.com/crowdqueue/backend/pkg/redis"
)

// AuthMiddleware resolves the session cookie (or a token query parameter) to
// a user id and a live Spotify access token, and puts both in the request
// context for downstream handlers.
func AuthMiddleware(tokenStore *redis.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, _ := c.Cookie("auth_token")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		claims, err := jwt.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		tokenInfo, err := tokenStore.GetTokens(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
			return
		}

		if tokenInfo.Expired() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("access_token", tokenInfo.AccessToken)
		c.Next()
	}
}
