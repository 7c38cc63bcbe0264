package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qwerty/api/utils"
)

// tokenFromRequest pulls the JWT from the Authorization header (Bearer) or
// falls back to the jwt_token cookie.
func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if token, err := c.Cookie("jwt_token"); err == nil {
		return token
	}
	return ""
}

// AuthRequired rejects requests without a valid JWT and stores the claims'
// user id and email on the context.
func AuthRequired(jwtManager *utils.JWTManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		claims, err := jwtManager.Validate(tokenString)
		if err != nil {
			log.Debug("Rejected invalid JWT", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Next()
	}
}

// OptionalAuth sets the user context when a valid token is present but never
// rejects the request. Used on public endpoints that personalize their
// response for logged-in users.
func OptionalAuth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString != "" {
			if claims, err := jwtManager.Validate(tokenString); err == nil {
				c.Set("user_id", claims.UserID)
				c.Set("user_email", claims.Email)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id, or 0 when the request is
// anonymous.
func UserID(c *gin.Context) int {
	if id, ok := c.Get("user_id"); ok {
		if userID, ok := id.(int); ok {
			return userID
		}
	}
	return 0
}
