package middleware

import (
	"strings"

	"roomchat/internal/core/services"
	"roomchat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the authenticated subject.
const UsernameKey = "username"

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := errors.NewUnauthorizedError(message)
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}

// AuthMiddleware requires a valid bearer token whose subject still has an
// account.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		username, err := authService.Verify(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the username when a valid token is present and
// lets anonymous requests through otherwise.
func OptionalAuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := authService.ValidateToken(token); err == nil {
				c.Set(UsernameKey, claims.Subject)
			}
		}
		c.Next()
	}
}
