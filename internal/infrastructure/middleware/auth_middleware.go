package middleware

import (
	"rillcast/internal/core/services"
	"rillcast/pkg/errors"
	"rillcast/pkg/logger"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// RequireSignIn rejects requests while no user is signed in and exposes the
// user to handlers.
func RequireSignIn(auth *services.AuthStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser()
		if user == nil {
			appErr := errors.NewUnauthorizedError("sign in required")
			c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			})
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(logger.WithValue(c.Request.Context(), logger.UserIDKey, string(user.ID)))
		c.Next()
	}
}
