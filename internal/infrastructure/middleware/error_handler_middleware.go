package middleware

import (
	stderrors "errors"
	"net/http"

	"roomchat/internal/core/domain"
	"roomchat/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// toAppError maps domain sentinels onto their HTTP representation.
func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}
	switch {
	case stderrors.Is(err, domain.ErrTokenNotFound), stderrors.Is(err, domain.ErrFileMissing):
		appErr := errors.NewNotFoundError("file")
		appErr.Cause = err
		return appErr
	case stderrors.Is(err, domain.ErrAccountExists):
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "username already registered", http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrInvalidCredentials):
		return errors.WrapError(err, errors.ErrCodeUnauthorized, "incorrect username or password", http.StatusUnauthorized)
	case stderrors.Is(err, domain.ErrInvalidToken), stderrors.Is(err, domain.ErrExpiredToken), stderrors.Is(err, domain.ErrUnknownSubject):
		return errors.WrapError(err, errors.ErrCodeUnauthorized, err.Error(), http.StatusUnauthorized)
	}
	return nil
}

// ErrorHandlerMiddleware renders the last error attached to the request.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr := toAppError(err); appErr != nil {
			logger.Warnw("request failed",
				"code", appErr.Code,
				"message", appErr.Message,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"cause", appErr.Cause,
			)

			body := gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			}
			if len(appErr.Context) > 0 {
				body["details"] = appErr.Context
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Errorw("unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)

		appErr := errors.NewInternalError("Internal server error")
		c.JSON(appErr.HTTPStatus, gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		})
	}
}

// RecoveryMiddleware turns panics into 500 responses.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorw("panic recovered",
					"error", rec,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
