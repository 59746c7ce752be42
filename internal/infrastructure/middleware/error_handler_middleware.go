package middleware

import (
	stderrors "errors"
	"net/http"

	"streamhub/internal/core/domain"
	"streamhub/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := toAppError(err)

		fields := []interface{}{
			"code", appErr.Code,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("request failed", append(fields, "error", err.Error())...)
		} else {
			logger.Debugw("request rejected", append(fields, "message", appErr.Message)...)
		}

		body := gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		}
		if len(appErr.Context) > 0 {
			body["details"] = appErr.Context
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// toAppError maps domain sentinels onto their HTTP representation. Credential
// and token failures carry fixed messages so the cause never leaks.
func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrStreamNotFound):
		return errors.NewNotFoundError("stream")
	case stderrors.Is(err, domain.ErrEmailAlreadyRegistered), stderrors.Is(err, domain.ErrDuplicateUser):
		return errors.NewEmailAlreadyRegisteredError()
	case stderrors.Is(err, domain.ErrInvalidCredentials):
		return errors.NewInvalidCredentialsError()
	case stderrors.Is(err, domain.ErrUnauthorized), stderrors.Is(err, domain.ErrInvalidToken):
		return errors.NewUnauthorizedError(unauthorizedMessage)
	case stderrors.Is(err, domain.ErrStoreUnavailable):
		return errors.NewServiceUnavailableError("storage is temporarily unavailable")
	default:
		return errors.NewInternalError("internal server error")
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
