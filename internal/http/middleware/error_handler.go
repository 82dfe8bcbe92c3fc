package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/pkg/apperror"
)

var timeNow = time.Now

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки без кода считаются внутренними: клиент видит общее сообщение, причина уходит в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperror.As(err)
		if !ok {
			appErr = apperror.Internal(err)
		}

		fields := logrus.Fields{
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Log.WithFields(fields).WithError(err).Error("Request error")
		} else {
			logger.Log.WithFields(fields).Debug(appErr.Message)
		}

		if appErr.Code == apperror.ErrCodeRateLimited && !appErr.ResetAt.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(appErr.ResetAt.Unix(), 10))
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(appErr)))
		}

		c.JSON(appErr.HTTPStatus, dto.NewErrorResponse(appErr))
	}
}

func retryAfterSeconds(appErr *apperror.AppError) int {
	seconds := int(appErr.ResetAt.Sub(timeNow()).Seconds()) + 1
	if seconds < 1 {
		return 1
	}
	return seconds
}
