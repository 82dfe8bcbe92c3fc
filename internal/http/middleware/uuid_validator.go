package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/services/:id", UUIDValidator("id"), handler.GetService)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			_ = c.Error(apperror.Validation(paramName, "параметр "+paramName+" должен быть валидным UUID"))
			c.Abort()
			return
		}
		c.Next()
	}
}
