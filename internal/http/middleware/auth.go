package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextAdminKey  = "admin"
)

// AuthMiddleware проверяет JWT access токен провайдера авторизации.
func AuthMiddleware(tokens *service.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := ParseBearer(tokens, c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(apperror.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// ParseBearer разбирает заголовок "Bearer <token>".
func ParseBearer(tokens *service.TokenVerifier, header string) (uuid.UUID, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, false
	}
	userID, err := tokens.ParseAccess(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// RequireAdmin проверяет роль admin по базе и кладёт подтверждение в контекст.
// Ставится после AuthMiddleware.
func RequireAdmin(authz *service.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userFromContext(c)
		if !ok {
			_ = c.Error(apperror.ErrUnauthorized)
			c.Abort()
			return
		}

		admin, err := authz.RequireAdmin(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, admin)
		c.Next()
	}
}

// RequireMember отсекает заблокированных пользователей на пишущих маршрутах.
func RequireMember(authz *service.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userFromContext(c)
		if !ok {
			_ = c.Error(apperror.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := authz.RequireMember(c.Request.Context(), userID); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func userFromContext(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
