package common

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/http/middleware"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/service"
)

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// CurrentAdmin возвращает подтверждение роли, выданное middleware.RequireAdmin.
func CurrentAdmin(c *gin.Context) (service.AuthorizedAdmin, error) {
	raw, exists := c.Get(middleware.ContextAdminKey)
	if !exists {
		return service.AuthorizedAdmin{}, apperror.ErrAdminOnly
	}

	admin, ok := raw.(service.AuthorizedAdmin)
	if !ok {
		return service.AuthorizedAdmin{}, apperror.ErrAdminOnly
	}
	return admin, nil
}

// Fail передаёт ошибку в middleware.ErrorHandler и прерывает цепочку.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Validation(paramName, "параметр "+paramName+" должен быть валидным UUID")
	}
	return parsed, nil
}

// BindJSON разбирает тело запроса. Ошибки привязки превращаются в validation.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	if errors.Is(err, io.EOF) {
		return apperror.New(apperror.ErrCodeValidation, "тело запроса пустое")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return apperror.Validation(jsonFieldName(first), "поле "+jsonFieldName(first)+" не прошло проверку "+first.Tag())
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректный JSON")
}

// jsonFieldName переводит имя поля структуры в snake_case для ответа клиенту.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	out := make([]byte, 0, len(name)+4)
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'A' && ch <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				out = append(out, '_')
			}
			ch += 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
