package dto

import (
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
)

// ErrorBody тело ошибки API.
type ErrorBody struct {
	Code    apperror.ErrorCode `json:"code"`
	Message string             `json:"message"`
	Field   string             `json:"field,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewErrorResponse(err *apperror.AppError) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Code:    err.Code,
		Message: err.Message,
		Field:   err.Field,
	}}
}

// ValidateProposalResponse результат утверждения предложения категории.
type ValidateProposalResponse struct {
	Category *models.Category `json:"category"`
	Created  bool             `json:"created"`
}

// Pagination параметры страницы в ответе списка.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
