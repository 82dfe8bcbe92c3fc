package dto

import (
	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/catproposal"
)

// SubmitServiceRequest заявка на добавление сервиса в каталог.
type SubmitServiceRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	URL         string    `json:"url" binding:"required"`
	CategoryID  uuid.UUID `json:"category_id" binding:"required"`
	Message     string    `json:"message"`
}

// SubmitCategoryRequest предложение новой категории или подкатегории.
type SubmitCategoryRequest struct {
	Type          catproposal.Kind `json:"type" binding:"required,oneof=category subcategory"`
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	ParentID      *uuid.UUID       `json:"parent_id"`
	Justification string           `json:"justification" binding:"required"`
	Link          *string          `json:"link"`
}

// UpdateProposalRequest правка заявки администратором.
// Набор полей определяется proposalType.
type UpdateProposalRequest struct {
	ProposalType string `json:"proposalType" binding:"required,oneof=service category"`

	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Link        *string    `json:"link"`
	ImageURL    *string    `json:"image_url"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Price       *float64   `json:"price"`

	Type          *catproposal.Kind `json:"type"`
	Name          *string           `json:"name"`
	ParentID      *uuid.UUID        `json:"parent_id"`
	Justification *string           `json:"justification"`
}

// UpdateServiceRequest правка сервиса администратором. Отсутствующие поля не меняются.
type UpdateServiceRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Link        *string    `json:"link"`
	ImageURL    *string    `json:"image_url"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Price       *float64   `json:"price"`
	Status      *string    `json:"status" binding:"omitempty,oneof=pending active inactive"`
}

// CategoryRequest создание и правка категории.
type CategoryRequest struct {
	Name               *string    `json:"name"`
	Description        *string    `json:"description"`
	ParentID           *uuid.UUID `json:"parent_id"`
	ClearParent        bool       `json:"clear_parent"`
	DisplayOrder       *int       `json:"display_order"`
	BackgroundImageURL *string    `json:"background_image_url"`
	ShowInNav          *bool      `json:"show_in_nav"`
}

// BadgeGrantRequest выдача или отзыв награды.
type BadgeGrantRequest struct {
	UserID  uuid.UUID `json:"user_id" binding:"required"`
	BadgeID uuid.UUID `json:"badge_id" binding:"required"`
}

// UpdateRoleRequest смена роли пользователя.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin banned"`
}

// UpdateProfileRequest правка собственного профиля. Пустая строка очищает поле.
type UpdateProfileRequest struct {
	Username    *string `json:"username"`
	Title       *string `json:"title"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
	WebsiteURL  *string `json:"website_url"`
	TwitterURL  *string `json:"twitter_url"`
	GithubURL   *string `json:"github_url"`
	LinkedinURL *string `json:"linkedin_url"`
}

// ChatMessageRequest текст сообщения чата.
type ChatMessageRequest struct {
	Message string `json:"message"`
}
