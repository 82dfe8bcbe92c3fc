package models

import (
	"time"

	"github.com/google/uuid"
)

// Category представляет категорию сервисов. Вложенность не глубже одного уровня.
type Category struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	Description        *string    `db:"description" json:"description,omitempty"`
	ParentID           *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	DisplayOrder       int        `db:"display_order" json:"display_order"`
	BackgroundImageURL *string    `db:"background_image_url" json:"background_image_url,omitempty"`
	ShowInNav          bool       `db:"show_in_nav" json:"show_in_nav"`
	SourceProposalID   *uuid.UUID `db:"source_proposal_id" json:"source_proposal_id,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	Children           []Category `db:"-" json:"children,omitempty"`
}

// IsRoot сообщает, что категория верхнего уровня.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Service описывает AI-сервис каталога.
type Service struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Link        string     `db:"link" json:"link"`
	ImageURL    *string    `db:"image_url" json:"image_url,omitempty"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	Price       *float64   `db:"price" json:"price,omitempty"`
	Status      string     `db:"status" json:"status"`
	ProposerID  uuid.UUID  `db:"proposer_id" json:"proposer_id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ServiceProposal хранит заявку пользователя.
// Message содержит либо свободный текст, либо закодированное предложение категории.
type ServiceProposal struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ServiceID *uuid.UUID `db:"service_id" json:"service_id,omitempty"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Message   string     `db:"message" json:"message"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
