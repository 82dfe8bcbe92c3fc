package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage сообщение в чате категории.
type ChatMessage struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CategoryID uuid.UUID  `db:"category_id" json:"category_id"`
	SenderID   uuid.UUID  `db:"sender_id" json:"sender_id"`
	Message    string     `db:"message" json:"message"`
	ImageURL   *string    `db:"image_url" json:"image_url,omitempty"`
	EditedAt   *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Badge элемент каталога наград. Tier от 1 до 5.
type Badge struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Icon        string    `db:"icon" json:"icon"`
	Tier        int       `db:"tier" json:"tier"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserBadge выданная пользователю награда.
type UserBadge struct {
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	BadgeID   uuid.UUID  `db:"badge_id" json:"badge_id"`
	GrantedBy *uuid.UUID `db:"granted_by" json:"granted_by,omitempty"`
	GrantedAt time.Time  `db:"granted_at" json:"granted_at"`
}

// UserBadgeView награда вместе с данными каталога.
type UserBadgeView struct {
	Badge
	GrantedAt time.Time `db:"granted_at" json:"granted_at"`
}
