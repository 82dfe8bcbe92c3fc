package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UserProfile описывает публичный профиль пользователя.
// ID совпадает с идентификатором во внешнем провайдере авторизации.
type UserProfile struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Role        string    `db:"role" json:"role"`
	Title       *string   `db:"title" json:"title,omitempty"`
	Bio         *string   `db:"bio" json:"bio,omitempty"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	WebsiteURL  *string   `db:"website_url" json:"website_url,omitempty"`
	TwitterURL  *string   `db:"twitter_url" json:"twitter_url,omitempty"`
	GithubURL   *string   `db:"github_url" json:"github_url,omitempty"`
	LinkedinURL *string   `db:"linkedin_url" json:"linkedin_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AdminLog фиксирует действие администратора.
type AdminLog struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	AdminID    uuid.UUID       `db:"admin_id" json:"admin_id"`
	Action     string          `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   *uuid.UUID      `db:"target_id" json:"target_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
