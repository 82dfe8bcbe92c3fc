package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда профиль пользователя не найден.
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username taken")
)

const profileColumns = `id, username, role, title, bio, avatar_url, website_url, twitter_url, github_url, linkedin_url, created_at, updated_at`

// UserRepository отвечает за таблицу profiles.
// Сами учётные записи живут у провайдера авторизации.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetProfile возвращает профиль по ID.
func (r *UserRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get profile %w", err)
	}
	return &profile, nil
}

// GetRole читает роль из базы. Вызывается на каждый запрос, требующий прав.
func (r *UserRepository) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	var role string
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &role,
		`SELECT role FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("user repository: get role %w", err)
	}
	return role, nil
}

// UpdateProfile сохраняет редактируемые поля профиля.
func (r *UserRepository) UpdateProfile(ctx context.Context, profile *models.UserProfile) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE profiles
		SET username = $2, title = $3, bio = $4, avatar_url = $5,
		    website_url = $6, twitter_url = $7, github_url = $8, linkedin_url = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		profile.ID, profile.Username, profile.Title, profile.Bio, profile.AvatarURL,
		profile.WebsiteURL, profile.TwitterURL, profile.GithubURL, profile.LinkedinURL,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if common.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("user repository: update profile %w", err)
	}
	return nil
}

// SetRole меняет роль пользователя.
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1
	`, id, role)
	if err != nil {
		return fmt.Errorf("user repository: set role %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}
