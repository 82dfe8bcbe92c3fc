package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository/common"
)

var (
	ErrBadgeNotFound        = errors.New("badge not found")
	ErrBadgeAlreadyGranted  = errors.New("badge already granted")
	ErrUserBadgeNotFound    = errors.New("user badge not found")
	ErrBadgeRecipientAbsent = errors.New("badge recipient not found")
)

// BadgeRepository работает с таблицами badges и user_badges.
type BadgeRepository struct {
	db *sqlx.DB
}

func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// List возвращает каталог наград.
func (r *BadgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	badges := make([]models.Badge, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &badges, `
		SELECT id, slug, name, description, icon, tier, created_at
		FROM badges ORDER BY tier, name
	`)
	if err != nil {
		return nil, fmt.Errorf("badge repository: list %w", err)
	}
	return badges, nil
}

// GetByID возвращает награду каталога.
func (r *BadgeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Badge, error) {
	return common.GetByID[models.Badge](ctx, common.Executor(ctx, r.db), "badges", id, ErrBadgeNotFound)
}

// UpsertCatalog вставляет или обновляет награды по slug одним запросом.
func (r *BadgeRepository) UpsertCatalog(ctx context.Context, badges []models.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	bi := common.NewBatchInserter(common.Executor(ctx, r.db),
		`INSERT INTO badges (slug, name, description, icon, tier)`,
		`ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon, tier = EXCLUDED.tier`,
		5, len(badges),
	)
	for _, b := range badges {
		if err := bi.Add(ctx, b.Slug, b.Name, b.Description, b.Icon, b.Tier); err != nil {
			return fmt.Errorf("badge repository: upsert catalog %w", err)
		}
	}
	if err := bi.Flush(ctx); err != nil {
		return fmt.Errorf("badge repository: upsert catalog %w", err)
	}
	return nil
}

// Grant выдаёт награду. Повторная выдача возвращает ErrBadgeAlreadyGranted.
func (r *BadgeRepository) Grant(ctx context.Context, grant *models.UserBadge) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO user_badges (user_id, badge_id, granted_by)
		VALUES ($1, $2, $3)
		RETURNING granted_at
	`, grant.UserID, grant.BadgeID, grant.GrantedBy).Scan(&grant.GrantedAt)
	if err != nil {
		switch {
		case common.IsUniqueViolation(err):
			return ErrBadgeAlreadyGranted
		case common.IsForeignKeyViolation(err):
			return ErrBadgeRecipientAbsent
		}
		return fmt.Errorf("badge repository: grant %w", err)
	}
	return nil
}

// Revoke отзывает награду.
func (r *BadgeRepository) Revoke(ctx context.Context, userID, badgeID uuid.UUID) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		DELETE FROM user_badges WHERE user_id = $1 AND badge_id = $2
	`, userID, badgeID)
	if err != nil {
		return fmt.Errorf("badge repository: revoke %w", err)
	}
	return expectAffected(res, ErrUserBadgeNotFound)
}

// ListForUser возвращает награды пользователя, старшие первыми.
func (r *BadgeRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserBadgeView, error) {
	badges := make([]models.UserBadgeView, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &badges, `
		SELECT b.id, b.slug, b.name, b.description, b.icon, b.tier, b.created_at, ub.granted_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY b.tier DESC, ub.granted_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("badge repository: list for user %w", err)
	}
	return badges, nil
}
