package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/validation"
)

type BadgeRepository interface {
	List(ctx context.Context) ([]models.Badge, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Badge, error)
	UpsertCatalog(ctx context.Context, badges []models.Badge) error
	Grant(ctx context.Context, grant *models.UserBadge) error
	Revoke(ctx context.Context, userID, badgeID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserBadgeView, error)
}

// BadgeDefinition запись файла каталога наград.
type BadgeDefinition struct {
	Slug        string `yaml:"slug" json:"slug" validate:"required,max=60"`
	Name        string `yaml:"name" json:"name" validate:"required,max=100"`
	Description string `yaml:"description" json:"description" validate:"max=500"`
	Icon        string `yaml:"icon" json:"icon" validate:"max=100"`
	Tier        int    `yaml:"tier" json:"tier" validate:"gte=1,lte=5"`
}

type badgeCatalogFile struct {
	Badges []BadgeDefinition `yaml:"badges"`
}

// LoadBadgeCatalog читает и проверяет каталог наград в формате YAML.
func LoadBadgeCatalog(r io.Reader) ([]models.Badge, error) {
	var file badgeCatalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("badge catalog: decode: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Badges))
	badges := make([]models.Badge, 0, len(file.Badges))
	for i, def := range file.Badges {
		if err := validation.Struct(def); err != nil {
			return nil, fmt.Errorf("badge catalog: entry %d: %w", i, err)
		}
		if _, dup := seen[def.Slug]; dup {
			return nil, fmt.Errorf("badge catalog: duplicate slug %q", def.Slug)
		}
		seen[def.Slug] = struct{}{}

		badges = append(badges, models.Badge{
			Slug:        def.Slug,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Tier:        def.Tier,
		})
	}
	return badges, nil
}

type BadgeService struct {
	tx     Transactor
	badges BadgeRepository
	logs   AdminLogRepository
}

func NewBadgeService(tx Transactor, badges BadgeRepository, logs AdminLogRepository) *BadgeService {
	return &BadgeService{tx: tx, badges: badges, logs: logs}
}

// SyncCatalog загружает каталог из файла и обновляет таблицу badges по slug.
func (s *BadgeService) SyncCatalog(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("badge catalog: open %s: %w", path, err)
	}
	defer f.Close()

	badges, err := LoadBadgeCatalog(f)
	if err != nil {
		return err
	}
	if err := s.badges.UpsertCatalog(ctx, badges); err != nil {
		return err
	}

	logger.Log.WithField("count", len(badges)).Info("каталог наград синхронизирован")
	return nil
}

// ListCatalog возвращает все награды.
func (s *BadgeService) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.badges.List(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return badges, nil
}

// ListForUser возвращает награды пользователя.
func (s *BadgeService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserBadgeView, error) {
	badges, err := s.badges.ListForUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return badges, nil
}

// Grant выдаёт награду. Повторная выдача даёт ошибку duplicate.
func (s *BadgeService) Grant(ctx context.Context, admin AuthorizedAdmin, userID, badgeID uuid.UUID) (*models.UserBadge, error) {
	if err := checkBadgeIDs(userID, badgeID); err != nil {
		return nil, err
	}
	grantedBy := admin.UserID()
	grant := &models.UserBadge{
		UserID:    userID,
		BadgeID:   badgeID,
		GrantedBy: &grantedBy,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		badge, err := s.badges.GetByID(ctx, badgeID)
		if err != nil {
			return err
		}
		if err := s.badges.Grant(ctx, grant); err != nil {
			return err
		}
		return recordAdminAction(ctx, s.logs, admin, models.AdminActionGrantBadge, "user", &userID, map[string]any{
			"badge_id": badgeID,
			"slug":     badge.Slug,
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return grant, nil
}

// Revoke отзывает награду.
func (s *BadgeService) Revoke(ctx context.Context, admin AuthorizedAdmin, userID, badgeID uuid.UUID) error {
	if err := checkBadgeIDs(userID, badgeID); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.badges.Revoke(ctx, userID, badgeID); err != nil {
			return err
		}
		return recordAdminAction(ctx, s.logs, admin, models.AdminActionRevokeBadge, "user", &userID, map[string]any{
			"badge_id": badgeID,
		})
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

// checkBadgeIDs проверяет идентификаторы из тела запроса.
func checkBadgeIDs(userID, badgeID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperror.Validation("user_id", "обязательное поле")
	}
	if badgeID == uuid.Nil {
		return apperror.Validation("badge_id", "обязательное поле")
	}
	return nil
}
