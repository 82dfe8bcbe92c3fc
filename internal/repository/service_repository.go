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

var ErrServiceNotFound = errors.New("service not found")

const serviceColumns = `id, title, description, link, image_url, category_id, price, status, proposer_id, user_id, created_at, updated_at`

// ServiceRepository работает с таблицей services.
type ServiceRepository struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create создаёт сервис.
func (r *ServiceRepository) Create(ctx context.Context, svc *models.Service) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO services (title, description, link, image_url, category_id, price, status, proposer_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		svc.Title, svc.Description, svc.Link, svc.ImageURL, svc.CategoryID,
		svc.Price, svc.Status, svc.ProposerID, svc.UserID,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("service repository: create %w", err)
	}
	return nil
}

// GetByID возвращает сервис по ID.
func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &svc,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("service repository: get by id %w", err)
	}
	return &svc, nil
}

// ListActive возвращает опубликованные сервисы, при необходимости одной категории.
func (r *ServiceRepository) ListActive(ctx context.Context, categoryID *uuid.UUID, limit, offset int) ([]models.Service, error) {
	services := make([]models.Service, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &services, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE status = 'active' AND ($1::uuid IS NULL OR category_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service repository: list active %w", err)
	}
	return services, nil
}

// Search ищет опубликованные сервисы по подстроке в названии или описании без учёта регистра.
func (r *ServiceRepository) Search(ctx context.Context, query string, limit int) ([]models.Service, error) {
	services := make([]models.Service, 0)
	pattern := "%" + common.EscapeLike(query) + "%"
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &services, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE status = 'active' AND (title ILIKE $1 OR description ILIKE $1)
		ORDER BY title
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("service repository: search %w", err)
	}
	return services, nil
}

// Update сохраняет все изменяемые поля сервиса.
func (r *ServiceRepository) Update(ctx context.Context, svc *models.Service) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE services
		SET title = $2, description = $3, link = $4, image_url = $5, category_id = $6,
		    price = $7, status = $8, user_id = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		svc.ID, svc.Title, svc.Description, svc.Link, svc.ImageURL, svc.CategoryID,
		svc.Price, svc.Status, svc.UserID,
	).Scan(&svc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrServiceNotFound
		}
		if common.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("service repository: update %w", err)
	}
	return nil
}

// Delete удаляет сервис вместе с его заявками.
func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("service repository: delete %w", err)
	}
	return expectAffected(res, ErrServiceNotFound)
}
