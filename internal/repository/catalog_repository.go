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

var ErrCategoryNotFound = errors.New("category not found")

const categoryColumns = `id, name, description, parent_id, display_order, background_image_url, show_in_nav, source_proposal_id, created_at`

// CatalogRepository работает с таблицей categories.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories возвращает все категории в порядке отображения.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &categories, `
		SELECT `+categoryColumns+`
		FROM categories ORDER BY display_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list categories %w", err)
	}
	return categories, nil
}

// GetCategoryByID возвращает категорию по ID.
func (r *CatalogRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &category, `
		SELECT `+categoryColumns+` FROM categories WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("catalog repository: get category %w", err)
	}
	return &category, nil
}

// GetBySourceProposal возвращает категорию, созданную из заявки.
func (r *CatalogRepository) GetBySourceProposal(ctx context.Context, proposalID uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &category, `
		SELECT `+categoryColumns+` FROM categories WHERE source_proposal_id = $1
	`, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("catalog repository: get by source proposal %w", err)
	}
	return &category, nil
}

// CreateCategory создаёт категорию.
// Если задан SourceProposalID и категория из этой заявки уже есть, возвращает существующую и created=false.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) (bool, error) {
	q := common.Executor(ctx, r.db)
	err := q.QueryRowxContext(ctx, `
		INSERT INTO categories (name, description, parent_id, display_order, background_image_url, show_in_nav, source_proposal_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_proposal_id) DO NOTHING
		RETURNING id, created_at
	`,
		category.Name, category.Description, category.ParentID, category.DisplayOrder,
		category.BackgroundImageURL, category.ShowInNav, category.SourceProposalID,
	).Scan(&category.ID, &category.CreatedAt)

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || category.SourceProposalID == nil {
		if common.IsForeignKeyViolation(err) {
			return false, ErrCategoryNotFound
		}
		return false, fmt.Errorf("catalog repository: create category %w", err)
	}

	existing, err := r.GetBySourceProposal(ctx, *category.SourceProposalID)
	if err != nil {
		return false, err
	}
	*category = *existing
	return false, nil
}

// UpdateCategory сохраняет редактируемые поля категории.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, parent_id = $4, display_order = $5,
		    background_image_url = $6, show_in_nav = $7
		WHERE id = $1
	`,
		category.ID, category.Name, category.Description, category.ParentID,
		category.DisplayOrder, category.BackgroundImageURL, category.ShowInNav,
	)
	if err != nil {
		return fmt.Errorf("catalog repository: update category %w", err)
	}
	return expectAffected(res, ErrCategoryNotFound)
}

// DeleteCategory удаляет категорию. Сервисы категории остаются без неё.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog repository: delete category %w", err)
	}
	return expectAffected(res, ErrCategoryNotFound)
}

// CountChildren возвращает число подкатегорий.
func (r *CatalogRepository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &count,
		`SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("catalog repository: count children %w", err)
	}
	return count, nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
