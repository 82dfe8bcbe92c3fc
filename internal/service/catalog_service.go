package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
)

const (
	categoryTreeTTL    = 10 * time.Minute
	searchResultsLimit = 50
)

// CatalogService публичный каталог: категории, сервисы, поиск.
type CatalogService struct {
	categories CategoryRepository
	services   ServiceRepository
	cache      *CacheService
}

func NewCatalogService(categories CategoryRepository, services ServiceRepository, cache *CacheService) *CatalogService {
	return &CatalogService{
		categories: categories,
		services:   services,
		cache:      cache,
	}
}

// CategoryTree возвращает корневые категории с вложенными подкатегориями.
func (s *CatalogService) CategoryTree(ctx context.Context) ([]models.Category, error) {
	value, err := s.cache.GetOrSet(CategoryTreeCacheKey, categoryTreeTTL, func() (interface{}, error) {
		flat, err := s.categories.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		return buildCategoryTree(flat), nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return value.([]models.Category), nil
}

// GetCategory возвращает категорию.
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categories.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return category, nil
}

// ListServices возвращает опубликованные сервисы, при необходимости одной категории.
func (s *CatalogService) ListServices(ctx context.Context, categoryID *uuid.UUID, limit, offset int) ([]models.Service, error) {
	if categoryID != nil {
		if _, err := s.categories.GetCategoryByID(ctx, *categoryID); err != nil {
			return nil, translate(err)
		}
	}
	services, err := s.services.ListActive(ctx, categoryID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return services, nil
}

// GetService возвращает только опубликованный сервис.
func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if svc.Status != models.ServiceStatusActive {
		return nil, apperror.New(apperror.ErrCodeNotFound, "сервис не найден")
	}
	return svc, nil
}

// Search ищет опубликованные сервисы по подстроке в названии и описании.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Service, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Service{}, nil
	}
	services, err := s.services.Search(ctx, query, searchResultsLimit)
	if err != nil {
		return nil, translate(err)
	}
	return services, nil
}

// buildCategoryTree раскладывает плоский список по родителям, сохраняя порядок.
// Подкатегории с отсутствующим родителем поднимаются в корень.
func buildCategoryTree(flat []models.Category) []models.Category {
	children := make(map[uuid.UUID][]models.Category)
	known := make(map[uuid.UUID]struct{}, len(flat))
	for _, c := range flat {
		known[c.ID] = struct{}{}
	}

	roots := make([]models.Category, 0)
	for _, c := range flat {
		if c.ParentID != nil {
			if _, ok := known[*c.ParentID]; ok {
				children[*c.ParentID] = append(children[*c.ParentID], c)
				continue
			}
		}
		roots = append(roots, c)
	}

	for i := range roots {
		roots[i].Children = children[roots[i].ID]
	}
	return roots
}
