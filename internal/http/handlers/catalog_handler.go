package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/service"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories GET /api/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	tree, err := h.catalog.CategoryTree(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

// GetCategory GET /api/categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// ListServices GET /api/services?category_id=&limit=&offset=
func (h *CatalogHandler) ListServices(c *gin.Context) {
	var categoryID *uuid.UUID
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.Fail(c, apperror.Validation("category_id", "неверный category_id"))
			return
		}
		categoryID = &id
	}

	limit, offset := common.GetPagination(c)
	services, err := h.catalog.ListServices(c.Request.Context(), categoryID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"services":   services,
		"pagination": dto.Pagination{Limit: limit, Offset: offset},
	})
}

// GetService GET /api/services/:id
func (h *CatalogHandler) GetService(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc})
}

// Search GET /api/search?q=
func (h *CatalogHandler) Search(c *gin.Context) {
	services, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}
