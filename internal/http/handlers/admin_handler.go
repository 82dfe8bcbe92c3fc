package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/catproposal"
	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/service"
)

// AdminHandler маршруты /api/admin. Роль проверяет middleware.RequireAdmin.
type AdminHandler struct {
	moderation *service.ModerationService
	badges     *service.BadgeService
}

func NewAdminHandler(moderation *service.ModerationService, badges *service.BadgeService) *AdminHandler {
	return &AdminHandler{moderation: moderation, badges: badges}
}

// ListProposals GET /api/admin/proposals?status=
func (h *AdminHandler) ListProposals(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	proposals, err := h.moderation.ListProposals(c.Request.Context(), admin, c.Query("status"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposals":  proposals,
		"pagination": dto.Pagination{Limit: limit, Offset: offset},
	})
}

// UpdateProposal PATCH /api/admin/proposals/:id
func (h *AdminHandler) UpdateProposal(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateProposalRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	view, err := h.moderation.UpdateProposal(c.Request.Context(), admin, id, toProposalPatch(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": view})
}

// ValidateProposal POST /api/admin/proposals/:id/validate
// 201 если категория создана, 200 если уже существовала.
func (h *AdminHandler) ValidateProposal(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	category, created, err := h.moderation.ValidateCategoryProposal(c.Request.Context(), admin, id)
	if err != nil {
		common.Fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ValidateProposalResponse{Category: category, Created: created})
}

// RejectProposal DELETE /api/admin/proposals/:id
func (h *AdminHandler) RejectProposal(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.moderation.RejectProposal(c.Request.Context(), admin, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateService PUT /api/admin/services/:id
func (h *AdminHandler) UpdateService(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateServiceRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.moderation.UpdateService(c.Request.Context(), admin, id, service.ServicePatch{
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		Status:      req.Status,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc})
}

// DeleteService DELETE /api/admin/services/:id
func (h *AdminHandler) DeleteService(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.moderation.DeleteService(c.Request.Context(), admin, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCategory POST /api/admin/categories
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CategoryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.moderation.CreateCategory(c.Request.Context(), admin, toCategoryInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory PUT /api/admin/categories/:id
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CategoryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.moderation.UpdateCategory(c.Request.Context(), admin, id, toCategoryInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory DELETE /api/admin/categories/:id
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.moderation.DeleteCategory(c.Request.Context(), admin, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GrantBadge POST /api/admin/badges
func (h *AdminHandler) GrantBadge(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.BadgeGrantRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	grant, err := h.badges.Grant(c.Request.Context(), admin, req.UserID, req.BadgeID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"badge": grant})
}

// RevokeBadge DELETE /api/admin/badges
func (h *AdminHandler) RevokeBadge(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.BadgeGrantRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.badges.Revoke(c.Request.Context(), admin, req.UserID, req.BadgeID); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetUserRole PUT /api/admin/users/:id/role
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.moderation.SetUserRole(c.Request.Context(), admin, id, req.Role)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// ListLogs GET /api/admin/logs
func (h *AdminHandler) ListLogs(c *gin.Context) {
	admin, err := common.CurrentAdmin(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	logs, err := h.moderation.ListLogs(c.Request.Context(), admin, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": dto.Pagination{Limit: limit, Offset: offset},
	})
}

func toProposalPatch(req dto.UpdateProposalRequest) service.ProposalPatch {
	return service.ProposalPatch{
		ProposalType: req.ProposalType,
		Service: service.ServicePatch{
			Title:       req.Title,
			Description: req.Description,
			Link:        req.Link,
			ImageURL:    req.ImageURL,
			CategoryID:  req.CategoryID,
			Price:       req.Price,
		},
		Category: catproposal.Patch{
			Kind:          req.Type,
			Name:          req.Name,
			Description:   req.Description,
			ParentID:      req.ParentID,
			Justification: req.Justification,
			Link:          req.Link,
		},
	}
}

func toCategoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:               req.Name,
		Description:        req.Description,
		ParentID:           req.ParentID,
		ClearParent:        req.ClearParent,
		DisplayOrder:       req.DisplayOrder,
		BackgroundImageURL: req.BackgroundImageURL,
		ShowInNav:          req.ShowInNav,
	}
}
