package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/service"
)

type BadgeHandler struct {
	badges *service.BadgeService
}

func NewBadgeHandler(badges *service.BadgeService) *BadgeHandler {
	return &BadgeHandler{badges: badges}
}

// ListCatalog GET /api/badges
func (h *BadgeHandler) ListCatalog(c *gin.Context) {
	badges, err := h.badges.ListCatalog(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

// ListForUser GET /api/users/:id/badges
func (h *BadgeHandler) ListForUser(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	badges, err := h.badges.ListForUser(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}
