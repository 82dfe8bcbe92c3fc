package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/service"
)

// ProposalHandler принимает заявки пользователей.
type ProposalHandler struct {
	proposals *service.ProposalService
}

func NewProposalHandler(proposals *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// SubmitService POST /api/proposals/submit
func (h *ProposalHandler) SubmitService(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.SubmitServiceRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.proposals.SubmitService(c.Request.Context(), userID, service.SubmitServiceInput{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		CategoryID:  req.CategoryID,
		Message:     req.Message,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"service": svc})
}

// SubmitCategory POST /api/proposals/category
func (h *ProposalHandler) SubmitCategory(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.SubmitCategoryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	view, err := h.proposals.SubmitCategory(c.Request.Context(), userID, service.SubmitCategoryInput{
		Kind:          req.Type,
		Name:          req.Name,
		Description:   req.Description,
		ParentID:      req.ParentID,
		Justification: req.Justification,
		Link:          req.Link,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal": view})
}

// ListMine GET /api/proposals/my
func (h *ProposalHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	proposals, err := h.proposals.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
