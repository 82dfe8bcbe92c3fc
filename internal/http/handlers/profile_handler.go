package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/service"
)

// ProfileHandler отвечает за работу с профилем.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler создаёт экземпляр.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetMe возвращает профиль текущего пользователя.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe PUT /api/profile
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), userID, service.UpdateProfileInput{
		Username:    req.Username,
		Title:       req.Title,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		WebsiteURL:  req.WebsiteURL,
		TwitterURL:  req.TwitterURL,
		GithubURL:   req.GithubURL,
		LinkedinURL: req.LinkedinURL,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetUserProfile GET /api/users/:id
func (h *ProfileHandler) GetUserProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
