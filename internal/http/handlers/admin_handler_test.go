package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nexus226/backend/internal/http/middleware"
)

func TestAdminHandler_RequiresAdminInContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handler := &AdminHandler{}
	r.POST("/admin/proposals/:id/validate", handler.ValidateProposal)

	req := httptest.NewRequest(http.MethodPost, "/admin/proposals/"+uuid.NewString()+"/validate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProposalHandler_SubmitService_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handler := &ProposalHandler{}
	r.POST("/proposals/submit", handler.SubmitService)

	req := httptest.NewRequest(http.MethodPost, "/proposals/submit", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProposalHandler_SubmitService_BadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
	})
	handler := &ProposalHandler{}
	r.POST("/proposals/submit", handler.SubmitService)

	req := httptest.NewRequest(http.MethodPost, "/proposals/submit", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandler_GetService_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handler := &CatalogHandler{}
	r.GET("/services/:id", handler.GetService)

	req := httptest.NewRequest(http.MethodGet, "/services/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
