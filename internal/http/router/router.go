package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/config"
	"github.com/nexus226/backend/internal/http/handlers"
	"github.com/nexus226/backend/internal/http/middleware"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/service"
)

// Handlers набор HTTP хэндлеров приложения.
type Handlers struct {
	Health   *handlers.HealthHandler
	Catalog  *handlers.CatalogHandler
	Proposal *handlers.ProposalHandler
	Admin    *handlers.AdminHandler
	Badge    *handlers.BadgeHandler
	Profile  *handlers.ProfileHandler
	Chat     *handlers.ChatHandler
	WS       *handlers.WSHandler
}

// Security проверки доступа, общие для маршрутов.
type Security struct {
	Tokens *service.TokenVerifier
	Authz  *service.Authorizer
	// IPLimiter ограничивает пишущие маршруты по IP. nil отключает лимит.
	IPLimiter *ratelimit.Limiter
}

func SetupRouter(cfg *config.Config, h Handlers, sec Security) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if strings.HasPrefix(cfg.MediaBaseURL, "/") {
		r.StaticFS(cfg.MediaBaseURL, gin.Dir(cfg.MediaStoragePath, false))
	}

	api := r.Group("/api")

	// Публичные маршруты
	api.GET("/categories", h.Catalog.ListCategories)
	api.GET("/categories/:id", middleware.UUIDValidator("id"), h.Catalog.GetCategory)
	api.GET("/services", h.Catalog.ListServices)
	api.GET("/services/:id", middleware.UUIDValidator("id"), h.Catalog.GetService)
	api.GET("/search", h.Catalog.Search)
	api.GET("/badges", h.Badge.ListCatalog)
	api.GET("/users/:id", middleware.UUIDValidator("id"), h.Profile.GetUserProfile)
	api.GET("/users/:id/badges", middleware.UUIDValidator("id"), h.Badge.ListForUser)
	api.GET("/chat/:categoryId/messages", middleware.UUIDValidator("categoryId"), h.Chat.History)
	api.GET("/chat/:categoryId/ws", middleware.UUIDValidator("categoryId"), h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(sec.Tokens))
	{
		protected.GET("/profile", h.Profile.GetMe)
		protected.PUT("/profile", h.Profile.UpdateMe)
		protected.GET("/proposals/my", h.Proposal.ListMine)
	}

	// Пишущие маршруты недоступны заблокированным пользователям.
	writes := api.Group("/")
	writes.Use(middleware.AuthMiddleware(sec.Tokens), middleware.RequireMember(sec.Authz))
	if sec.IPLimiter != nil {
		writes.Use(middleware.RateLimitMiddleware(sec.IPLimiter))
	}
	{
		writes.POST("/proposals/submit", h.Proposal.SubmitService)
		writes.POST("/proposals/category", h.Proposal.SubmitCategory)
		writes.POST("/chat/:categoryId/messages", middleware.UUIDValidator("categoryId"), h.Chat.Send)
		writes.PUT("/chat/messages/:id", middleware.UUIDValidator("id"), h.Chat.Edit)
		writes.DELETE("/chat/messages/:id", middleware.UUIDValidator("id"), h.Chat.Delete)
	}

	// Роль admin перечитывается из базы на каждый запрос.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(sec.Tokens), middleware.RequireAdmin(sec.Authz))
	{
		admin.GET("/proposals", h.Admin.ListProposals)
		admin.PATCH("/proposals/:id", middleware.UUIDValidator("id"), h.Admin.UpdateProposal)
		admin.POST("/proposals/:id/validate", middleware.UUIDValidator("id"), h.Admin.ValidateProposal)
		admin.DELETE("/proposals/:id", middleware.UUIDValidator("id"), h.Admin.RejectProposal)

		admin.PUT("/services/:id", middleware.UUIDValidator("id"), h.Admin.UpdateService)
		admin.DELETE("/services/:id", middleware.UUIDValidator("id"), h.Admin.DeleteService)

		admin.POST("/categories", h.Admin.CreateCategory)
		admin.PUT("/categories/:id", middleware.UUIDValidator("id"), h.Admin.UpdateCategory)
		admin.DELETE("/categories/:id", middleware.UUIDValidator("id"), h.Admin.DeleteCategory)

		admin.POST("/badges", h.Admin.GrantBadge)
		admin.DELETE("/badges", h.Admin.RevokeBadge)

		admin.PUT("/users/:id/role", middleware.UUIDValidator("id"), h.Admin.SetUserRole)
		admin.GET("/logs", h.Admin.ListLogs)
	}

	return r
}
