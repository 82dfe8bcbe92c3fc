package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/service"
	"github.com/nexus226/backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений чата категории.
type WSHandler struct {
	hub      *ws.Hub
	tokens   *service.TokenVerifier
	catalog  *service.CatalogService
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой origin.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenVerifier, catalog *service.CatalogService, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		hub:     hub,
		tokens:  tokens,
		catalog: catalog,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/chat/:categoryId/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	categoryID, err := common.ParseUUIDParam(c, "categoryId")
	if err != nil {
		common.Fail(c, err)
		return
	}

	rawToken := c.Query("token")
	if rawToken == "" {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}
	userID, err := h.tokens.ParseAccess(rawToken)
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "невалидный access токен"))
		return
	}

	if _, err := h.catalog.GetCategory(c.Request.Context(), categoryID); err != nil {
		common.Fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		logger.Log.WithError(err).Debug("ws: upgrade не удался")
		return
	}

	ws.NewClient(conn, h.hub, categoryID, userID).Run(c.Request.Context())
}
