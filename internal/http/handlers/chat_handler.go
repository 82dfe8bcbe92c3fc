package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/dto"
	"github.com/nexus226/backend/internal/http/handlers/common"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/service"
)

// ChatHandler REST часть чатов категорий. Живые обновления идут через WSHandler.
type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// History GET /api/chat/:categoryId/messages?limit=
func (h *ChatHandler) History(c *gin.Context) {
	categoryID, err := common.ParseUUIDParam(c, "categoryId")
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit := common.ParseIntQuery(c, "limit", h.chat.HistoryLimit())
	messages, err := h.chat.History(c.Request.Context(), categoryID, limit)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Send POST /api/chat/:categoryId/messages
// Принимает multipart (message + image) или JSON {message}.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	categoryID, err := common.ParseUUIDParam(c, "categoryId")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var (
		text  string
		image *service.ImageUpload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text = c.PostForm("message")
		if header, ferr := c.FormFile("image"); ferr == nil {
			file, oerr := header.Open()
			if oerr != nil {
				common.Fail(c, apperror.Wrap(oerr, apperror.ErrCodeValidation, "не удалось прочитать файл"))
				return
			}
			defer file.Close()
			image = &service.ImageUpload{Filename: header.Filename, Size: header.Size, Content: file}
		} else if ferr != http.ErrMissingFile {
			common.Fail(c, apperror.Wrap(ferr, apperror.ErrCodeValidation, "некорректная форма"))
			return
		}
	} else {
		var req dto.ChatMessageRequest
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
		text = req.Message
	}

	msg, err := h.chat.Send(c.Request.Context(), userID, categoryID, text, image)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Edit PUT /api/chat/messages/:id
func (h *ChatHandler) Edit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	messageID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.ChatMessageRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	msg, err := h.chat.Edit(c.Request.Context(), userID, messageID, req.Message)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Delete DELETE /api/chat/messages/:id
func (h *ChatHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	messageID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.chat.Delete(c.Request.Context(), userID, messageID); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
