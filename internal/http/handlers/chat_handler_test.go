package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus226/backend/internal/http/middleware"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/repository"
	"github.com/nexus226/backend/internal/service"
	"github.com/nexus226/backend/internal/storage"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

type memoryMessages struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.ChatMessage
}

func (m *memoryMessages) Create(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.rows[msg.ID] = *msg
	return nil
}

func (m *memoryMessages) GetByID(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrChatMessageNotFound
	}
	return &msg, nil
}

func (m *memoryMessages) ListRecent(_ context.Context, categoryID uuid.UUID, _ int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ChatMessage{}
	for _, msg := range m.rows {
		if msg.CategoryID == categoryID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryMessages) UpdateText(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[msg.ID] = *msg
	return nil
}

func (m *memoryMessages) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type oneCategory uuid.UUID

func (c oneCategory) GetCategoryByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if id != uuid.UUID(c) {
		return nil, repository.ErrCategoryNotFound
	}
	return &models.Category{ID: id, Name: "Видео"}, nil
}

type noAdmins struct{}

func (noAdmins) IsAdmin(context.Context, uuid.UUID) (bool, error) { return false, nil }

type chatEnv struct {
	router     *gin.Engine
	store      *storage.LocalStore
	messages   *memoryMessages
	categoryID uuid.UUID
	userID     uuid.UUID
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &chatEnv{
		messages:   &memoryMessages{rows: map[uuid.UUID]models.ChatMessage{}},
		categoryID: uuid.New(),
		userID:     uuid.New(),
	}

	var err error
	env.store, err = storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	memStore, err := ratelimit.NewStore(nil, "chat-handler")
	require.NoError(t, err)
	cooldown := ratelimit.New(memStore, 1, time.Minute)

	chat := service.NewChatService(env.messages, oneCategory(env.categoryID), env.store, cooldown, noAdmins{}, service.ChatConfig{
		MaxImageBytes: 1024 * 1024,
		HistoryLimit:  50,
	})
	h := NewChatHandler(chat)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, env.userID)
		c.Next()
	})
	r.GET("/chat/:categoryId/messages", h.History)
	r.POST("/chat/:categoryId/messages", h.Send)
	r.DELETE("/chat/messages/:id", h.Delete)
	env.router = r
	return env
}

func TestChatHandler_SendMultipartImage(t *testing.T) {
	env := newChatEnv(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("message", "скриншот"))
	part, err := form.CreateFormFile("image", "shot.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/chat/"+env.categoryID.String()+"/messages", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Message models.ChatMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "скриншот", resp.Message.Message)
	require.NotNil(t, resp.Message.ImageURL)
	assert.True(t, strings.HasPrefix(*resp.Message.ImageURL, "/media/chat/"+env.categoryID.String()+"/"))
	assert.True(t, strings.HasSuffix(*resp.Message.ImageURL, ".png"))

	stored, err := os.ReadFile(filepath.Join(env.store.Root(), strings.TrimPrefix(*resp.Message.ImageURL, "/media/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestChatHandler_SendJSONThenCooldown(t *testing.T) {
	env := newChatEnv(t)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat/"+env.categoryID.String()+"/messages", strings.NewReader(`{"message":"привет"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestChatHandler_SendRejectsText(t *testing.T) {
	env := newChatEnv(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "notes.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("просто текст, а не картинка"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/chat/"+env.categoryID.String()+"/messages", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.messages.rows)
}

func TestChatHandler_HistoryUnknownCategory(t *testing.T) {
	env := newChatEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/"+uuid.NewString()+"/messages", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatHandler_DeleteForeignMessageForbidden(t *testing.T) {
	env := newChatEnv(t)
	foreign := &models.ChatMessage{CategoryID: env.categoryID, SenderID: uuid.New(), Message: "чужое"}
	require.NoError(t, env.messages.Create(context.Background(), foreign))

	req := httptest.NewRequest(http.MethodDelete, "/chat/messages/"+foreign.ID.String(), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
