package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/validation"
)

// Заголовка такого размера достаточно filetype для определения формата.
const sniffHeaderSize = 262

type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	ListRecent(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.ChatMessage, error)
	UpdateText(ctx context.Context, msg *models.ChatMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore хранилище изображений чата.
type ObjectStore interface {
	// Put сохраняет объект и возвращает его публичный URL.
	Put(ctx context.Context, key, contentType string, r io.Reader, maxBytes int64) (string, error)
	// Delete удаляет объект по URL, полученному из Put.
	Delete(ctx context.Context, url string) error
}

type CooldownLimiter interface {
	Take(ctx context.Context, key string) (ratelimit.Status, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ImageUpload изображение, приложенное к сообщению.
type ImageUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// ChatConfig параметры чата.
type ChatConfig struct {
	MaxImageBytes int64
	HistoryLimit  int
}

type ChatService struct {
	messages   ChatRepository
	categories CategoryReader
	store      ObjectStore
	cooldown   CooldownLimiter
	admins     AdminChecker
	cfg        ChatConfig
}

func NewChatService(messages ChatRepository, categories CategoryReader, store ObjectStore, cooldown CooldownLimiter, admins AdminChecker, cfg ChatConfig) *ChatService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &ChatService{
		messages:   messages,
		categories: categories,
		store:      store,
		cooldown:   cooldown,
		admins:     admins,
		cfg:        cfg,
	}
}

// HistoryLimit размер окна истории и живого представления.
func (s *ChatService) HistoryLimit() int {
	return s.cfg.HistoryLimit
}

// History возвращает последние сообщения категории по возрастанию времени.
func (s *ChatService) History(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	if _, err := s.categories.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, translate(err)
	}
	messages, err := s.messages.ListRecent(ctx, categoryID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return messages, nil
}

// Send публикует сообщение. Изображение загружается до вставки строки
// и удаляется, если вставка не удалась.
func (s *ChatService) Send(ctx context.Context, senderID, categoryID uuid.UUID, text string, image *ImageUpload) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if err := validation.ValidateChatMessage(text, image != nil); err != nil {
		return nil, apperror.Validation("message", err.Error())
	}

	var contentType, ext string
	if image != nil {
		var err error
		contentType, ext, err = s.inspectImage(image)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.categories.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, translate(err)
	}

	status, err := s.cooldown.Take(ctx, "chat:"+senderID.String())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if status.Reached {
		return nil, apperror.RateLimited("слишком часто, подождите немного", status.ResetAt)
	}

	msg := &models.ChatMessage{
		CategoryID: categoryID,
		SenderID:   senderID,
		Message:    text,
	}

	if image != nil {
		key := fmt.Sprintf("chat/%s/%s.%s", categoryID, uuid.New(), ext)
		url, err := s.store.Put(ctx, key, contentType, image.Content, s.cfg.MaxImageBytes)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось загрузить изображение")
		}
		msg.ImageURL = &url
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		if msg.ImageURL != nil {
			s.removeImage(*msg.ImageURL)
		}
		return nil, translate(err)
	}
	return msg, nil
}

// Edit меняет текст сообщения. Доступно автору и администратору.
func (s *ChatService) Edit(ctx context.Context, userID, messageID uuid.UUID, text string) (*models.ChatMessage, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.checkOwnership(ctx, userID, msg); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if err := validation.ValidateChatMessage(text, msg.ImageURL != nil); err != nil {
		return nil, apperror.Validation("message", err.Error())
	}

	msg.Message = text
	if err := s.messages.UpdateText(ctx, msg); err != nil {
		return nil, translate(err)
	}
	return msg, nil
}

// Delete удаляет сообщение и его изображение. Доступно автору и администратору.
func (s *ChatService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return translate(err)
	}
	if err := s.checkOwnership(ctx, userID, msg); err != nil {
		return err
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return translate(err)
	}
	if msg.ImageURL != nil {
		s.removeImage(*msg.ImageURL)
	}
	return nil
}

func (s *ChatService) checkOwnership(ctx context.Context, userID uuid.UUID, msg *models.ChatMessage) error {
	if msg.SenderID == userID {
		return nil
	}
	isAdmin, err := s.admins.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperror.New(apperror.ErrCodeForbidden, "можно изменять только свои сообщения")
	}
	return nil
}

// inspectImage проверяет размер и реальный тип файла по магическим байтам.
func (s *ChatService) inspectImage(image *ImageUpload) (string, string, error) {
	if image.Size <= 0 {
		return "", "", apperror.Validation("image", "файл не может быть пустым")
	}
	if s.cfg.MaxImageBytes > 0 && image.Size > s.cfg.MaxImageBytes {
		return "", "", apperror.Validation("image", fmt.Sprintf("размер изображения превышает %d МБ", s.cfg.MaxImageBytes/(1024*1024)))
	}

	header := make([]byte, sniffHeaderSize)
	n, err := io.ReadFull(image.Content, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", apperror.Validation("image", "не удалось прочитать файл")
	}

	kind, err := filetype.Match(header[:n])
	if err != nil || kind == filetype.Unknown {
		return "", "", apperror.Validation("image", "не удалось определить тип файла")
	}
	ext, ok := models.AllowedChatImageTypes[kind.MIME.Value]
	if !ok {
		return "", "", apperror.Validation("image", "разрешены только jpeg, png, gif и webp")
	}

	if _, err := image.Content.Seek(0, io.SeekStart); err != nil {
		return "", "", apperror.Internal(err)
	}
	return kind.MIME.Value, ext, nil
}

// removeImage удаляет загруженный объект независимо от отмены запроса.
func (s *ChatService) removeImage(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.Delete(ctx, url); err != nil {
		logger.Log.WithField("image_url", url).WithError(err).Error("не удалось удалить изображение чата")
	}
}
