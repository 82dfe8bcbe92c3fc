package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository/common"
)

var ErrChatMessageNotFound = errors.New("chat message not found")

const chatColumns = `id, category_id, sender_id, message, image_url, edited_at, created_at`

// ChatRepository работает с таблицей chat_messages.
type ChatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create сохраняет сообщение.
func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO chat_messages (category_id, sender_id, message, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, msg.CategoryID, msg.SenderID, msg.Message, msg.ImageURL,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("chat repository: create %w", err)
	}
	return nil
}

// GetByID возвращает сообщение по ID.
func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &msg,
		`SELECT `+chatColumns+` FROM chat_messages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatMessageNotFound
		}
		return nil, fmt.Errorf("chat repository: get by id %w", err)
	}
	return &msg, nil
}

// ListRecent возвращает последние limit сообщений категории по возрастанию времени.
func (r *ChatRepository) ListRecent(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	messages := make([]models.ChatMessage, 0, limit)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &messages, `
		SELECT `+chatColumns+` FROM (
			SELECT `+chatColumns+`
			FROM chat_messages
			WHERE category_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat repository: list recent %w", err)
	}
	return messages, nil
}

// UpdateText меняет текст сообщения и отмечает время правки.
func (r *ChatRepository) UpdateText(ctx context.Context, msg *models.ChatMessage) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE chat_messages SET message = $2, edited_at = NOW()
		WHERE id = $1
		RETURNING edited_at
	`, msg.ID, msg.Message).Scan(&msg.EditedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrChatMessageNotFound
		}
		return fmt.Errorf("chat repository: update text %w", err)
	}
	return nil
}

// Delete удаляет сообщение.
func (r *ChatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM chat_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chat repository: delete %w", err)
	}
	return expectAffected(res, ErrChatMessageNotFound)
}
