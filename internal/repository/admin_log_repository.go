package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository/common"
)

// AdminLogRepository журнал действий администраторов.
type AdminLogRepository struct {
	db *sqlx.DB
}

func NewAdminLogRepository(db *sqlx.DB) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// Append добавляет запись в журнал.
func (r *AdminLogRepository) Append(ctx context.Context, entry *models.AdminLog) error {
	details := entry.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, entry.AdminID, entry.Action, entry.TargetType, entry.TargetID, []byte(details),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("admin log repository: append %w", err)
	}
	entry.Details = details
	return nil
}

// List возвращает последние записи журнала.
func (r *AdminLogRepository) List(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	logs := make([]models.AdminLog, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &logs, `
		SELECT id, admin_id, action, target_type, target_id, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("admin log repository: list %w", err)
	}
	return logs, nil
}
