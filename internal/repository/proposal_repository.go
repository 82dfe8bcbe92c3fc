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

var ErrProposalNotFound = errors.New("proposal not found")

const proposalColumns = `id, service_id, user_id, message, status, created_at, updated_at`

// ProposalRepository работает с таблицей service_proposals.
type ProposalRepository struct {
	db *sqlx.DB
}

func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create создаёт заявку.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.ServiceProposal) error {
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO service_proposals (service_id, user_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, proposal.ServiceID, proposal.UserID, proposal.Message, proposal.Status,
	).Scan(&proposal.ID, &proposal.CreatedAt, &proposal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("proposal repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заявку по ID.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProposal, error) {
	return r.get(ctx, `SELECT `+proposalColumns+` FROM service_proposals WHERE id = $1`, id)
}

// GetForUpdate блокирует строку заявки до конца транзакции.
func (r *ProposalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.ServiceProposal, error) {
	return r.get(ctx, `SELECT `+proposalColumns+` FROM service_proposals WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProposalRepository) get(ctx context.Context, query string, id uuid.UUID) (*models.ServiceProposal, error) {
	var proposal models.ServiceProposal
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &proposal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get %w", err)
	}
	return &proposal, nil
}

// List возвращает заявки с указанным статусом, пустой статус означает все.
func (r *ProposalRepository) List(ctx context.Context, status string, limit, offset int) ([]models.ServiceProposal, error) {
	proposals := make([]models.ServiceProposal, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &proposals, `
		SELECT `+proposalColumns+`
		FROM service_proposals
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list %w", err)
	}
	return proposals, nil
}

// ListByUser возвращает заявки пользователя.
func (r *ProposalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ServiceProposal, error) {
	proposals := make([]models.ServiceProposal, 0)
	err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &proposals, `
		SELECT `+proposalColumns+`
		FROM service_proposals WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list by user %w", err)
	}
	return proposals, nil
}

// UpdateMessage перезаписывает текст заявки.
func (r *ProposalRepository) UpdateMessage(ctx context.Context, id uuid.UUID, message string) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE service_proposals SET message = $2, updated_at = NOW() WHERE id = $1
	`, id, message)
	if err != nil {
		return fmt.Errorf("proposal repository: update message %w", err)
	}
	return expectAffected(res, ErrProposalNotFound)
}

// SetStatus меняет статус заявки.
func (r *ProposalRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE service_proposals SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("proposal repository: set status %w", err)
	}
	return expectAffected(res, ErrProposalNotFound)
}

// AcceptForService помечает принятыми все ожидающие заявки сервиса.
func (r *ProposalRepository) AcceptForService(ctx context.Context, serviceID uuid.UUID) error {
	_, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE service_proposals SET status = 'accepted', updated_at = NOW()
		WHERE service_id = $1 AND status = 'pending'
	`, serviceID)
	if err != nil {
		return fmt.Errorf("proposal repository: accept for service %w", err)
	}
	return nil
}

// Delete удаляет заявку.
func (r *ProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := common.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM service_proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("proposal repository: delete %w", err)
	}
	return expectAffected(res, ErrProposalNotFound)
}
