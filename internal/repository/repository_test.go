package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository/common"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var categoryRowColumns = []string{
	"id", "name", "description", "parent_id", "display_order",
	"background_image_url", "show_in_nav", "source_proposal_id", "created_at",
}

func TestCatalogRepository_CreateCategoryFromProposal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	proposalID := uuid.New()
	categoryID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories")).
		WithArgs("Музыка", nil, nil, 0, nil, true, proposalID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(categoryID.String(), now))

	category := &models.Category{Name: "Музыка", ShowInNav: true, SourceProposalID: &proposalID}
	created, err := repo.CreateCategory(context.Background(), category)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, categoryID, category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_CreateCategoryConflictReturnsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	proposalID := uuid.New()
	existingID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (source_proposal_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE source_proposal_id = $1")).
		WithArgs(proposalID).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(existingID.String(), "Музыка", nil, nil, 0, nil, true, proposalID.String(), time.Now()))

	category := &models.Category{Name: "Музыка", ShowInNav: true, SourceProposalID: &proposalID}
	created, err := repo.CreateCategory(context.Background(), category)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existingID, category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetCategoryNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCategoryByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestBadgeRepository_GrantDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBadgeRepository(db)

	userID, badgeID, adminID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_badges")).
		WithArgs(userID, badgeID, adminID).
		WillReturnRows(sqlmock.NewRows([]string{"granted_at"}).AddRow(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_badges")).
		WithArgs(userID, badgeID, adminID).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_badges_pkey"})

	grant := &models.UserBadge{UserID: userID, BadgeID: badgeID, GrantedBy: &adminID}
	require.NoError(t, repo.Grant(context.Background(), grant))
	assert.False(t, grant.GrantedAt.IsZero())

	err := repo.Grant(context.Background(), &models.UserBadge{UserID: userID, BadgeID: badgeID, GrantedBy: &adminID})
	assert.ErrorIs(t, err, ErrBadgeAlreadyGranted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBadgeRepository_RevokeMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBadgeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_badges")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Revoke(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrUserBadgeNotFound)
}

func TestBadgeRepository_UpsertCatalog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBadgeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO badges (slug, name, description, icon, tier) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10) ON CONFLICT (slug) DO UPDATE")).
		WithArgs("pioneer", "Pioneer", "d1", "rocket", 1, "curator", "Curator", "d2", "star", 3).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpsertCatalog(context.Background(), []models.Badge{
		{Slug: "pioneer", Name: "Pioneer", Description: "d1", Icon: "rocket", Tier: 1},
		{Slug: "curator", Name: "Curator", Description: "d2", Icon: "star", Tier: 3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_SearchEscapesPattern(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active' AND (title ILIKE $1 OR description ILIKE $1)")).
		WithArgs(`%50\%%`, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	services, err := repo.Search(context.Background(), "50%", 50)
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_UpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE services")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &models.Service{ID: uuid.New(), Status: models.ServiceStatusActive})
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestChatRepository_ListRecentAscending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	categoryID := uuid.New()
	sender := uuid.New()
	first, second := uuid.New(), uuid.New()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs(categoryID, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "sender_id", "message", "image_url", "edited_at", "created_at"}).
			AddRow(first.String(), categoryID.String(), sender.String(), "привет", nil, nil, t0).
			AddRow(second.String(), categoryID.String(), sender.String(), "как дела", nil, nil, t0.Add(time.Minute)))

	messages, err := repo.ListRecent(context.Background(), categoryID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first, messages[0].ID)
	assert.Equal(t, second, messages[1].ID)
}

func TestProposalRepository_GetForUpdateInsideTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProposalRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM service_proposals WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_id", "user_id", "message", "status", "created_at", "updated_at"}).
			AddRow(id.String(), nil, uuid.New().String(), "текст", models.ProposalStatusPending, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_proposals SET status = $2")).
		WithArgs(id, models.ProposalStatusAccepted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := common.WithTransaction(context.Background(), db, func(ctx context.Context) error {
		p, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return repo.SetStatus(ctx, p.ID, models.ProposalStatusAccepted)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(models.RoleAdmin))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	role, err := repo.GetRole(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = repo.GetRole(context.Background(), id)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminLogRepository_AppendDefaultsDetails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminLogRepository(db)
	adminID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO admin_logs")).
		WithArgs(adminID, models.AdminActionValidateService, "service", nil, []byte("{}")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New().String(), time.Now()))

	entry := &models.AdminLog{AdminID: adminID, Action: models.AdminActionValidateService, TargetType: "service"}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.JSONEq(t, "{}", string(entry.Details))
}
