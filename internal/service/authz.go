package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/repository"
)

type RoleReader interface {
	GetRole(ctx context.Context, id uuid.UUID) (string, error)
}

// AuthorizedAdmin подтверждение, что роль admin проверена в текущем запросе.
// Создаётся только через Authorizer.RequireAdmin.
type AuthorizedAdmin struct {
	userID uuid.UUID
}

func (a AuthorizedAdmin) UserID() uuid.UUID {
	return a.userID
}

// Authorizer читает роль из базы на каждый вызов, без кэша.
type Authorizer struct {
	roles RoleReader
}

func NewAuthorizer(roles RoleReader) *Authorizer {
	return &Authorizer{roles: roles}
}

func (a *Authorizer) role(ctx context.Context, userID uuid.UUID) (string, error) {
	role, err := a.roles.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", apperror.Wrap(err, apperror.ErrCodeForbidden, "профиль не найден")
		}
		return "", apperror.Internal(err)
	}
	return role, nil
}

// RequireAdmin пропускает только пользователей с ролью admin.
func (a *Authorizer) RequireAdmin(ctx context.Context, userID uuid.UUID) (AuthorizedAdmin, error) {
	role, err := a.role(ctx, userID)
	if err != nil {
		return AuthorizedAdmin{}, err
	}
	if role != models.RoleAdmin {
		return AuthorizedAdmin{}, apperror.ErrAdminOnly
	}
	return AuthorizedAdmin{userID: userID}, nil
}

// RequireMember отклоняет заблокированных пользователей.
func (a *Authorizer) RequireMember(ctx context.Context, userID uuid.UUID) error {
	role, err := a.role(ctx, userID)
	if err != nil {
		return err
	}
	if role == models.RoleBanned {
		return apperror.ErrBanned
	}
	return nil
}

// IsAdmin сообщает, является ли пользователь администратором.
func (a *Authorizer) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	role, err := a.role(ctx, userID)
	if err != nil {
		if apperror.IsForbidden(err) {
			return false, nil
		}
		return false, err
	}
	return role == models.RoleAdmin, nil
}
