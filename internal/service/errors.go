package service

import (
	"context"
	"errors"

	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/repository"
)

// Transactor выполняет функцию в одной транзакции БД.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var repoErrors = []struct {
	sentinel error
	code     apperror.ErrorCode
	message  string
}{
	{repository.ErrCategoryNotFound, apperror.ErrCodeNotFound, "категория не найдена"},
	{repository.ErrServiceNotFound, apperror.ErrCodeNotFound, "сервис не найден"},
	{repository.ErrProposalNotFound, apperror.ErrCodeNotFound, "заявка не найдена"},
	{repository.ErrChatMessageNotFound, apperror.ErrCodeNotFound, "сообщение не найдено"},
	{repository.ErrBadgeNotFound, apperror.ErrCodeNotFound, "награда не найдена"},
	{repository.ErrUserBadgeNotFound, apperror.ErrCodeNotFound, "у пользователя нет этой награды"},
	{repository.ErrBadgeRecipientAbsent, apperror.ErrCodeNotFound, "пользователь или награда не найдены"},
	{repository.ErrUserNotFound, apperror.ErrCodeNotFound, "пользователь не найден"},
	{repository.ErrBadgeAlreadyGranted, apperror.ErrCodeDuplicate, "награда уже выдана"},
	{repository.ErrUsernameTaken, apperror.ErrCodeDuplicate, "имя пользователя занято"},
}

// translate переводит ошибки репозиториев в ошибки API.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	for _, m := range repoErrors {
		if errors.Is(err, m.sentinel) {
			return apperror.Wrap(err, m.code, m.message)
		}
	}
	return apperror.Internal(err)
}
