// Package ratelimit оборачивает ulule/limiter для лимитов по ключу.
// Счётчики живут в Redis, если он настроен, иначе в памяти процесса.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Status состояние лимита для ключа.
type Status struct {
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	Reached   bool
}

// Limiter считает события по ключу в скользящем окне фиксированной длины.
type Limiter struct {
	inner *limiter.Limiter
}

// NewStore выбирает хранилище счётчиков. При client == nil используется память процесса.
func NewStore(client *redis.Client, prefix string) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}

	store, err := sredis.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return store, nil
}

// New создаёт лимитер на limit событий за period.
func New(store limiter.Store, limit int64, period time.Duration) *Limiter {
	return &Limiter{
		inner: limiter.New(store, limiter.Rate{Period: period, Limit: limit}),
	}
}

// Take атомарно занимает слот и сообщает, превышен ли лимит.
// Занятый слот считается и тогда, когда лимит превышен.
func (l *Limiter) Take(ctx context.Context, key string) (Status, error) {
	lctx, err := l.inner.Get(ctx, key)
	if err != nil {
		return Status{}, fmt.Errorf("ratelimit: take %s: %w", key, err)
	}
	return toStatus(lctx), nil
}

// Release возвращает слот, занятый Take, если событие не состоялось.
func (l *Limiter) Release(ctx context.Context, key string) error {
	if _, err := l.inner.Increment(ctx, key, -1); err != nil {
		return fmt.Errorf("ratelimit: release %s: %w", key, err)
	}
	return nil
}

func toStatus(lctx limiter.Context) Status {
	return Status{
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		ResetAt:   time.Unix(lctx.Reset, 0),
		Reached:   lctx.Reached,
	}
}
