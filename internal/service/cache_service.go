package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Ключи кэша
const (
	CategoryTreeCacheKey = "categories:tree"
	categoryCachePrefix  = "categories:"
)

// CacheService хранит значения в памяти процесса с TTL.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	// generation растёт при каждой инвалидации.
	generation uint64
	stop       context.CancelFunc
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт кэш и запускает очистку просроченных записей до отмены ctx.
func NewCacheService(ctx context.Context, cleanupEvery time.Duration) *CacheService {
	ctx, cancel := context.WithCancel(ctx)
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		stop:  cancel,
	}

	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	go cs.cleanup(ctx, cleanupEvery)

	return cs
}

// Close останавливает фоновую очистку.
func (cs *CacheService) Close() {
	cs.stop()
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.generation++
	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// InvalidateCategories сбрасывает всё, что построено из таблицы категорий.
func (cs *CacheService) InvalidateCategories() {
	cs.InvalidateByPrefix(categoryCachePrefix)
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
// Значение, вычисленное до инвалидации, случившейся во время fn, не сохраняется.
func (cs *CacheService) GetOrSet(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	cs.mu.RLock()
	entry, exists := cs.cache[key]
	generation := cs.generation
	cs.mu.RUnlock()
	if exists && time.Now().Before(entry.expiresAt) {
		return entry.data, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.generation == generation {
		cs.cache[key] = &cacheEntry{data: value, expiresAt: time.Now().Add(ttl)}
	}
	return value, nil
}

func (cs *CacheService) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := time.Now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}
