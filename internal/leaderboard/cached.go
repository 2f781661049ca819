package leaderboard

import (
	"context"
	"encoding/json"

	"github.com/annel0/arena-core/internal/cache"
	"github.com/annel0/arena-core/internal/logging"
)

const topCacheKey = "leaderboard:top"

// Invalidator рассылает инвалидации кеша другим узлам
type Invalidator interface {
	Publish(key string) error
}

// CachedRepository кеширует Top поверх любого репозитория.
// В кеше лежит одна выборка из MaxLimit записей, меньшие лимиты режутся из неё.
// Submit сбрасывает кеш локально и, если задан inv, на других узлах.
type CachedRepository struct {
	Repository
	cache *cache.MemoryCache
	inv   Invalidator
	log   *logging.Logger
}

// NewCachedRepository оборачивает repo; inv может быть nil
func NewCachedRepository(repo Repository, c *cache.MemoryCache, inv Invalidator) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: c, inv: inv, log: logging.GetLeaderboardLogger()}
}

func (r *CachedRepository) Submit(ctx context.Context, e Entry) error {
	if err := r.Repository.Submit(ctx, e); err != nil {
		return err
	}
	r.Invalidate()
	if r.inv != nil {
		if err := r.inv.Publish(topCacheKey); err != nil {
			r.log.Warn("Инвалидация кеша рекордов не разослана: %v", err)
		}
	}
	return nil
}

func (r *CachedRepository) Top(ctx context.Context, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	if raw, err := r.cache.Get(topCacheKey); err == nil {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return head(entries, limit), nil
		}
	}

	entries, err := r.Repository.Top(ctx, MaxLimit)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(entries); err == nil {
		r.cache.Set(topCacheKey, raw, 0)
	}
	return head(entries, limit), nil
}

// Invalidate сбрасывает локальную копию
func (r *CachedRepository) Invalidate() {
	r.cache.Delete(topCacheKey)
}

// OnInvalidation обработчик уведомлений других узлов
func (r *CachedRepository) OnInvalidation(key string) {
	if key == topCacheKey {
		r.Invalidate()
	}
}

func head(entries []Entry, n int) []Entry {
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
