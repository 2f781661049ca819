// Package cache горячий кеш чтений с TTL и распределённой инвалидацией.
//
// Использование:
//
//	c, err := cache.NewMemoryCache(5 * time.Second)
//	data, err := c.Get("key")
//	c.Set("key", data, 0)
//	c.Delete("key")
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// ErrCacheMiss ключ отсутствует или истёк
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Metrics счётчики обращений к кешу
type Metrics struct {
	Hits        uint64  `json:"cache_hits"`
	Misses      uint64  `json:"cache_misses"`
	HitRatio    float64 `json:"hit_ratio"`
	KeysAdded   uint64  `json:"keys_added"`
	KeysEvicted uint64  `json:"keys_evicted"`
}

// Ёмкость в байтах значений. Таблица рекордов занимает единицы килобайт.
const (
	maxCostBytes = 8 << 20
	numCounters  = 10_000
)

// MemoryCache кеш в памяти процесса поверх ristretto. Стоимость записи
// равна длине значения, истёкшие ключи не отдаются.
type MemoryCache struct {
	store      *ristretto.Cache
	defaultTTL time.Duration
}

// NewMemoryCache создаёт кеш; defaultTTL <= 0 означает 30s
func NewMemoryCache(defaultTTL time.Duration) (*MemoryCache, error) {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &MemoryCache{store: store, defaultTTL: defaultTTL}, nil
}

// Get возвращает значение или ErrCacheMiss
func (c *MemoryCache) Get(key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set сохраняет значение; ttl <= 0 означает TTL по умолчанию.
// Запись видна следующему Get: буфер ristretto дожидается применения.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if c.store.SetWithTTL(key, value, int64(len(value)), ttl) {
		c.store.Wait()
	}
}

func (c *MemoryCache) Delete(key string) {
	c.store.Del(key)
}

// Close останавливает фоновые горутины ristretto.
func (c *MemoryCache) Close() {
	c.store.Close()
}

// GetMetrics возвращает метрики кеша.
func (c *MemoryCache) GetMetrics() Metrics {
	m := c.store.Metrics
	return Metrics{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		HitRatio:    m.Ratio(),
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
	}
}
