package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/arena-core/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // ключ sorted set; записи лежат в хеше <Key>:entries
}

// RedisRepository таблица рекордов в sorted set Redis
type RedisRepository struct {
	client     *redis.Client
	key        string
	entriesKey string
}

// NewRedisRepository подключается к Redis и проверяет соединение
func NewRedisRepository(ctx context.Context, cfg RedisConfig) (*RedisRepository, error) {
	if cfg.Key == "" {
		cfg.Key = "arena:leaderboard"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLeaderboardLogger().Info("🔴 Таблица рекордов в Redis %s (ключ %s)", cfg.Addr, cfg.Key)
	return &RedisRepository{
		client:     client,
		key:        cfg.Key,
		entriesKey: cfg.Key + ":entries",
	}, nil
}

// Submit записывает запись и её очки одной транзакцией
func (r *RedisRepository) Submit(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.entriesKey, e.ID, data)
	pipe.ZAdd(ctx, r.key, &redis.Z{Score: e.Score, Member: e.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis submit %s: %w", e.ID, err)
	}
	return nil
}

// Top читает лучшие записи через ZREVRANGE + HMGET.
// При равных очках порядок задаёт Redis (лексикографически по id).
func (r *RedisRepository) Top(ctx context.Context, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	ids, err := r.client.ZRevRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis top: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := r.client.HMGet(ctx, r.entriesKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis entries: %w", err)
	}
	out := make([]Entry, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// запись удалена в обход таблицы: пропускаем
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
