package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/annel0/arena-core/internal/cache"
	"github.com/annel0/arena-core/internal/game"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(id string, score float64, at int) Entry {
	return Entry{ID: id, RunID: "run-" + id, Score: score, CreatedAt: epoch.Add(time.Duration(at) * time.Second)}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

// checkRanking общий сценарий для всех реализаций
func checkRanking(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Submit(ctx, entry("b", 2000, 2)))
	require.NoError(t, repo.Submit(ctx, entry("a", 3000, 5)))
	require.NoError(t, repo.Submit(ctx, entry("c", 2000, 1)))
	require.NoError(t, repo.Submit(ctx, entry("d", 10, 0)))

	top, err := repo.Top(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(top), "при равных очках выше более ранняя запись")
	assert.Equal(t, "run-a", top[0].RunID)
}

func TestScoreOrdering(t *testing.T) {
	assert.Greater(t, Score(5, 0, 0), Score(4, 99, 999), "волна важнее убийств и времени")
	assert.Greater(t, Score(4, 10, 0), Score(4, 9, 9))
	assert.Equal(t, 2123.0, Score(2, 12, 3.9))
}

func TestFromSummary(t *testing.T) {
	s := game.RunSummary{RunID: "r1", Character: "DEFAULT", Wave: 4, Kills: 30, TimeSurvived: 95.5, EndedAt: epoch}
	e := FromSummary(s)

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", e.RunID)
	assert.Equal(t, Score(4, 30, 95.5), e.Score)
	assert.Equal(t, epoch, e.CreatedAt)

	assert.False(t, FromSummary(game.RunSummary{}).CreatedAt.IsZero())
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(10_000))
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository(0)
	checkRanking(t, repo)

	t.Run("capacity", func(t *testing.T) {
		small := NewMemoryRepository(2)
		ctx := context.Background()
		for i, score := range []float64{1, 5, 3} {
			require.NoError(t, small.Submit(ctx, entry(string(rune('x'+i)), score, i)))
		}
		top, err := small.Top(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "z"}, ids(top))
	})

	t.Run("closed", func(t *testing.T) {
		require.NoError(t, repo.Close())
		assert.ErrorIs(t, repo.Submit(context.Background(), entry("e", 1, 0)), ErrClosed)
	})
}

func TestBadgerRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewBadgerRepository(dir)
	require.NoError(t, err)
	checkRanking(t, repo)
	require.NoError(t, repo.Close())

	// данные переживают переоткрытие
	reopened, err := NewBadgerRepository(dir)
	require.NoError(t, err)
	defer reopened.Close()

	top, err := reopened.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(top))
}

func TestRedisRepository(t *testing.T) {
	ctx := context.Background()
	key := "arena:test:" + uuid.NewString()
	repo, err := NewRedisRepository(ctx, RedisConfig{Addr: "localhost:6379", Key: key})
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	defer func() {
		repo.client.Del(ctx, key, key+":entries")
		repo.Close()
	}()

	require.NoError(t, repo.Submit(ctx, entry("a", 3000, 0)))
	require.NoError(t, repo.Submit(ctx, entry("b", 2000, 0)))
	require.NoError(t, repo.Submit(ctx, entry("d", 10, 0)))

	top, err := repo.Top(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(top))

	score, err := repo.client.ZScore(ctx, key, "a").Result()
	require.NoError(t, err)
	assert.Equal(t, 3000.0, score)
	_, err = repo.client.ZScore(ctx, key, "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

// blockingRepo держит Submit до сигнала release
type blockingRepo struct {
	*MemoryRepository
	release chan struct{}
	fail    error
}

func (b *blockingRepo) Submit(ctx context.Context, e Entry) error {
	<-b.release
	if b.fail != nil {
		return b.fail
	}
	return b.MemoryRepository.Submit(ctx, e)
}

func TestSubmitter_NeverBlocks(t *testing.T) {
	repo := &blockingRepo{MemoryRepository: NewMemoryRepository(0), release: make(chan struct{})}
	s := NewSubmitter(repo, 2)

	accepted := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if s.Submit(entry(string(rune('a'+i)), float64(i), i)) {
				accepted++
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit заблокировался на занятом репозитории")
	}
	// одна запись в работе у воркера (или ещё в очереди), остальные сверх ёмкости отброшены
	assert.LessOrEqual(t, accepted, 3)
	assert.Equal(t, uint64(10-accepted), s.Dropped())

	close(repo.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, uint64(accepted), s.Stored())

	top, err := repo.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, top, accepted)

	assert.False(t, s.Submit(entry("late", 1, 0)), "после Close запись отбрасывается")
}

func TestSubmitter_CountsFailures(t *testing.T) {
	repo := &blockingRepo{MemoryRepository: NewMemoryRepository(0), release: make(chan struct{}), fail: errors.New("boom")}
	close(repo.release)
	s := NewSubmitter(repo, 4)

	require.True(t, s.Submit(entry("a", 1, 0)))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, uint64(1), s.Failed())
	assert.Zero(t, s.Stored())
}

// countingRepo считает обращения к Top
type countingRepo struct {
	*MemoryRepository
	tops int
}

func (c *countingRepo) Top(ctx context.Context, limit int) ([]Entry, error) {
	c.tops++
	return c.MemoryRepository.Top(ctx, limit)
}

type recordingInvalidator struct{ keys []string }

func (r *recordingInvalidator) Publish(key string) error {
	r.keys = append(r.keys, key)
	return nil
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{MemoryRepository: NewMemoryRepository(0)}
	inv := &recordingInvalidator{}
	hot, err := cache.NewMemoryCache(time.Minute)
	require.NoError(t, err)
	defer hot.Close()
	repo := NewCachedRepository(inner, hot, inv)

	require.NoError(t, repo.Submit(ctx, entry("a", 10, 0)))
	require.NoError(t, repo.Submit(ctx, entry("b", 20, 0)))
	assert.Len(t, inv.keys, 2)

	top, err := repo.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(top))
	top, err = repo.Top(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(top))
	assert.Equal(t, 1, inner.tops, "второй запрос обслужен из кеша")

	require.NoError(t, repo.Submit(ctx, entry("c", 30, 0)))
	top, err = repo.Top(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(top))
	assert.Equal(t, 2, inner.tops)

	repo.OnInvalidation("other")
	_, _ = repo.Top(ctx, 0)
	assert.Equal(t, 2, inner.tops)
	repo.OnInvalidation(topCacheKey)
	_, _ = repo.Top(ctx, 0)
	assert.Equal(t, 3, inner.tops)
}
