// Package leaderboard внешнее хранение рекордов. Отправка асинхронная
// и никогда не блокирует шаг симуляции.
package leaderboard

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/annel0/arena-core/internal/game"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrClosed = errors.New("leaderboard closed")

// Entry запись таблицы рекордов
type Entry struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Character    string    `json:"character"`
	Wave         int       `json:"wave"`
	Level        int       `json:"level"`
	Kills        int       `json:"kills"`
	BossKills    int       `json:"boss_kills"`
	Gold         float64   `json:"gold"`
	TimeSurvived float64   `json:"time_survived"`
	Score        float64   `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository хранилище рекордов
type Repository interface {
	Submit(ctx context.Context, e Entry) error
	// Top возвращает лучшие записи по убыванию очков
	Top(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Score очки забега: волна важнее убийств, убийства важнее времени
func Score(wave, kills int, survived float64) float64 {
	return float64(wave)*1000 + float64(kills)*10 + math.Floor(math.Max(0, survived))
}

// FromSummary строит запись из итога забега
func FromSummary(s game.RunSummary) Entry {
	created := s.EndedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return Entry{
		ID:           uuid.NewString(),
		RunID:        s.RunID,
		Character:    s.Character,
		Wave:         s.Wave,
		Level:        s.Level,
		Kills:        s.Kills,
		BossKills:    s.BossKills,
		Gold:         s.Gold,
		TimeSurvived: s.TimeSurvived,
		Score:        Score(s.Wave, s.Kills, s.TimeSurvived),
		CreatedAt:    created,
	}
}

// NormalizeLimit приводит limit к [1, MaxLimit]; 0 и меньше дают DefaultLimit
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// ranksBefore порядок таблицы: больше очков выше, при равенстве раньше созданная
func ranksBefore(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
