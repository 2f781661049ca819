package leaderboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/arena-core/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/annel0/arena-core/internal/leaderboard"

// Submitter асинхронно пишет записи в репозиторий.
// Submit не блокирует: при переполненной очереди запись отбрасывается.
type Submitter struct {
	repo    Repository
	queue   chan Entry
	timeout time.Duration
	log     *logging.Logger
	tracer  trace.Tracer

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	stored  atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewSubmitter запускает фоновую запись; queue <= 0 означает 64
func NewSubmitter(repo Repository, queue int) *Submitter {
	if queue <= 0 {
		queue = 64
	}
	s := &Submitter{
		repo:    repo,
		queue:   make(chan Entry, queue),
		timeout: 5 * time.Second,
		log:     logging.GetLeaderboardLogger(),
		tracer:  otel.Tracer(tracerName),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit ставит запись в очередь. Возвращает false, если запись отброшена.
func (s *Submitter) Submit(e Entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.queue <- e:
		return true
	default:
		s.dropped.Add(1)
		s.log.Warn("Очередь рекордов переполнена, запись забега %s отброшена", e.RunID)
		return false
	}
}

func (s *Submitter) run() {
	defer close(s.done)
	for e := range s.queue {
		s.write(e)
	}
}

func (s *Submitter) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "leaderboard.submit", trace.WithAttributes(
		attribute.String("arena.run_id", e.RunID),
		attribute.Int("arena.wave", e.Wave),
		attribute.Float64("arena.score", e.Score),
	))
	defer span.End()

	if err := s.repo.Submit(ctx, e); err != nil {
		s.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Не удалось сохранить рекорд забега %s: %v", e.RunID, err)
		return
	}
	s.stored.Add(1)
	s.log.Debug("Рекорд забега %s сохранён: волна %d, очки %.0f", e.RunID, e.Wave, e.Score)
}

// Close прекращает приём и дожидается записи очереди или отмены ctx
func (s *Submitter) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submitter) Stored() uint64  { return s.stored.Load() }
func (s *Submitter) Failed() uint64  { return s.failed.Load() }
func (s *Submitter) Dropped() uint64 { return s.dropped.Load() }
