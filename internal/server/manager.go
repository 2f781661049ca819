package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/game"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/annel0/arena-core/internal/world/entity"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrUnknownRun     = errors.New("unknown run")
	ErrManagerClosed  = errors.New("session manager closed")
	ErrTooManySession = errors.New("too many active runs")
)

// ManagerOptions параметры сессий
type ManagerOptions struct {
	Tables         *config.Tables
	Game           config.GameConfig
	TicksPerSecond int           // по умолчанию 60
	SnapshotEvery  int           // снимок каждые N тиков, по умолчанию 2
	IdleTimeout    time.Duration // 0 означает, что сессия живёт до Close
	MaxSessions    int           // 0 без ограничения
	Bus            eventbus.EventBus
	EventBuffer    int
	Metrics        *game.Metrics
	Results        ResultSink
}

// Manager реестр активных забегов
type Manager struct {
	opts    ManagerOptions
	encoder *zstd.Encoder
	log     *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager создаёт реестр; Close останавливает все сессии
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Tables == nil {
		return nil, game.ErrNoTables
	}
	if opts.TicksPerSecond <= 0 {
		opts.TicksPerSecond = 60
	}
	if opts.SnapshotEvery <= 0 {
		opts.SnapshotEvery = 2
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		encoder:  enc,
		log:      logging.GetServerLogger(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// Create запускает новый забег за выбранного персонажа
func (m *Manager) Create(character string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrTooManySession
	}
	if character == "" {
		character = m.opts.Game.Character
	}
	width, height := m.opts.Game.Bounds()
	w, err := game.NewWorld(game.Options{
		Tables:    m.opts.Tables,
		Character: character,
		Bounds:    entity.Bounds{Width: width, Height: height},
		Seed:      m.opts.Game.Seed,
		Metrics:   m.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	s := newSession(w, m)
	m.sessions[s.ID] = s
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx)
		m.remove(s.ID)
	}()
	m.log.Info("🎮 Забег %s создан (%s, %d TPS)", s.ID, character, m.opts.TicksPerSecond)
	return s, nil
}

// Get возвращает активный забег
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrUnknownRun
	}
	return s, nil
}

// GetOrCreate подключает к забегу id или создаёт новый, если id пуст
func (m *Manager) GetOrCreate(id, character string) (*Session, error) {
	if id == "" {
		return m.Create(character)
	}
	return m.Get(id)
}

// List сводки активных забегов, новые первыми
func (m *Manager) List() []RunInfo {
	m.mu.RLock()
	out := make([]RunInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Count число активных забегов
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Close останавливает все забеги и ждёт их завершения или отмены ctx
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.encoder.Close()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
