package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/game"
	"github.com/annel0/arena-core/internal/leaderboard"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
)

// maxStep ограничивает dt после долгой паузы планировщика
const maxStep = 0.1

var ErrUnknownCommand = errors.New("unknown command")

// Command управляющая команда клиента, исполняется в горутине тика
type Command struct {
	Name   string
	Weapon string
	Index  int
	Stat   string
	Amount float64

	from *ClientConn
}

// ResultSink принимает итоги забегов (Submitter таблицы рекордов)
type ResultSink interface {
	Submit(e leaderboard.Entry) bool
}

// RunInfo сводка сессии для HTTP API
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Character string    `json:"character"`
	Wave      int       `json:"wave"`
	Frame     uint64    `json:"frame"`
	Clients   int       `json:"clients"`
	Paused    bool      `json:"paused"`
	GameOver  bool      `json:"game_over"`
	StartedAt time.Time `json:"started_at"`
}

// Session один забег и его зрители. Мир принадлежит горутине Run:
// клиенты передают ввод (побеждает последний) и команды через очередь.
type Session struct {
	ID string

	world         *game.World
	tps           int
	snapshotEvery int
	idleTimeout   time.Duration
	encoder       *zstd.Encoder
	forwarder     *eventbus.Forwarder
	results       ResultSink
	log           *logging.Logger

	inputMu sync.Mutex
	input   game.Input

	commands chan Command
	pending  []eventbus.Event
	over     *game.RunSummary

	clientsMu  sync.Mutex
	clients    map[*ClientConn]struct{}
	lastActive time.Time
	closed     bool

	infoMu sync.RWMutex
	info   RunInfo

	done chan struct{}
}

func newSession(w *game.World, m *Manager) *Session {
	s := &Session{
		ID:            w.RunID,
		world:         w,
		tps:           m.opts.TicksPerSecond,
		snapshotEvery: m.opts.SnapshotEvery,
		idleTimeout:   m.opts.IdleTimeout,
		encoder:       m.encoder,
		results:       m.opts.Results,
		log:           logging.GetServerLogger(),
		commands:      make(chan Command, 32),
		clients:       make(map[*ClientConn]struct{}),
		lastActive:    time.Now(),
		done:          make(chan struct{}),
	}
	s.info = RunInfo{RunID: w.RunID, Character: w.Summary().Character, StartedAt: time.Now().UTC()}

	w.Subscribe(nil, func(ev eventbus.Event) { s.pending = append(s.pending, ev) })
	if m.opts.Bus != nil {
		s.forwarder = eventbus.NewForwarder(w.RunID, m.opts.Bus, m.opts.EventBuffer)
		w.Subscribe(nil, s.forwarder.Listen)
	}
	w.OnGameOver(func(sum game.RunSummary) {
		s.over = &sum
		if s.results != nil && !s.results.Submit(leaderboard.FromSummary(sum)) {
			s.log.Warn("Итог забега %s не принят таблицей рекордов", sum.RunID)
		}
	})
	return s
}

// SetInput запоминает последний ввод клиента
func (s *Session) SetInput(in game.Input) {
	s.inputMu.Lock()
	s.input = in
	s.inputMu.Unlock()
}

func (s *Session) currentInput() game.Input {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()
	return s.input
}

// Enqueue ставит команду в очередь тика; false при переполнении
func (s *Session) Enqueue(cmd Command) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		return false
	}
}

// Join подключает зрителя. После окончания сессии возвращает false.
func (s *Session) Join(c *ClientConn) bool {
	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		return false
	}
	s.clients[c] = struct{}{}
	s.lastActive = time.Now()
	s.clientsMu.Unlock()
	c.sendJSON(ServerMessage{Type: "welcome", RunID: s.ID})
	s.log.Info("👤 Клиент %s подключился к забегу %s", c.remote, s.ID)
	return true
}

// Leave отключает зрителя
func (s *Session) Leave(c *ClientConn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		s.lastActive = time.Now()
		s.log.Info("👋 Клиент %s покинул забег %s", c.remote, s.ID)
	}
	s.clientsMu.Unlock()
}

// Info последняя сводка, обновляется каждый тик
func (s *Session) Info() RunInfo {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info
}

// Done закрывается после остановки Run
func (s *Session) Done() <-chan struct{} { return s.done }

// Run крутит симуляцию с фиксированной частотой до отмены ctx или простоя
func (s *Session) Run(ctx context.Context) {
	defer s.shutdown()

	ticker := time.NewTicker(time.Second / time.Duration(s.tps))
	defer ticker.Stop()

	var simNow float64
	last := time.Now()
	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			dt := t.Sub(last).Seconds()
			last = t
			if dt > maxStep {
				dt = maxStep
			}

			s.drainCommands()
			if !s.world.Paused() && !s.world.IsGameOver() {
				simNow += dt
				s.world.Update(dt, simNow, s.currentInput())
			}
			tick++
			s.broadcastFrame(tick)
			s.updateInfo()

			if s.idle() {
				s.log.Info("⏹️ Забег %s остановлен: нет клиентов", s.ID)
				return
			}
		}
	}
}

func (s *Session) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			if err := s.apply(cmd); err != nil && cmd.from != nil {
				cmd.from.sendJSON(ServerMessage{Type: "error", Error: err.Error()})
			}
		default:
			return
		}
	}
}

func (s *Session) apply(cmd Command) error {
	w := s.world
	switch cmd.Name {
	case "skip_wave":
		w.SkipWave()
	case "next_wave":
		w.StartNextWave()
	case "pause":
		w.Pause()
	case "resume":
		w.Resume()
	case "add_weapon":
		return w.AddWeapon(cmd.Weapon)
	case "upgrade_weapon":
		return w.UpgradeWeapon(cmd.Index)
	case "upgrade":
		return w.ApplyUpgrade(cmd.Stat, cmd.Amount)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	return nil
}

// broadcastFrame рассылает события кадра, периодический снимок и итог забега
func (s *Session) broadcastFrame(tick uint64) {
	if len(s.pending) > 0 {
		s.broadcast(ServerMessage{Type: "events", Events: s.pending})
		s.pending = s.pending[:0]
	}
	if s.over != nil {
		snap := s.world.Snapshot()
		s.broadcast(ServerMessage{Type: "state", State: &snap})
		s.broadcast(ServerMessage{Type: "game_over", Summary: s.over})
		s.over = nil
		return
	}
	if s.world.IsGameOver() || tick%uint64(s.snapshotEvery) != 0 {
		return
	}
	snap := s.world.Snapshot()
	s.broadcast(ServerMessage{Type: "state", State: &snap})
}

// broadcast кодирует сообщение один раз и при необходимости сжимает его zstd
func (s *Session) broadcast(msg ServerMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if len(s.clients) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Не удалось закодировать %s: %v", msg.Type, err)
		return
	}
	var packed []byte
	for c := range s.clients {
		if !c.compress {
			c.Enqueue(websocket.TextMessage, data)
			continue
		}
		if packed == nil {
			packed = s.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
		}
		c.Enqueue(websocket.BinaryMessage, packed)
	}
}

func (s *Session) updateInfo() {
	s.clientsMu.Lock()
	clients := len(s.clients)
	s.clientsMu.Unlock()

	s.infoMu.Lock()
	s.info.Wave = s.world.Wave().Wave
	s.info.Frame = s.world.Frame()
	s.info.Clients = clients
	s.info.Paused = s.world.Paused()
	s.info.GameOver = s.world.IsGameOver()
	s.infoMu.Unlock()
}

func (s *Session) idle() bool {
	if s.idleTimeout <= 0 {
		return false
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients) == 0 && time.Since(s.lastActive) > s.idleTimeout
}

func (s *Session) shutdown() {
	s.clientsMu.Lock()
	s.closed = true
	for c := range s.clients {
		c.Close()
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()

	if s.forwarder != nil {
		s.forwarder.Close()
		if n := s.forwarder.Dropped(); n > 0 {
			s.log.Warn("Забег %s: потеряно %d событий шины", s.ID, n)
		}
	}
	close(s.done)
}
