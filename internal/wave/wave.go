// Package wave управляет волнами: таймер, спавн по таблицам вероятностей,
// каденция и масштабирование боссов, принудительный пропуск волны.
package wave

import (
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// Phase фаза волны
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseIntermission
)

// String имя фазы для снимков состояния
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseIntermission:
		return "intermission"
	default:
		return "idle"
	}
}

// Status снимок состояния волны для HUD
type Status struct {
	Wave          int     `json:"wave"`
	Phase         string  `json:"phase"`
	TimeRemaining float64 `json:"time_remaining"`
	Duration      float64 `json:"duration"`
	Progress      float64 `json:"progress"`
	BossWave      bool    `json:"boss_wave"`
	BossAlive     bool    `json:"boss_alive"`
}

// Manager менеджер волн и спавна
type Manager struct {
	tables *config.Tables
	cfg    *config.WaveConfig
	m      *entity.Manager
	rnd    rng.Source
	bus    eventbus.Emitter
	bounds entity.Bounds
	log    *logging.Logger

	wave         int
	phase        Phase
	duration     float64
	remaining    float64
	spawnTimer   float64
	intermission float64
	bossWave     bool
	bossSpawned  bool
	now          float64
}

// NewManager создаёт менеджер волн
func NewManager(tables *config.Tables, m *entity.Manager, rnd rng.Source, bus eventbus.Emitter, bounds entity.Bounds) *Manager {
	return &Manager{
		tables: tables,
		cfg:    &tables.Waves,
		m:      m,
		rnd:    rnd,
		bus:    bus,
		bounds: bounds,
		log:    logging.GetGameLogger(),
	}
}

// Start запускает первую волну
func (wm *Manager) Start(now float64) {
	wm.now = now
	wm.beginWave(1)
}

// Wave номер текущей волны
func (wm *Manager) Wave() int { return wm.wave }

// Phase текущая фаза
func (wm *Manager) Phase() Phase { return wm.phase }

// TimeRemaining оставшееся время волны
func (wm *Manager) TimeRemaining() float64 { return wm.remaining }

// Progress доля прошедшего времени волны [0,1]
func (wm *Manager) Progress() float64 {
	if wm.duration <= 0 {
		return 0
	}
	return vec.Clamp(1-wm.remaining/wm.duration, 0, 1)
}

// Status снимок для HUD
func (wm *Manager) Status() Status {
	return Status{
		Wave:          wm.wave,
		Phase:         wm.phase.String(),
		TimeRemaining: wm.remaining,
		Duration:      wm.duration,
		Progress:      wm.Progress(),
		BossWave:      wm.bossWave,
		BossAlive:     wm.m.HasActiveBoss(),
	}
}

// Update продвигает таймеры волны. Пока жив босс, таймер стоит,
// а обычный спавн остановлен; смерть босса завершает волну.
func (wm *Manager) Update(dt, now float64) {
	wm.now = now
	switch wm.phase {
	case PhaseIntermission:
		if wm.cfg.IntermissionSeconds <= 0 {
			return
		}
		wm.intermission -= dt
		if wm.intermission <= 0 {
			wm.beginWave(wm.wave + 1)
		}
		return
	case PhaseActive:
	default:
		return
	}

	bossAlive := wm.m.HasActiveBoss()
	if wm.bossWave && wm.bossSpawned && !bossAlive {
		wm.endWave(false)
		return
	}
	if bossAlive {
		return
	}

	wm.remaining -= dt
	if wm.remaining <= 0 {
		wm.remaining = 0
		wm.endWave(false)
		return
	}

	wm.spawnTimer -= dt
	interval := SpawnInterval(wm.cfg, wm.wave)
	if interval <= 0 {
		// таблицы в обход Validate: интервал не короче кадра, цикл конечен
		interval = math.Max(dt, 1e-3)
	}
	for wm.spawnTimer <= 0 {
		for i := 0; i < EnemiesPerTick(wm.cfg, wm.wave); i++ {
			wm.spawnRegular()
		}
		wm.spawnTimer += interval
	}
}

// StartNextWave вручную начинает следующую волну (из перерыва)
func (wm *Manager) StartNextWave(now float64) {
	wm.now = now
	if wm.phase == PhaseActive {
		return
	}
	wm.beginWave(wm.wave + 1)
}

// SkipWave принудительно завершает волну: все враги и их снаряды
// удаляются без наград, обработчик смерти не вызывается.
// Возвращает число удалённых врагов.
func (wm *Manager) SkipWave(now float64) int {
	wm.now = now
	removed := wm.m.DestroyAllEnemies()
	if wm.phase == PhaseActive {
		wm.remaining = 0
		wm.endWave(true)
	}
	wm.log.Info("⏭️ Волна %d пропущена, удалено врагов: %d", wm.wave, removed)
	return removed
}

func (wm *Manager) beginWave(n int) {
	wm.wave = n
	wm.phase = PhaseActive
	wm.duration = Duration(wm.cfg, n)
	wm.remaining = wm.duration
	wm.spawnTimer = 0
	wm.bossWave = IsBossWave(wm.cfg, n)
	wm.bossSpawned = false

	wm.emit(eventbus.WaveStart, eventbus.WaveStartPayload{Wave: n, Duration: wm.duration, BossWave: wm.bossWave})
	wm.log.Info("🌊 Волна %d началась (%.0f с, босс: %v)", n, wm.duration, wm.bossWave)

	if wm.bossWave {
		wm.spawnBoss()
	}
}

func (wm *Manager) endWave(skipped bool) {
	wm.phase = PhaseIntermission
	wm.intermission = wm.cfg.IntermissionSeconds
	wm.emit(eventbus.WaveEnd, eventbus.WaveEndPayload{Wave: wm.wave, Skipped: skipped})
	wm.log.Debug("Волна %d завершена (пропуск: %v)", wm.wave, skipped)
}

// spawnRegular создаёт обычного врага по таблице вероятностей волны
func (wm *Manager) spawnRegular() *entity.Enemy {
	row := wm.cfg.RowForWave(wm.wave)
	cfg := wm.tables.MustEnemy(row.Pick(wm.rnd.Float64()))
	scale := ExponentialScale(wm.cfg, wm.wave)
	e := entity.NewEnemy(wm.m.NextID(), cfg, wm.SpawnPosition(cfg.Radius), 1, scale, scale)
	wm.m.AddEnemy(e)
	return e
}

func (wm *Manager) spawnBoss() *entity.Enemy {
	name := BossType(wm.cfg, wm.wave)
	cfg := wm.tables.MustEnemy(name)
	hpMult, dmgMult := BossMultipliers(wm.cfg, cfg, wm.wave)
	e := entity.NewEnemy(wm.m.NextID(), cfg, wm.SpawnPosition(cfg.Radius), 1, hpMult, dmgMult)
	wm.m.AddEnemy(e)
	wm.bossSpawned = true

	k := BossAppearance(wm.cfg, wm.wave)
	wm.emit(eventbus.BossSpawned, eventbus.BossSpawnedPayload{EnemyID: e.ID, BossType: name, Appearance: k, HP: e.HP})
	wm.log.Info("👹 Босс %s (появление %d, hp %.0f)", name, k, e.HP)
	return e
}

// SpawnPosition случайная точка за пределами видимой арены:
// враг целиком снаружи, на spawn_margin от края
func (wm *Manager) SpawnPosition(radius float64) vec.Vec2 {
	margin := wm.tables.Balance.SpawnMargin + radius
	w, h := wm.bounds.Width, wm.bounds.Height
	switch wm.rnd.Intn(4) {
	case 0:
		return vec.Vec2{X: rng.Range(wm.rnd, 0, w), Y: -margin}
	case 1:
		return vec.Vec2{X: w + margin, Y: rng.Range(wm.rnd, 0, h)}
	case 2:
		return vec.Vec2{X: rng.Range(wm.rnd, 0, w), Y: h + margin}
	default:
		return vec.Vec2{X: -margin, Y: rng.Range(wm.rnd, 0, h)}
	}
}

func (wm *Manager) emit(t eventbus.Type, payload any) {
	if wm.bus == nil {
		return
	}
	wm.bus.Emit(eventbus.Event{Type: t, Time: wm.now, Payload: payload})
}
