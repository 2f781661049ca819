// Package game собирает системы арены в один мир и проводит авторитетный
// шаг симуляции: ввод, движение, стрельба, ИИ врагов, волны, столкновения,
// бой и отложенное удаление сущностей.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/arena-core/internal/combat"
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/effects"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/annel0/arena-core/internal/physics"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/wave"
	"github.com/annel0/arena-core/internal/weapon"
	"github.com/annel0/arena-core/internal/world/entity"
	"github.com/google/uuid"
)

// DefaultCharacter персонаж, если в Options он не указан
const DefaultCharacter = "DEFAULT"

var ErrNoTables = errors.New("game tables are required")

// Options параметры нового забега
type Options struct {
	Tables    *config.Tables
	Character string
	Bounds    entity.Bounds
	Seed      int64      // 0 означает несидированный генератор
	RNG       rng.Source // если задан, Seed игнорируется
	Metrics   *Metrics   // может быть nil
}

// RunSummary итог забега для таблицы рекордов
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Character    string    `json:"character"`
	Wave         int       `json:"wave"`
	Level        int       `json:"level"`
	Kills        int       `json:"kills"`
	BossKills    int       `json:"boss_kills"`
	Gold         float64   `json:"gold"`
	DamageDealt  float64   `json:"damage_dealt"`
	DamageTaken  float64   `json:"damage_taken"`
	TimeSurvived float64   `json:"time_survived"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
}

// World один забег: владеет менеджером сущностей и всеми системами.
// Не потокобезопасен, шаг выполняется в одном потоке.
type World struct {
	RunID string

	tables    *config.Tables
	character *config.CharacterConfig
	bounds    entity.Bounds
	rnd       rng.Source

	bus        *eventbus.LocalBus
	entities   *entity.Manager
	collisions *physics.CollisionSystem
	combat     *combat.System
	weapons    *weapon.Manager
	waves      *wave.Manager
	effects    *effects.System
	metrics    *Metrics
	log        *logging.Logger

	frame     uint64
	now       float64
	started   bool
	startTime float64
	paused    bool
	gameOver  bool
	summary   RunSummary
	lastKills int

	onGameOver []func(RunSummary)
}

// NewWorld создаёт забег: игрок в центре арены со стартовым оружием персонажа
func NewWorld(opts Options) (*World, error) {
	if opts.Tables == nil {
		return nil, ErrNoTables
	}
	name := opts.Character
	if name == "" {
		name = DefaultCharacter
	}
	ch, err := opts.Tables.Character(name)
	if err != nil {
		return nil, err
	}
	bounds := opts.Bounds
	if bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = entity.Bounds{Width: 1280, Height: 720}
	}

	rnd := opts.RNG
	if rnd == nil {
		if opts.Seed != 0 {
			rnd = rng.New(opts.Seed)
		} else {
			rnd = rng.NewUnseeded()
		}
	}

	w := &World{
		RunID:      uuid.NewString(),
		tables:     opts.Tables,
		character:  ch,
		bounds:     bounds,
		rnd:        rnd,
		bus:        eventbus.NewLocalBus(),
		entities:   entity.NewManager(),
		collisions: physics.NewCollisionSystem(),
		effects:    effects.NewSystem(rnd),
		metrics:    opts.Metrics,
		log:        logging.GetGameLogger(),
	}
	w.combat = combat.NewSystem(opts.Tables, w.entities, rnd, w.bus, w.effects)
	w.weapons = weapon.NewManager(opts.Tables, w.entities, rnd, w.bus, bounds)
	w.waves = wave.NewManager(opts.Tables, w.entities, rnd, w.bus, bounds)

	player := entity.NewPlayer(w.entities.NextID(), ch, bounds.Center(), opts.Tables.Balance.XPPerLevel)
	w.entities.SetPlayer(player)
	if ch.StartingWeapon != "" {
		if _, err := w.weapons.AddWeapon(ch.StartingWeapon, 0); err != nil {
			return nil, fmt.Errorf("starting weapon: %w", err)
		}
	}

	w.summary = RunSummary{RunID: w.RunID, Character: ch.Name}
	w.log.Debug("Создан забег %s (персонаж %s, арена %.0fx%.0f)", w.RunID, ch.Name, bounds.Width, bounds.Height)
	return w, nil
}

// Update единственная точка входа шага симуляции.
// dt и now в секундах; now монотонно растёт от внешних часов.
func (w *World) Update(dt, now float64, in Input) {
	if w.paused || w.gameOver || dt <= 0 {
		return
	}
	started := time.Now()

	w.frame++
	w.now = now
	w.bus.SetClock(w.frame, now)

	if !w.started {
		w.started = true
		w.startTime = now
		w.waves.Start(now)
	}

	w.combat.BeginFrame(now)
	w.movePlayer(dt, in)
	w.weapons.Update(now)
	w.updateEnemies(dt, now)
	w.waves.Update(dt, now)
	w.updatePickups(dt)
	w.updateProjectiles(dt)
	w.updateDeployables(dt)

	p := w.entities.Player()
	for _, hit := range w.effects.Update(dt, p.Position, p.Radius, p.IsAlive()) {
		w.combat.DamagePlayer(hit.Damage, eventbus.SourceShockwave)
	}

	w.combat.Resolve(w.collisions.Detect(w.entities))

	if w.combat.ConsumePlayerKilled() {
		w.endRun()
	}

	w.entities.Compact()
	w.observe(time.Since(started))
}

func (w *World) endRun() {
	w.gameOver = true
	w.refreshSummary()
	w.summary.EndedAt = time.Now().UTC()
	w.metrics.runFinished()

	w.bus.Emit(eventbus.Event{
		Type:    eventbus.PlayerDeath,
		Payload: eventbus.PlayerDeathPayload{Wave: w.summary.Wave, TimeSurvived: w.summary.TimeSurvived},
	})
	w.log.Info("💀 Забег %s окончен: волна %d, убийств %d, %.1f с",
		w.RunID, w.summary.Wave, w.summary.Kills, w.summary.TimeSurvived)

	for _, fn := range w.onGameOver {
		fn(w.summary)
	}
}

func (w *World) refreshSummary() {
	stats := w.combat.Stats()
	p := w.entities.Player()
	w.summary.Wave = w.waves.Wave()
	w.summary.Level = p.Level
	w.summary.Kills = stats.Kills
	w.summary.BossKills = stats.BossKills
	w.summary.Gold = p.Gold
	w.summary.DamageDealt = stats.DamageDealt
	w.summary.DamageTaken = stats.DamageTaken
	if w.started {
		w.summary.TimeSurvived = w.now - w.startTime
	}
}

func (w *World) observe(frame time.Duration) {
	if w.metrics == nil {
		return
	}
	kills := w.combat.Stats().Kills
	w.metrics.observe(frame, w.entities.CountActiveEnemies(), kills-w.lastKills, w.waves.Wave())
	w.lastKills = kills
}

// OnGameOver регистрирует обработчик окончания забега.
// Вызывается синхронно внутри кадра, поэтому не должен блокировать.
func (w *World) OnGameOver(fn func(RunSummary)) {
	w.onGameOver = append(w.onGameOver, fn)
}

// Subscribe подписка на уведомления кадра. Возвращает функцию отписки.
func (w *World) Subscribe(filter eventbus.TypeFilter, l eventbus.Listener) func() {
	return w.bus.Subscribe(filter, l)
}

// SkipWave принудительно завершает текущую волну без наград
func (w *World) SkipWave() int {
	if w.gameOver {
		return 0
	}
	return w.waves.SkipWave(w.now)
}

// StartNextWave начинает следующую волну из перерыва
func (w *World) StartNextWave() {
	if w.gameOver || !w.started {
		return
	}
	w.waves.StartNextWave(w.now)
}

func (w *World) Pause()       { w.paused = true }
func (w *World) Resume()      { w.paused = false }
func (w *World) Paused() bool { return w.paused }

// AddWeapon выдаёт игроку оружие (магазин, меню разработчика)
func (w *World) AddWeapon(weaponType string) error {
	_, err := w.weapons.AddWeapon(weaponType, w.now)
	return err
}

// UpgradeWeapon повышает уровень оружия в слоте
func (w *World) UpgradeWeapon(index int) error {
	return w.weapons.UpgradeWeapon(index)
}

// ApplyUpgrade изменяет характеристику игрока
func (w *World) ApplyUpgrade(stat string, amount float64) error {
	return w.entities.Player().ApplyUpgrade(stat, amount)
}

// Player снимок игрока. Вызывающий не должен изменять его.
func (w *World) Player() *entity.Player { return w.entities.Player() }

func (w *World) Enemies() []*entity.Enemy               { return w.entities.ActiveEnemies() }
func (w *World) Projectiles() []*entity.Projectile      { return w.entities.ActivePlayerProjectiles() }
func (w *World) EnemyProjectiles() []*entity.Projectile { return w.entities.ActiveEnemyProjectiles() }
func (w *World) Deployables() []*entity.Deployable      { return w.entities.ActiveDeployables() }
func (w *World) Pickups() []*entity.Pickup              { return w.entities.ActivePickups() }

// BossAlive жив ли хотя бы один босс
func (w *World) BossAlive() bool { return w.entities.HasActiveBoss() }

// Wave состояние волны для HUD
func (w *World) Wave() wave.Status { return w.waves.Status() }

// Stats статистика забега
func (w *World) Stats() combat.RunStats { return w.combat.Stats() }

// Effects косметические эффекты (частицы, вспышки, кольца)
func (w *World) Effects() *effects.System { return w.effects }

func (w *World) Bounds() entity.Bounds { return w.bounds }
func (w *World) Frame() uint64         { return w.frame }
func (w *World) Now() float64          { return w.now }
func (w *World) IsGameOver() bool      { return w.gameOver }

// Summary итог забега; до окончания отражает текущий прогресс
func (w *World) Summary() RunSummary {
	if !w.gameOver {
		w.refreshSummary()
	}
	return w.summary
}
