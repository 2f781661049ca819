// Package weapon управляет оружием игрока: темп стрельбы, выбор цели,
// построение снарядов (разброс, пробитие, цепь, взрыв), установка мин.
package weapon

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

var (
	ErrSlotsFull     = errors.New("weapon slots full")
	ErrNoSuchWeapon  = errors.New("no weapon in slot")
	ErrPlayerMissing = errors.New("player not spawned")
)

// multishotEvery каждые N уровней оружие получает дополнительный снаряд
const multishotEvery = 3

// Manager система оружия
type Manager struct {
	tables *config.Tables
	m      *entity.Manager
	rnd    rng.Source
	bus    eventbus.Emitter
	bounds entity.Bounds
}

// NewManager создаёт систему оружия
func NewManager(tables *config.Tables, m *entity.Manager, rnd rng.Source, bus eventbus.Emitter, bounds entity.Bounds) *Manager {
	return &Manager{tables: tables, m: m, rnd: rnd, bus: bus, bounds: bounds}
}

// FireInterval секунд между выстрелами:
// fireRate / (1 + (level−1)×attackSpeedPerLevel) / playerAttackSpeed
func FireInterval(cfg *config.WeaponConfig, level int, playerAttackSpeed float64) float64 {
	levelMult := 1 + float64(level-1)*cfg.AttackSpeedPerLevel
	if levelMult <= 0 {
		levelMult = 1
	}
	if playerAttackSpeed <= 0 {
		playerAttackSpeed = 1
	}
	return cfg.FireRate / levelMult / playerAttackSpeed
}

// LevelScale геометрический множитель perLevel^(level−1); 0 означает без роста
func LevelScale(perLevel float64, level int) float64 {
	if perLevel <= 0 || level <= 1 {
		return 1
	}
	return math.Pow(perLevel, float64(level-1))
}

// AddWeapon выдаёт игроку оружие. Дубликаты одного типа получают
// разовый сдвиг первого выстрела, чтобы не стрелять залпом.
func (wm *Manager) AddWeapon(weaponType string, now float64) (*entity.Weapon, error) {
	p := wm.m.Player()
	if p == nil {
		return nil, ErrPlayerMissing
	}
	cfg, err := wm.tables.Weapon(weaponType)
	if err != nil {
		return nil, err
	}
	if p.Stats.MaxWeapons > 0 && len(p.Weapons) >= p.Stats.MaxWeapons {
		return nil, fmt.Errorf("%w: %d/%d", ErrSlotsFull, len(p.Weapons), p.Stats.MaxWeapons)
	}
	w := &entity.Weapon{
		Type:         weaponType,
		Config:       cfg,
		Level:        1,
		LastFireTime: now,
	}
	p.Weapons = append(p.Weapons, w)
	wm.restagger(p, weaponType)
	return w, nil
}

func (wm *Manager) restagger(p *entity.Player, weaponType string) {
	var dups []*entity.Weapon
	for _, w := range p.Weapons {
		if w.Type == weaponType {
			dups = append(dups, w)
		}
	}
	if len(dups) < 2 {
		return
	}
	for i, w := range dups {
		interval := FireInterval(w.Config, w.Level, p.Stats.AttackSpeed)
		w.FireOffset = interval * float64(i) / float64(len(dups))
	}
}

// UpgradeWeapon повышает уровень оружия в слоте index
func (wm *Manager) UpgradeWeapon(index int) error {
	p := wm.m.Player()
	if p == nil {
		return ErrPlayerMissing
	}
	if index < 0 || index >= len(p.Weapons) {
		return fmt.Errorf("%w: %d", ErrNoSuchWeapon, index)
	}
	w := p.Weapons[index]
	w.Level++
	if w.Config.Category == config.CategoryGun && w.Level%multishotEvery == 0 {
		w.MultishotBonus++
	}
	return nil
}

// OrbitPosition точка, из которой стреляет оружие в слоте index
func (wm *Manager) OrbitPosition(p *entity.Player, index int) vec.Vec2 {
	n := len(p.Weapons)
	if n == 0 {
		return p.Position
	}
	angle := 2 * math.Pi * float64(index) / float64(n)
	return p.Position.Add(vec.FromAngle(angle, wm.tables.Balance.WeaponOrbitRadius))
}

// Update стреляет всеми готовыми оружиями
func (wm *Manager) Update(now float64) {
	p := wm.m.Player()
	if p == nil || !p.IsAlive() {
		return
	}
	wm.trackTarget(p)

	for i, w := range p.Weapons {
		interval := FireInterval(w.Config, w.Level, p.Stats.AttackSpeed)
		if now-w.LastFireTime < interval+w.FireOffset {
			continue
		}
		if w.Config.Category == config.CategoryDeployable {
			wm.placeMine(p, w, now)
			continue
		}

		origin := wm.OrbitPosition(p, i)
		maxRange := w.Config.Range * p.Stats.AttackRange
		target := wm.acquire(p, origin, maxRange)
		if target == nil {
			continue
		}
		wm.fire(p, w, origin, target, maxRange, now)
	}
}

// trackTarget запоминает ближайшего к игроку врага в пределах арены
func (wm *Manager) trackTarget(p *entity.Player) {
	p.TargetID = 0
	if e := wm.m.GetNearestEnemy(p.Position, math.Inf(1), &wm.bounds); e != nil {
		p.TargetID = e.ID
	}
}

// acquire ближайший враг от точки орбиты; иначе отслеживаемая цель игрока,
// если она в пределах дальности от игрока
func (wm *Manager) acquire(p *entity.Player, origin vec.Vec2, maxRange float64) *entity.Enemy {
	if e := wm.m.GetNearestEnemy(origin, maxRange, &wm.bounds); e != nil {
		return e
	}
	if p.TargetID == 0 {
		return nil
	}
	e, ok := wm.m.GetEnemy(p.TargetID)
	if !ok || p.Position.DistanceTo(e.Position) > maxRange {
		return nil
	}
	return e
}

func (wm *Manager) fire(p *entity.Player, w *entity.Weapon, origin vec.Vec2, target *entity.Enemy, maxRange, now float64) {
	cfg := w.Config

	// один бросок крита на весь залп
	crit := rng.Chance(wm.rnd, p.Stats.CritChance)
	damage := cfg.Damage * LevelScale(cfg.DamagePerLevel, w.Level)
	if crit {
		damage *= p.Stats.CritDamage
	}
	radius := cfg.ExplosionRadius * LevelScale(cfg.RadiusPerLevel, w.Level)

	count := cfg.ProjectileCount + p.Stats.ProjectileCount + w.MultishotBonus
	if count < 1 {
		count = 1
	}
	base := origin.AngleTo(target.Position)
	angles := spreadAngles(wm.rnd, base, cfg.Spread, count)

	for _, angle := range angles {
		proj := entity.NewProjectile(wm.m.NextID(), w.Type, p.ID, origin, angle, cfg.ProjectileSpeed, cfg.ProjectileRadius, damage, maxRange)
		proj.Crit = crit
		if cfg.KnockbackMultiplier > 0 {
			proj.KnockbackMultiplier = cfg.KnockbackMultiplier
		}
		if extra := cfg.Pierce + p.Stats.Pierce; extra > 0 {
			proj.Pierce = entity.NewPierce(1 + extra)
		}
		if cfg.ChainCount > 0 {
			proj.Chain = &entity.Chain{Count: cfg.ChainCount, Range: cfg.ChainRange, DamageShare: cfg.ChainDamageShare}
		}
		if cfg.IsExplosive() {
			proj.Explosive = &entity.Explosive{
				Radius:      radius,
				Damage:      damage,
				Style:       cfg.ExplosionStyle,
				SpawnsMinis: cfg.SpawnsMinis,
			}
		}
		if cfg.Category == config.CategoryGrenade {
			proj.MakeGrenade(math.Min(origin.DistanceTo(target.Position), maxRange))
		}
		wm.m.AddPlayerProjectile(proj)
	}

	w.LastFireTime = now
	w.FireOffset = 0
	wm.emit(now, eventbus.WeaponFired, eventbus.WeaponFiredPayload{Weapon: w.Type, Projectiles: count, Crit: crit})
}

// spreadAngles: несколько снарядов веером равномерно по углу разброса,
// одиночный снаряд со случайным отклонением в его пределах
func spreadAngles(r rng.Source, base, spread float64, count int) []float64 {
	angles := make([]float64, count)
	if count == 1 {
		angles[0] = base
		if spread > 0 {
			angles[0] += rng.Range(r, -spread/2, spread/2)
		}
		return angles
	}
	start := base - spread/2
	step := spread / float64(count-1)
	for i := range angles {
		angles[i] = start + step*float64(i)
	}
	return angles
}

// placeMine ставит мину под игроком, если не превышен лимит
func (wm *Manager) placeMine(p *entity.Player, w *entity.Weapon, now float64) {
	cfg := w.Config
	if cfg.MaxDeployed > 0 && wm.m.CountActiveDeployables(w.Type) >= cfg.MaxDeployed {
		return
	}
	damage := cfg.Damage * LevelScale(cfg.DamagePerLevel, w.Level)
	radius := cfg.ExplosionRadius * LevelScale(cfg.RadiusPerLevel, w.Level)
	d := entity.NewDeployable(wm.m.NextID(), w.Type, p.ID, p.Position, cfg.ArmTime, cfg.TriggerRadius, cfg.Lifetime,
		entity.Explosive{Radius: radius, Damage: damage, Style: cfg.ExplosionStyle})
	wm.m.AddDeployable(d)

	w.LastFireTime = now
	w.FireOffset = 0
	wm.emit(now, eventbus.MinePlaced, eventbus.MinePlacedPayload{DeployableID: d.ID, Position: d.Position})
}

func (wm *Manager) emit(now float64, t eventbus.Type, payload any) {
	if wm.bus == nil {
		return
	}
	wm.bus.Emit(eventbus.Event{Type: t, Time: now, Payload: payload})
}
