package entity

import (
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
)

// EnemyBulletType тип снаряда, выпущенного врагом
const EnemyBulletType = "ENEMY_BULLET"

// MiniBananaType тип осколка бананового взрыва
const MiniBananaType = "MINI_BANANA"

// Explosive компонент взрывного снаряда
type Explosive struct {
	Radius      float64
	Damage      float64
	Style       config.ExplosionStyle
	SpawnsMinis bool // банан: порождает мини-бананы при взрыве
	IsMini      bool // мини-банан не порождает новых
}

// Pierce компонент пробивающего снаряда.
// Каждый враг поражается не более одного раза.
type Pierce struct {
	Remaining int
	hit       map[uint64]struct{}
}

// NewPierce создаёт компонент на count дополнительных поражений
func NewPierce(count int) *Pierce {
	return &Pierce{Remaining: count, hit: make(map[uint64]struct{})}
}

// HasHit сообщает, был ли враг уже поражён этим снарядом
func (p *Pierce) HasHit(id uint64) bool {
	_, ok := p.hit[id]
	return ok
}

// MarkHit запоминает врага как поражённого
func (p *Pierce) MarkHit(id uint64) { p.hit[id] = struct{}{} }

// HitCount число уникальных поражённых врагов
func (p *Pierce) HitCount() int { return len(p.hit) }

// Chain компонент цепного урона
type Chain struct {
	Count       int
	Range       float64
	DamageShare float64
}

// Grenade баллистика гранаты: замедляется к точке детонации
type Grenade struct {
	SpawnPos    vec.Vec2
	TargetRange float64
	BaseSpeed   float64
}

// FlightState результат шага полёта снаряда
type FlightState int

const (
	Flying FlightState = iota
	Expired
	Detonate
)

// Projectile снаряд игрока или врага
type Projectile struct {
	Entity

	Type                string
	Damage              float64
	OwnerID             uint64
	Traveled            float64
	MaxRange            float64
	KnockbackMultiplier float64
	Crit                bool

	Explosive *Explosive
	Pierce    *Pierce
	Chain     *Chain
	Grenade   *Grenade
}

// NewProjectile создаёт снаряд, летящий под углом angle со скоростью speed
func NewProjectile(id uint64, projectileType string, ownerID uint64, position vec.Vec2, angle, speed, radius, damage, maxRange float64) *Projectile {
	e := NewEntity(id, KindProjectile, position, radius)
	e.Velocity = vec.FromAngle(angle, speed)
	return &Projectile{
		Entity:              e,
		Type:                projectileType,
		Damage:              damage,
		OwnerID:             ownerID,
		MaxRange:            maxRange,
		KnockbackMultiplier: 1,
	}
}

// HasExplosive сообщает о наличии взрывного компонента
func (p *Projectile) HasExplosive() bool { return p.Explosive != nil }

// HasPierce сообщает о наличии пробивающего компонента
func (p *Projectile) HasPierce() bool { return p.Pierce != nil }

// IsGrenade сообщает, что снаряд летит по баллистике гранаты
func (p *Projectile) IsGrenade() bool { return p.Grenade != nil }

// MakeGrenade включает баллистику: детонация на targetRange от точки запуска
func (p *Projectile) MakeGrenade(targetRange float64) {
	p.Grenade = &Grenade{
		SpawnPos:    p.Position,
		TargetRange: targetRange,
		BaseSpeed:   p.Velocity.Length(),
	}
}

// Advance сдвигает снаряд на dt. Гранаты замедляются квадратично по мере
// приближения к дистанции детонации (не ниже minSpeedFactor от базовой
// скорости) и останавливаются точно на ней.
func (p *Projectile) Advance(dt, minSpeedFactor float64) FlightState {
	if p.Grenade != nil {
		g := p.Grenade
		if g.TargetRange <= 0 {
			return Detonate
		}
		progress := math.Min(1, p.Traveled/g.TargetRange)
		factor := math.Max(minSpeedFactor, 1-progress*progress)
		speed := g.BaseSpeed * factor
		dir := p.Velocity.Normalized()
		p.Velocity = dir.Mul(speed)

		step := speed * dt
		remaining := g.TargetRange - p.Traveled
		if step >= remaining {
			p.Position = p.Position.Add(dir.Mul(remaining))
			p.Traveled = g.TargetRange
			return Detonate
		}
		p.Position = p.Position.Add(dir.Mul(step))
		p.Traveled += step
		return Flying
	}

	delta := p.Velocity.Mul(dt)
	p.Position = p.Position.Add(delta)
	p.Traveled += delta.Length()
	if p.MaxRange > 0 && p.Traveled >= p.MaxRange {
		return Expired
	}
	return Flying
}
