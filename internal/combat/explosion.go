package combat

import (
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// Explosion взрыв в очереди кадра. Урон и радиус базовые: множители
// игрока применяются при детонации (кроме враждебных взрывов).
type Explosion struct {
	Position    vec.Vec2
	Radius      float64
	Damage      float64
	Style       config.ExplosionStyle
	Knockback   float64 // множитель отбрасывания снаряда-источника
	SpawnsMinis bool
	IsMini      bool
	Hostile     bool   // взрыв врага: ранит только игрока
	Killer      string // тип оружия для уведомления о смерти
}

// Enqueue ставит взрыв в очередь. Взрывы никогда не разрешаются
// на месте: очередь разбирается после всех столкновений кадра.
func (s *System) Enqueue(ex Explosion) {
	s.queue = append(s.queue, ex)
}

// Pending число взрывов в очереди
func (s *System) Pending() int { return len(s.queue) }

// DrainExplosions разбирает очередь. Взрывы, порождённые во время разбора
// (смерть взрывающегося врага), обрабатываются в этом же вызове.
func (s *System) DrainExplosions() {
	for i := 0; i < len(s.queue); i++ {
		s.detonate(s.queue[i])
	}
	s.queue = s.queue[:0]
}

func (s *System) detonate(ex Explosion) {
	radius, damage := ex.Radius, ex.Damage
	if !ex.Hostile {
		radius *= s.snap.ExplosionRadius
		damage *= s.snap.DamageMultiplier
	}
	s.emit(eventbus.Explosion, eventbus.ExplosionPayload{
		Position: ex.Position,
		Radius:   radius,
		Style:    string(ex.Style),
		Hostile:  ex.Hostile,
	})
	if s.fx != nil {
		s.fx.ExplosionFlash(ex.Position, radius, ex.Style)
	}

	if ex.Hostile {
		p := s.m.Player()
		if p == nil || !p.IsAlive() {
			return
		}
		dist := ex.Position.DistanceTo(p.Position)
		if dist <= radius {
			s.DamagePlayer(ExplosionDamage(damage, dist, radius, s.balance.ExplosionFalloff), eventbus.SourceExplosion)
		}
		return
	}

	for _, e := range s.m.GetEnemiesInRadius(ex.Position, radius) {
		if e.IsDying() {
			continue
		}
		dist := ex.Position.DistanceTo(e.Position)
		dmg := ExplosionDamage(damage, dist, radius, s.balance.ExplosionFalloff)
		dir := e.Position.Sub(ex.Position).Normalized()
		if dir.IsZero() {
			dir = vec.FromAngle(vec.RandomAngle(s.rnd), 1)
		}
		e.ApplyKnockback(dir.Mul(s.balance.BaseKnockback * s.snap.Knockback * ex.Knockback))
		s.DamageEnemy(e, dmg, false, eventbus.SourceExplosion, ex.Killer)
	}

	if ex.SpawnsMinis && !ex.IsMini {
		s.spawnMiniBananas(ex)
	}
}

// spawnMiniBananas разбрасывает мини-бананы: взрывные гранаты,
// детонирующие на случайной дистанции и не порождающие новых.
func (s *System) spawnMiniBananas(ex Explosion) {
	b := s.balance
	count := rng.IntRange(s.rnd, b.MiniBananaMin, b.MiniBananaMax)
	p := s.m.Player()
	var owner uint64
	if p != nil {
		owner = p.ID
	}
	for i := 0; i < count; i++ {
		angle := vec.RandomAngle(s.rnd)
		targetRange := rng.Range(s.rnd, b.MiniBananaRangeMin, b.MiniBananaRangeMax)
		mini := newMiniBanana(s.m.NextID(), owner, ex, angle, targetRange, b)
		s.m.AddPlayerProjectile(mini)
	}
}

func newMiniBanana(id, owner uint64, ex Explosion, angle, targetRange float64, b *config.BalanceConfig) *entity.Projectile {
	p := entity.NewProjectile(id, entity.MiniBananaType, owner, ex.Position, angle, b.MiniBananaSpeed, 4, 0, 0)
	p.KnockbackMultiplier = ex.Knockback
	p.Explosive = &entity.Explosive{
		Radius: ex.Radius * b.MiniBananaRadiusShare,
		Damage: ex.Damage * b.MiniBananaDamageShare,
		Style:  config.StyleBanana,
		IsMini: true,
	}
	p.MakeGrenade(targetRange)
	return p
}
