// Package effects косметические эффекты арены. На игру влияют только
// кольца ударной волны: каждое ранит игрока не больше одного раза.
package effects

import (
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
)

// MaxParticles верхняя граница живых частиц
const MaxParticles = 600

const (
	particleSpeedMin = 40.0
	particleSpeedMax = 160.0
	particleLifeMin  = 0.3
	particleLifeMax  = 0.8
	flashLifetime    = 0.35
	particleDrag     = 0.92 // на кадр
)

// Particle частица взрыва или смерти
type Particle struct {
	Position vec.Vec2
	Velocity vec.Vec2
	Life     float64
	MaxLife  float64
}

// Flash вспышка взрыва
type Flash struct {
	Position vec.Vec2
	Radius   float64
	Style    config.ExplosionStyle
	Life     float64
}

// Shockwave расширяющееся кольцо урона
type Shockwave struct {
	OwnerID   uint64
	Center    vec.Vec2
	Radius    float64
	MaxRadius float64
	Speed     float64
	Damage    float64
	hitPlayer bool
}

// ShockwaveHit кольцо пересекло игрока
type ShockwaveHit struct {
	OwnerID uint64
	Damage  float64
}

// System хранит эффекты и продвигает их по времени
type System struct {
	rnd        rng.Source
	particles  []Particle
	flashes    []Flash
	shockwaves []*Shockwave
}

// NewSystem создаёт систему эффектов
func NewSystem(rnd rng.Source) *System {
	return &System{rnd: rnd}
}

// DeathBurst разбрасывает count частиц из точки
func (s *System) DeathBurst(pos vec.Vec2, count int) {
	for i := 0; i < count && len(s.particles) < MaxParticles; i++ {
		life := rng.Range(s.rnd, particleLifeMin, particleLifeMax)
		s.particles = append(s.particles, Particle{
			Position: pos,
			Velocity: vec.FromAngle(vec.RandomAngle(s.rnd), rng.Range(s.rnd, particleSpeedMin, particleSpeedMax)),
			Life:     life,
			MaxLife:  life,
		})
	}
}

// ExplosionFlash добавляет вспышку
func (s *System) ExplosionFlash(pos vec.Vec2, radius float64, style config.ExplosionStyle) {
	s.flashes = append(s.flashes, Flash{Position: pos, Radius: radius, Style: style, Life: flashLifetime})
}

// SpawnShockwave запускает кольцо из center
func (s *System) SpawnShockwave(ownerID uint64, center vec.Vec2, maxRadius, speed, damage float64) {
	s.shockwaves = append(s.shockwaves, &Shockwave{
		OwnerID:   ownerID,
		Center:    center,
		MaxRadius: maxRadius,
		Speed:     speed,
		Damage:    damage,
	})
}

// Update продвигает эффекты. Возвращает удары колец по игроку:
// кольцо ранит, когда его фронт проходит через круг игрока, и только один раз.
func (s *System) Update(dt float64, playerPos vec.Vec2, playerRadius float64, playerAlive bool) []ShockwaveHit {
	drag := math.Pow(particleDrag, dt*60)
	kept := s.particles[:0]
	for _, p := range s.particles {
		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		p.Velocity = p.Velocity.Mul(drag)
		kept = append(kept, p)
	}
	s.particles = kept

	flashes := s.flashes[:0]
	for _, f := range s.flashes {
		f.Life -= dt
		if f.Life > 0 {
			flashes = append(flashes, f)
		}
	}
	s.flashes = flashes

	var hits []ShockwaveHit
	waves := s.shockwaves[:0]
	for _, w := range s.shockwaves {
		w.Radius += w.Speed * dt
		if playerAlive && !w.hitPlayer {
			d := w.Center.DistanceTo(playerPos)
			if d-playerRadius <= w.Radius && w.Radius <= d+playerRadius {
				w.hitPlayer = true
				hits = append(hits, ShockwaveHit{OwnerID: w.OwnerID, Damage: w.Damage})
			}
		}
		if w.Radius < w.MaxRadius {
			waves = append(waves, w)
		}
	}
	for i := len(waves); i < len(s.shockwaves); i++ {
		s.shockwaves[i] = nil
	}
	s.shockwaves = waves
	return hits
}

// Particles живые частицы (только чтение)
func (s *System) Particles() []Particle { return s.particles }

// Flashes живые вспышки (только чтение)
func (s *System) Flashes() []Flash { return s.flashes }

// Shockwaves живые кольца (только чтение)
func (s *System) Shockwaves() []*Shockwave { return s.shockwaves }

// Clear удаляет все эффекты
func (s *System) Clear() {
	s.particles = s.particles[:0]
	s.flashes = s.flashes[:0]
	s.shockwaves = nil
}
