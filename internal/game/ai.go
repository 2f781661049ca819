package game

import (
	"math"

	"github.com/annel0/arena-core/internal/combat"
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// backOffRatio ниже этой доли дистанции стрелок отступает от игрока
const backOffRatio = 0.8

// updateEnemies двигает врагов, гасит отбрасывание и запускает атаки.
// Новые сущности (пули) только дописываются в коллекции.
func (w *World) updateEnemies(dt, now float64) {
	p := w.entities.Player()
	decay := combat.DecayFactor(w.tables.Balance.KnockbackDecayPerFrame, dt)

	for _, e := range w.entities.Enemies() {
		if !e.Active || e.IsDying() {
			continue
		}
		w.steer(e, p, dt)

		if !e.Knockback.IsZero() {
			e.Position = e.Position.Add(e.Knockback.Mul(dt))
			e.Knockback = e.Knockback.Mul(decay)
			if e.Knockback.LengthSq() < 1 {
				e.Knockback = vec.Vec2{}
			}
		}

		// пока враг не вошёл в арену целиком, границы его не держат
		if e.EnteredArena {
			e.Position = w.bounds.Clamp(e.Position, e.Radius)
		} else if w.bounds.Contains(e.Position, e.Radius) {
			e.EnteredArena = true
		}

		if e.CanShoot && e.EnteredArena && p.IsAlive() {
			w.enemyAttack(e, p, now)
		}
	}
}

// steer преследование игрока; стрелки держат дистанцию, зигзаг
// добавляет поперечное колебание
func (w *World) steer(e *entity.Enemy, p *entity.Player, dt float64) {
	toPlayer := p.Position.Sub(e.Position)
	dist := toPlayer.Length()
	if dist == 0 {
		e.Velocity = vec.Vec2{}
		return
	}
	dir := toPlayer.Mul(1 / dist)
	cfg := e.Config

	var v vec.Vec2
	switch keep := cfg.KeepDistance; {
	case keep <= 0 || dist > keep:
		v = dir.Mul(e.Stats.Speed)
	case dist < keep*backOffRatio:
		v = dir.Mul(-e.Stats.Speed)
	}

	if e.Zigzag && cfg.ZigzagFreq > 0 {
		e.ZigzagTimer += dt
		perp := vec.Vec2{X: -dir.Y, Y: dir.X}
		sway := cfg.ZigzagAmp * cfg.ZigzagFreq * math.Cos(e.ZigzagTimer*cfg.ZigzagFreq)
		v = v.Add(perp.Mul(sway))
	}

	e.Velocity = v
	e.Position = e.Position.Add(v.Mul(dt))
}

// enemyAttack дальняя атака по шаблону. Урон пуль и колец масштабируется
// так же, как контактный урон врага.
func (w *World) enemyAttack(e *entity.Enemy, p *entity.Player, now float64) {
	cfg := e.Config
	if cfg.FireRate <= 0 || now-e.LastShotTime < cfg.FireRate {
		return
	}
	e.LastShotTime = now

	scale := 1.0
	if cfg.Damage > 0 {
		scale = e.Stats.Damage / cfg.Damage
	}
	aim := e.Position.AngleTo(p.Position)

	switch e.NextPattern() {
	case config.PatternSpread:
		n := cfg.SpreadCount
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			angle := aim
			if n > 1 {
				angle = aim - cfg.SpreadAngle/2 + cfg.SpreadAngle*float64(i)/float64(n-1)
			}
			w.spawnBullet(e, angle, cfg.BulletDamage*scale)
		}
	case config.PatternShockwave:
		w.effects.SpawnShockwave(e.ID, e.Position, cfg.ShockwaveRadius, cfg.ShockwaveSpeed, cfg.ShockwaveDamage*scale)
	default:
		w.spawnBullet(e, aim, cfg.BulletDamage*scale)
	}
}

func (w *World) spawnBullet(e *entity.Enemy, angle, damage float64) {
	cfg := e.Config
	b := entity.NewProjectile(w.entities.NextID(), entity.EnemyBulletType, e.ID,
		e.Position, angle, cfg.BulletSpeed, cfg.BulletRadius, damage, 0)
	w.entities.AddEnemyProjectile(b)
}
