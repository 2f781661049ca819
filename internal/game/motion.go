package game

import (
	"math"

	"github.com/annel0/arena-core/internal/combat"
	"github.com/annel0/arena-core/internal/world/entity"
)

func (w *World) movePlayer(dt float64, in Input) {
	p := w.entities.Player()
	if !p.IsAlive() {
		return
	}
	dir := in.Direction()
	if !dir.IsZero() {
		p.Facing = dir.Normalized()
	}
	p.Velocity = dir.Mul(p.Speed)
	p.Position = w.bounds.Clamp(p.Position.Add(p.Velocity.Mul(dt)), p.Radius)

	if p.Stats.Regen > 0 {
		p.Heal(p.Stats.Regen * dt)
	}
}

// updatePickups магнит и истечение предметов. Подбор происходит
// в бою по пересечению, независимо от притяжения.
func (w *World) updatePickups(dt float64) {
	b := &w.tables.Balance
	p := w.entities.Player()

	for _, pk := range w.entities.Pickups() {
		if !pk.Active {
			continue
		}
		d := pk.Position.DistanceTo(p.Position)
		if !pk.Attracted && p.IsAlive() && d <= b.PickupMagnetRadius {
			pk.Attract()
		}
		if pk.Attracted && d > 0 {
			step := math.Min(b.PickupAttractSpeed*dt, d)
			pk.Position = pk.Position.Add(p.Position.Sub(pk.Position).Mul(step / d))
		}
		if pk.Age(dt) {
			pk.Destroy()
		}
	}
}

// updateProjectiles полёт снарядов. Гранаты взрываются на своей дистанции,
// взрывные снаряды взрываются и при исчерпании дальности; взрыв ставится
// в очередь и разбирается вместе со столкновениями кадра.
func (w *World) updateProjectiles(dt float64) {
	b := &w.tables.Balance

	for _, pr := range w.entities.PlayerProjectiles() {
		if !pr.Active {
			continue
		}
		switch pr.Advance(dt, b.GrenadeMinSpeedFactor) {
		case entity.Detonate, entity.Expired:
			pr.Destroy()
			if pr.HasExplosive() {
				w.combat.Enqueue(combat.ExplosionFromProjectile(pr))
			}
			continue
		}
		if !w.bounds.ContainsPoint(pr.Position, b.ProjectileOffscreenMargin) {
			pr.Destroy()
		}
	}

	for _, pr := range w.entities.EnemyProjectiles() {
		if !pr.Active {
			continue
		}
		if pr.Advance(dt, b.GrenadeMinSpeedFactor) != entity.Flying ||
			!w.bounds.ContainsPoint(pr.Position, b.ProjectileOffscreenMargin) {
			pr.Destroy()
		}
	}
}

func (w *World) updateDeployables(dt float64) {
	for _, d := range w.entities.Deployables() {
		if d.Active && d.Tick(dt) {
			d.Destroy()
		}
	}
}
