// Package combat разрешает столкновения кадра: урон, отбрасывание,
// вампиризм, шипы, подбор предметов, очередь взрывов и смерть врагов.
package combat

import (
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/physics"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// Effects косметические эффекты, которые запускает бой
type Effects interface {
	DeathBurst(pos vec.Vec2, count int)
	ExplosionFlash(pos vec.Vec2, radius float64, style config.ExplosionStyle)
}

// Snapshot производные от игрока множители, обновляются раз за кадр
type Snapshot struct {
	DamageMultiplier float64
	GoldMultiplier   float64
	XPMultiplier     float64
	ExplosionRadius  float64
	Knockback        float64
	Lifesteal        float64
	Thorns           float64
	Armor            float64
	Dodge            float64
	Luck             float64
}

// RunStats накопленная статистика забега
type RunStats struct {
	Kills         int     `json:"kills"`
	BossKills     int     `json:"boss_kills"`
	DamageDealt   float64 `json:"damage_dealt"`
	DamageTaken   float64 `json:"damage_taken"`
	GoldCollected float64 `json:"gold_collected"`
}

// System боевая система
type System struct {
	tables  *config.Tables
	balance *config.BalanceConfig
	m       *entity.Manager
	rnd     rng.Source
	bus     eventbus.Emitter
	fx      Effects

	snap  Snapshot
	now   float64
	queue []Explosion
	stats RunStats

	playerKilled bool
}

// NewSystem создаёт боевую систему. fx и bus могут быть nil.
func NewSystem(tables *config.Tables, m *entity.Manager, rnd rng.Source, bus eventbus.Emitter, fx Effects) *System {
	return &System{
		tables:  tables,
		balance: &tables.Balance,
		m:       m,
		rnd:     rnd,
		bus:     bus,
		fx:      fx,
	}
}

// BeginFrame обновляет снимок множителей игрока
func (s *System) BeginFrame(now float64) {
	s.now = now
	p := s.m.Player()
	if p == nil {
		return
	}
	st := p.Stats
	s.snap = Snapshot{
		DamageMultiplier: st.DamageMultiplier,
		GoldMultiplier:   st.GoldMultiplier,
		XPMultiplier:     st.XPMultiplier,
		ExplosionRadius:  st.ExplosionRadius,
		Knockback:        st.Knockback,
		Lifesteal:        st.Lifesteal,
		Thorns:           st.Thorns,
		Armor:            st.Armor,
		Dodge:            p.DodgeChance(s.balance.MaxDodge),
		Luck:             st.Luck,
	}
}

// Snapshot текущий снимок множителей
func (s *System) Snapshot() Snapshot { return s.snap }

// Stats статистика забега
func (s *System) Stats() RunStats { return s.stats }

// ConsumePlayerKilled сообщает (один раз), что игрок погиб в этом кадре
func (s *System) ConsumePlayerKilled() bool {
	k := s.playerKilled
	s.playerKilled = false
	return k
}

// Resolve применяет результат столкновений и разбирает очередь взрывов
func (s *System) Resolve(res physics.Result) {
	for _, e := range res.PlayerEnemy {
		s.resolveContact(e)
	}
	for _, b := range res.PlayerProjectile {
		s.resolveEnemyProjectile(b)
	}
	for _, hit := range res.ProjectileEnemy {
		s.resolveProjectileHit(hit.Projectile, hit.Enemy)
	}
	for _, pk := range res.PlayerPickup {
		s.collect(pk)
	}
	for _, tr := range res.EnemyDeployable {
		s.triggerDeployable(tr.Deployable)
	}
	s.DrainExplosions()
}

// resolveContact: уклонение, затем урон с бронёй и окно неуязвимости.
// Шипы отражают урон сразу и могут убить врага на месте.
func (s *System) resolveContact(e *entity.Enemy) {
	if !e.Active || e.IsDying() {
		return
	}
	p := s.m.Player()
	if !p.IsAlive() || p.IsInvincible(s.now) {
		return
	}
	if rng.Chance(s.rnd, s.snap.Dodge) {
		s.emit(eventbus.PlayerDodged, eventbus.PlayerDodgedPayload{Source: eventbus.SourceContact})
		return
	}
	s.hurtPlayer(e.ContactDamage(s.balance.BossContactMultiplier), eventbus.SourceContact)

	if s.snap.Thorns > 0 {
		s.DamageEnemy(e, s.snap.Thorns, false, eventbus.SourceThorns, string(eventbus.SourceThorns))
	}
}

// resolveEnemyProjectile: вражеский снаряд уничтожается при любом исходе
func (s *System) resolveEnemyProjectile(b *entity.Projectile) {
	if !b.Active {
		return
	}
	b.Destroy()
	s.DamagePlayer(b.Damage, eventbus.SourceProjectile)
}

// DamagePlayer проводит урон через неуязвимость, уклонение и броню.
// Возвращает true, если урон был нанесён.
func (s *System) DamagePlayer(amount float64, source eventbus.Source) bool {
	p := s.m.Player()
	if p == nil || !p.IsAlive() || p.IsInvincible(s.now) {
		return false
	}
	if rng.Chance(s.rnd, s.snap.Dodge) {
		s.emit(eventbus.PlayerDodged, eventbus.PlayerDodgedPayload{Source: source})
		return false
	}
	s.hurtPlayer(amount, source)
	return true
}

func (s *System) hurtPlayer(amount float64, source eventbus.Source) {
	p := s.m.Player()
	dmg := MitigatedDamage(amount, s.snap.Armor, s.balance.ArmorK)
	dead := p.TakeDamage(dmg)
	p.InvincibleUntil = s.now + s.balance.InvincibilitySeconds
	s.stats.DamageTaken += dmg
	s.emit(eventbus.PlayerHit, eventbus.PlayerHitPayload{Damage: dmg, HP: p.HP, Source: source})
	if dead {
		s.playerKilled = true
	}
}

// resolveProjectileHit урон снаряда игрока по врагу
func (s *System) resolveProjectileHit(p *entity.Projectile, e *entity.Enemy) {
	if !p.Active || !e.Active || e.IsDying() {
		return
	}

	if p.HasExplosive() {
		p.Destroy()
		s.Enqueue(ExplosionFromProjectile(p))
		return
	}

	dir := e.Position.Sub(p.Position).Normalized()
	if dir.IsZero() {
		dir = p.Velocity.Normalized()
	}
	e.ApplyKnockback(dir.Mul(s.balance.BaseKnockback * s.snap.Knockback * p.KnockbackMultiplier))

	dmg := p.Damage * s.snap.DamageMultiplier
	s.DamageEnemy(e, dmg, p.Crit, eventbus.SourceProjectile, p.Type)
	s.lifesteal(dmg)

	if p.Chain != nil && p.Chain.Count > 0 {
		s.chain(e, dmg, p)
	}

	if p.HasPierce() {
		p.Pierce.Remaining--
		if p.Pierce.Remaining > 0 {
			return
		}
	}
	p.Destroy()
}

// chain перескакивает к ближайшим ещё не поражённым врагам.
// Набор поражённых локален для одного вызова.
func (s *System) chain(first *entity.Enemy, damage float64, p *entity.Projectile) {
	c := p.Chain
	hit := map[uint64]struct{}{first.ID: {}}
	from := first.Position
	for jump := 0; jump < c.Count; jump++ {
		damage *= c.DamageShare
		next := s.nearestUnhit(from, c.Range, hit)
		if next == nil {
			return
		}
		hit[next.ID] = struct{}{}
		s.DamageEnemy(next, damage, p.Crit, eventbus.SourceChain, p.Type)
		s.lifesteal(damage)
		from = next.Position
	}
}

func (s *System) nearestUnhit(from vec.Vec2, maxRange float64, hit map[uint64]struct{}) *entity.Enemy {
	var best *entity.Enemy
	bestDist := maxRange * maxRange
	for _, e := range s.m.Enemies() {
		if !e.Active || e.IsDying() {
			continue
		}
		if _, ok := hit[e.ID]; ok {
			continue
		}
		d := from.DistanceSqTo(e.Position)
		if d <= bestDist && (best == nil || d < bestDist) {
			best = e
			bestDist = d
		}
	}
	return best
}

func (s *System) lifesteal(dealt float64) {
	if s.snap.Lifesteal <= 0 {
		return
	}
	s.m.Player().Heal(dealt * s.snap.Lifesteal)
}

// DamageEnemy наносит урон врагу и запускает обработчик смерти при
// смертельном ударе. Возвращает true, если враг погиб от этого удара.
func (s *System) DamageEnemy(e *entity.Enemy, amount float64, crit bool, source eventbus.Source, killer string) bool {
	if !e.Active || e.IsDying() {
		return false
	}
	lethal := e.TakeDamage(amount)
	s.stats.DamageDealt += amount
	s.emit(eventbus.EnemyDamaged, eventbus.EnemyDamagedPayload{
		EnemyID:   e.ID,
		EnemyType: e.Type,
		Amount:    amount,
		Crit:      crit,
		Source:    source,
	})
	if lethal {
		s.handleDeath(e, source, killer)
	}
	return lethal
}

// collect подбор предмета. Множитель золота применяется здесь, а не при дропе.
func (s *System) collect(pk *entity.Pickup) {
	if !pk.Active {
		return
	}
	p := s.m.Player()
	pk.Destroy()
	switch pk.Type {
	case entity.PickupGold:
		amount := pk.Value * s.snap.GoldMultiplier
		p.Gold += amount
		s.stats.GoldCollected += amount
		s.emit(eventbus.GoldCollected, eventbus.CollectedPayload{Amount: amount, Total: p.Gold})
	case entity.PickupHealth:
		healed := p.Heal(pk.Value)
		s.emit(eventbus.HealthCollected, eventbus.CollectedPayload{Amount: healed, Total: p.HP})
	}
}

func (s *System) triggerDeployable(d *entity.Deployable) {
	if !d.Active || !d.Armed {
		return
	}
	d.Destroy()
	s.Enqueue(Explosion{
		Position:  d.Position,
		Radius:    d.Explosive.Radius,
		Damage:    d.Explosive.Damage,
		Style:     d.Explosive.Style,
		Knockback: 1,
		Killer:    d.Type,
	})
}

// ExplosionFromProjectile строит взрыв из взрывного компонента снаряда
func ExplosionFromProjectile(p *entity.Projectile) Explosion {
	ex := p.Explosive
	return Explosion{
		Position:    p.Position,
		Radius:      ex.Radius,
		Damage:      ex.Damage,
		Style:       ex.Style,
		Knockback:   p.KnockbackMultiplier,
		SpawnsMinis: ex.SpawnsMinis,
		IsMini:      ex.IsMini,
		Killer:      p.Type,
	}
}

func (s *System) emit(t eventbus.Type, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventbus.Event{Type: t, Time: s.now, Payload: payload})
}
