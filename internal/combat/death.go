package combat

import (
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// handleDeath срабатывает ровно один раз на смерть.
// Порядок: опыт, золото, бонусы удачи, частицы, взрыв, деление, уничтожение.
func (s *System) handleDeath(e *entity.Enemy, source eventbus.Source, killer string) {
	if !e.MarkDying() {
		return
	}
	b := s.balance

	s.stats.Kills++
	if e.IsBoss {
		s.stats.BossKills++
	}
	s.emit(eventbus.EnemyDeath, eventbus.EnemyDeathPayload{
		EnemyID:   e.ID,
		EnemyType: e.Type,
		IsBoss:    e.IsBoss,
		Position:  e.Position,
		Source:    source,
		Killer:    killer,
	})

	if p := s.m.Player(); p != nil && p.IsAlive() {
		if levels := p.AddXP(e.Stats.XPValue*s.snap.XPMultiplier, b.XPLevelGrowth); levels > 0 {
			s.emit(eventbus.PlayerLevelUp, eventbus.LevelUpPayload{Level: p.Level})
		}
	}

	s.dropGold(e)

	if rng.Chance(s.rnd, s.snap.Luck) && e.Stats.GoldValue > 0 {
		s.addPickup(entity.PickupGold, vec.RandomPointInCircle(s.rnd, e.Position, b.GoldDropOffset), e.Stats.GoldValue, b.GoldLifetime)
	}
	if rng.Chance(s.rnd, b.HealthDropBaseChance+s.snap.Luck*b.HealthDropLuckMultiplier) {
		s.addPickup(entity.PickupHealth, vec.RandomPointInCircle(s.rnd, e.Position, b.GoldDropOffset), b.HealthPickupValue, b.HealthLifetime)
	}

	if s.fx != nil {
		tier := e.Config.Tier
		if tier < 1 {
			tier = 1
		}
		s.fx.DeathBurst(e.Position, tier*b.DeathParticlesPerTier)
	}

	if e.ExplodeOnDeath {
		s.Enqueue(Explosion{
			Position: e.Position,
			Radius:   b.EnemyExplosionRadius,
			Damage:   e.Stats.Damage * b.EnemyExplosionDamageShare,
			Style:    config.StyleFire,
			Hostile:  true,
			Killer:   e.Type,
		})
	}

	if e.SplitOnDeath && e.SplitCount > 0 {
		s.split(e)
	}

	e.Destroy()
}

// dropGold: босс оставляет центральный мешок с половиной стоимости
// и несколько мелких вокруг; обычный враг один мешок рядом.
func (s *System) dropGold(e *entity.Enemy) {
	b := s.balance
	value := e.Stats.GoldValue
	if value <= 0 {
		return
	}
	if !e.IsBoss {
		s.addPickup(entity.PickupGold, vec.RandomPointInCircle(s.rnd, e.Position, b.GoldDropOffset), value, b.GoldLifetime)
		return
	}

	central := value * b.BossGoldCentralShare
	s.addPickup(entity.PickupGold, e.Position, central, b.GoldLifetime)

	n := rng.IntRange(s.rnd, b.BossGoldScatterMin, b.BossGoldScatterMax)
	if n <= 0 {
		return
	}
	share := (value - central) / float64(n)
	offset := vec.RandomAngle(s.rnd)
	for i := 0; i < n; i++ {
		angle := offset + 2*math.Pi*float64(i)/float64(n)
		s.addPickup(entity.PickupGold, e.Position.Add(vec.FromAngle(angle, b.BossGoldScatterRadius)), share, b.GoldLifetime)
	}
}

func (s *System) addPickup(t entity.PickupType, pos vec.Vec2, value, lifetime float64) {
	s.m.AddPickup(entity.NewPickup(s.m.NextID(), t, pos, s.balance.PickupRadius, value, lifetime))
}

// split порождает осколки равномерно по окружности вокруг родителя.
// Осколки не делятся и наследуют волновое масштабирование родителя.
func (s *System) split(parent *entity.Enemy) {
	b := s.balance
	cfg := parent.Config
	if cfg.SplitInto != "" {
		cfg = s.tables.MustEnemy(cfg.SplitInto)
	}
	hpMult, dmgMult := waveMultipliers(parent)

	n := parent.SplitCount
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pos := parent.Position.Add(vec.FromAngle(angle, b.SplitRadius))
		child := entity.NewEnemy(s.m.NextID(), cfg, pos, b.SplitScale, hpMult, dmgMult)
		child.SplitOnDeath = false
		child.IsBoss = false
		child.EnteredArena = parent.EnteredArena
		s.m.AddEnemy(child)
	}
}

// waveMultipliers восстанавливает волновые множители из снимка характеристик
func waveMultipliers(e *entity.Enemy) (hp, damage float64) {
	hp, damage = 1, 1
	base := e.Config.HP * e.Scale
	if base > 0 {
		hp = e.Stats.MaxHP / base
	}
	base = e.Config.Damage * e.Scale
	if base > 0 {
		damage = e.Stats.Damage / base
	}
	return hp, damage
}
