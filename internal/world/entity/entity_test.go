package entity

import (
	"math"
	"testing"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCharacter() *config.CharacterConfig {
	return &config.CharacterConfig{Name: "DEFAULT", HP: 100, Speed: 200, Radius: 14, CritDamage: 1.5, MaxWeapons: 6}
}

func TestPlayer_HPBounds(t *testing.T) {
	p := NewPlayer(1, testCharacter(), vec.Vec2{}, 10)

	assert.Equal(t, 0.0, p.Heal(50), "лечение не превышает MaxHP")
	assert.Equal(t, 100.0, p.HP)

	assert.False(t, p.TakeDamage(30))
	assert.Equal(t, 70.0, p.HP)
	assert.Equal(t, 30.0, p.Heal(1000))

	assert.True(t, p.TakeDamage(500))
	assert.Equal(t, 0.0, p.HP, "hp не опускается ниже нуля")
	assert.Equal(t, 0.0, p.Heal(10), "мёртвого не лечим")
}

func TestPlayer_DodgeCapped(t *testing.T) {
	p := NewPlayer(1, testCharacter(), vec.Vec2{}, 10)
	require.NoError(t, p.ApplyUpgrade("dodge", 0.9))
	assert.Equal(t, 0.6, p.DodgeChance(0.6))
	p.Stats.Dodge = -1
	assert.Equal(t, 0.0, p.DodgeChance(0.6))
}

func TestPlayer_AddXP(t *testing.T) {
	p := NewPlayer(1, testCharacter(), vec.Vec2{}, 10)
	assert.Equal(t, 0, p.AddXP(5, 1.25))
	assert.Equal(t, 1, p.AddXP(6, 1.25))
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 1.0, p.XP)
	assert.Equal(t, 13.0, p.XPToNext)
}

func TestPlayer_ApplyUpgradeUnknown(t *testing.T) {
	p := NewPlayer(1, testCharacter(), vec.Vec2{}, 10)
	assert.Error(t, p.ApplyUpgrade("flight", 1))
	require.NoError(t, p.ApplyUpgrade("max_hp", 20))
	assert.Equal(t, 120.0, p.MaxHP)
	assert.Equal(t, 120.0, p.HP)
}

func TestEnemy_DeathFiresOnce(t *testing.T) {
	e := NewEnemy(1, basicConfig(), vec.Vec2{}, 1, 1, 1)
	assert.False(t, e.TakeDamage(10))
	assert.True(t, e.TakeDamage(15))
	assert.Equal(t, 0.0, e.HP)
	assert.True(t, e.MarkDying())
	assert.False(t, e.MarkDying())
	assert.False(t, e.TakeDamage(5), "умирающий враг не умирает повторно")
}

func TestEnemy_ScaleSnapshot(t *testing.T) {
	e := NewEnemy(1, basicConfig(), vec.Vec2{}, 0.6, 2, 1.5)
	assert.InDelta(t, 20*0.6*2, e.Stats.MaxHP, 1e-9)
	assert.InDelta(t, 10*0.6*1.5, e.Stats.Damage, 1e-9)
	assert.InDelta(t, 12*0.6, e.Radius, 1e-9)
	assert.Equal(t, e.Stats.MaxHP, e.HP)
}

func TestEnemy_NextPatternCycles(t *testing.T) {
	cfg := basicConfig()
	cfg.Patterns = []config.AttackPattern{config.PatternSpread, config.PatternShockwave}
	e := NewEnemy(1, cfg, vec.Vec2{}, 1, 1, 1)
	assert.Equal(t, config.PatternSpread, e.NextPattern())
	assert.Equal(t, config.PatternShockwave, e.NextPattern())
	assert.Equal(t, config.PatternSpread, e.NextPattern())
}

func TestPierce_HitBookkeeping(t *testing.T) {
	p := NewPierce(2)
	assert.False(t, p.HasHit(7))
	p.MarkHit(7)
	p.MarkHit(7)
	assert.True(t, p.HasHit(7))
	assert.Equal(t, 1, p.HitCount())
}

func TestProjectile_AdvanceExpires(t *testing.T) {
	p := NewProjectile(1, "PISTOL", 1, vec.Vec2{}, 0, 100, 4, 10, 150)
	assert.Equal(t, Flying, p.Advance(1, 0.25))
	assert.InDelta(t, 100, p.Position.X, 1e-9)
	assert.Equal(t, Expired, p.Advance(1, 0.25))
}

func TestProjectile_GrenadeSlowsAndDetonatesAtRange(t *testing.T) {
	p := NewProjectile(1, "GRENADE", 1, vec.Vec2{X: 10, Y: 10}, math.Pi/2, 300, 6, 35, 0)
	p.MakeGrenade(80)

	prevSpeed := math.Inf(1)
	state := Flying
	steps := 0
	for state == Flying && steps < 1000 {
		state = p.Advance(1.0/60, 0.25)
		speed := p.Velocity.Length()
		assert.LessOrEqual(t, speed, prevSpeed+1e-9, "граната не ускоряется")
		assert.GreaterOrEqual(t, speed, 300*0.25-1e-9)
		prevSpeed = speed
		steps++
	}
	require.Equal(t, Detonate, state)
	assert.InDelta(t, 80, p.Traveled, 1e-9)
	assert.InDelta(t, 10, p.Position.X, 1e-9)
	assert.InDelta(t, 90, p.Position.Y, 1e-9)
}

func TestDeployable_Arming(t *testing.T) {
	d := NewDeployable(1, "MINE", 1, vec.Vec2{}, 1.0, 20, 5, Explosive{Radius: 90, Damage: 50})
	assert.False(t, d.Armed)
	assert.False(t, d.Tick(0.5))
	assert.False(t, d.Armed)
	assert.False(t, d.Tick(0.6))
	assert.True(t, d.Armed)
	assert.True(t, d.Tick(4))
}

func TestPickup_AttractionIsSticky(t *testing.T) {
	p := NewPickup(1, PickupGold, vec.Vec2{}, 8, 1, 1)
	p.Attract()
	assert.False(t, p.Age(10), "притягиваемый предмет не истекает")
	assert.True(t, p.Attracted)

	q := NewPickup(2, PickupHealth, vec.Vec2{}, 8, 20, 1)
	assert.False(t, q.Age(0.5))
	assert.True(t, q.Age(0.6))
}

func TestBounds(t *testing.T) {
	b := Bounds{Width: 100, Height: 50}
	assert.True(t, b.Contains(vec.Vec2{X: 50, Y: 25}, 10))
	assert.False(t, b.Contains(vec.Vec2{X: 5, Y: 25}, 10))
	assert.Equal(t, vec.Vec2{X: 10, Y: 40}, b.Clamp(vec.Vec2{X: -5, Y: 100}, 10))
}
