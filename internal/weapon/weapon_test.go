package weapon

import (
	"math"
	"testing"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tables *config.Tables
	m      *entity.Manager
	wm     *Manager
	player *entity.Player
	rec    *eventbus.Recorder
}

func newFixture(t *testing.T, src rng.Source) *fixture {
	t.Helper()
	tables := config.MustDefaultTables()
	m := entity.NewManager()
	ch := *tables.Characters["DEFAULT"]
	ch.CritChance = 0
	player := entity.NewPlayer(m.NextID(), &ch, vec.Vec2{X: 640, Y: 360}, 10)
	m.SetPlayer(player)
	bus := eventbus.NewLocalBus()
	rec := &eventbus.Recorder{}
	bus.Subscribe(nil, rec.Listen)
	wm := NewManager(tables, m, src, bus, entity.Bounds{Width: 1280, Height: 720})
	return &fixture{tables: tables, m: m, wm: wm, player: player, rec: rec}
}

func (f *fixture) enemyAt(x, y float64) *entity.Enemy {
	e := entity.NewEnemy(f.m.NextID(), f.tables.MustEnemy("TANK"), vec.Vec2{X: x, Y: y}, 1, 1, 1)
	f.m.AddEnemy(e)
	return e
}

func TestFireInterval(t *testing.T) {
	cfg := &config.WeaponConfig{FireRate: 1.2, AttackSpeedPerLevel: 0.1}
	assert.InDelta(t, 1.2, FireInterval(cfg, 1, 1), 1e-12)
	assert.InDelta(t, 1.0, FireInterval(cfg, 3, 1), 1e-12)
	assert.InDelta(t, 0.5, FireInterval(cfg, 3, 2), 1e-12)
}

func TestLevelScale(t *testing.T) {
	assert.Equal(t, 1.0, LevelScale(1.2, 1))
	assert.InDelta(t, 1.44, LevelScale(1.2, 3), 1e-12)
	assert.Equal(t, 1.0, LevelScale(0, 5))
}

func TestAddWeapon_UnknownTypeFailsLoudly(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("RAILGUN", 0)
	assert.ErrorIs(t, err, config.ErrUnknownWeapon)
}

func TestAddWeapon_RespectsMaxWeapons(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	for i := 0; i < 6; i++ {
		_, err := f.wm.AddWeapon("PISTOL", 0)
		require.NoError(t, err)
	}
	_, err := f.wm.AddWeapon("PISTOL", 0)
	assert.ErrorIs(t, err, ErrSlotsFull)
}

func TestAddWeapon_StaggersDuplicates(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("SMG", 0)
	require.NoError(t, err)
	_, err = f.wm.AddWeapon("PISTOL", 0)
	require.NoError(t, err)
	_, err = f.wm.AddWeapon("SMG", 0)
	require.NoError(t, err)

	ws := f.player.Weapons
	assert.Equal(t, 0.0, ws[0].FireOffset)
	assert.Equal(t, 0.0, ws[1].FireOffset, "одиночное оружие без сдвига")
	assert.InDelta(t, 0.075, ws[2].FireOffset, 1e-12)
}

func TestUpgradeWeapon(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("PISTOL", 0)
	require.NoError(t, err)
	require.NoError(t, f.wm.UpgradeWeapon(0))
	require.NoError(t, f.wm.UpgradeWeapon(0))
	assert.Equal(t, 3, f.player.Weapons[0].Level)
	assert.Equal(t, 1, f.player.Weapons[0].MultishotBonus)
	assert.ErrorIs(t, f.wm.UpgradeWeapon(4), ErrNoSuchWeapon)
}

func TestUpdate_FireRateGateAndOffset(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("PISTOL", 0)
	require.NoError(t, err)
	f.enemyAt(840, 360)

	f.wm.Update(0.5)
	assert.Empty(t, f.m.PlayerProjectiles())
	f.wm.Update(0.61)
	assert.Len(t, f.m.PlayerProjectiles(), 1)
	f.wm.Update(0.9)
	assert.Len(t, f.m.PlayerProjectiles(), 1)
	f.wm.Update(1.25)
	assert.Len(t, f.m.PlayerProjectiles(), 2)

	// сдвиг разовый: после выстрела сбрасывается
	w := f.player.Weapons[0]
	w.FireOffset = 0.3
	f.wm.Update(1.9)
	assert.Len(t, f.m.PlayerProjectiles(), 2)
	f.wm.Update(2.2)
	assert.Len(t, f.m.PlayerProjectiles(), 3)
	assert.Zero(t, w.FireOffset)
}

func TestUpdate_NoTargetNoFire(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("PISTOL", 0)
	require.NoError(t, err)
	f.enemyAt(640+900, 360) // вне арены и дальности
	f.wm.Update(5)
	assert.Empty(t, f.m.PlayerProjectiles())
}

func TestUpdate_FallbackToTrackedTarget(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("PISTOL", 0)
	require.NoError(t, err)
	// точка орбиты (670,360); враг слева на 410 от неё, но в 380 от игрока
	e := f.enemyAt(260, 360)

	orbit := f.wm.OrbitPosition(f.player, 0)
	assert.Nil(t, f.wm.acquire(f.player, orbit, 400), "без отслеживаемой цели")
	f.wm.trackTarget(f.player)
	assert.Equal(t, e.ID, f.player.TargetID)
	got := f.wm.acquire(f.player, orbit, 400)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
}

func TestFire_MultiProjectileFansEvenly(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("SHOTGUN", 0)
	require.NoError(t, err)
	f.enemyAt(840, 360)
	f.wm.Update(2)

	projs := f.m.PlayerProjectiles()
	require.Len(t, projs, 5)
	origin := f.wm.OrbitPosition(f.player, 0)
	base := origin.AngleTo(vec.Vec2{X: 840, Y: 360})
	for i, p := range projs {
		want := base - 0.3 + 0.15*float64(i)
		assert.InDelta(t, want, p.Velocity.Angle(), 1e-9)
	}
}

func TestFire_SingleProjectileJittersWithinSpread(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("SMG", 0)
	require.NoError(t, err)
	f.enemyAt(840, 360)
	for i := 1; i <= 20; i++ {
		f.wm.Update(float64(i))
	}
	base := f.wm.OrbitPosition(f.player, 0).AngleTo(vec.Vec2{X: 840, Y: 360})
	require.Len(t, f.m.PlayerProjectiles(), 20)
	for _, p := range f.m.PlayerProjectiles() {
		assert.LessOrEqual(t, math.Abs(p.Velocity.Angle()-base), 0.125+1e-9)
	}
}

func TestFire_OneCritRollPerVolley(t *testing.T) {
	f := newFixture(t, rng.Fixed(0))
	f.player.Stats.CritChance = 0.5
	_, err := f.wm.AddWeapon("SHOTGUN", 0)
	require.NoError(t, err)
	f.enemyAt(840, 360)
	f.wm.Update(2)
	for _, p := range f.m.PlayerProjectiles() {
		assert.True(t, p.Crit)
		assert.Equal(t, 12*1.5, p.Damage)
	}
	fired := f.rec.OfType(eventbus.WeaponFired)
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Payload.(eventbus.WeaponFiredPayload).Crit)
}

func TestFire_ComponentsAndLevelScaling(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("ROCKET", 0)
	require.NoError(t, err)
	_, err = f.wm.AddWeapon("SNIPER", 0)
	require.NoError(t, err)
	_, err = f.wm.AddWeapon("LIGHTNING", 0)
	require.NoError(t, err)
	require.NoError(t, f.wm.UpgradeWeapon(0))
	f.enemyAt(840, 360)
	f.wm.Update(5)

	byType := map[string]*entity.Projectile{}
	for _, p := range f.m.PlayerProjectiles() {
		byType[p.Type] = p
	}
	rocket := byType["ROCKET"]
	require.NotNil(t, rocket)
	require.True(t, rocket.HasExplosive())
	assert.InDelta(t, 40*1.2, rocket.Explosive.Damage, 1e-9)
	assert.InDelta(t, 80*1.1, rocket.Explosive.Radius, 1e-9)

	sniper := byType["SNIPER"]
	require.True(t, sniper.HasPierce())
	assert.Equal(t, 4, sniper.Pierce.Remaining)

	lightning := byType["LIGHTNING"]
	require.NotNil(t, lightning.Chain)
	assert.Equal(t, 3, lightning.Chain.Count)
}

func TestFire_GrenadeTargetsEnemyDistance(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("GRENADE", 0)
	require.NoError(t, err)
	f.enemyAt(840, 360)
	f.wm.Update(5)

	projs := f.m.PlayerProjectiles()
	require.Len(t, projs, 1)
	require.True(t, projs[0].IsGrenade())
	assert.InDelta(t, 170, projs[0].Grenade.TargetRange, 1e-9)
}

func TestPlaceMine_RespectsMaxDeployed(t *testing.T) {
	f := newFixture(t, rng.New(12345))
	_, err := f.wm.AddWeapon("MINE", 0)
	require.NoError(t, err)
	for i := 1; i <= 20; i++ {
		f.wm.Update(float64(i) * 2.5)
	}
	assert.Equal(t, 8, f.m.CountActiveDeployables("MINE"))
	assert.Len(t, f.rec.OfType(eventbus.MinePlaced), 8)
	d := f.m.Deployables()[0]
	assert.False(t, d.Armed)
	assert.Equal(t, f.player.Position, d.Position)
}
