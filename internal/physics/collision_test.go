package physics

import (
	"testing"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld() *entity.Manager {
	m := entity.NewManager()
	ch := &config.CharacterConfig{Name: "DEFAULT", HP: 100, Speed: 200, Radius: 10, MaxWeapons: 6}
	m.SetPlayer(entity.NewPlayer(m.NextID(), ch, vec.Vec2{X: 0, Y: 0}, 10))
	return m
}

func addEnemy(m *entity.Manager, x, y float64, mutate func(*config.EnemyConfig)) *entity.Enemy {
	cfg := &config.EnemyConfig{Name: "BASIC", HP: 20, Damage: 10, Radius: 10}
	if mutate != nil {
		mutate(cfg)
	}
	e := entity.NewEnemy(m.NextID(), cfg, vec.Vec2{X: x, Y: y}, 1, 1, 1)
	m.AddEnemy(e)
	return e
}

func TestOverlap_StrictInequality(t *testing.T) {
	assert.True(t, Overlap(vec.Vec2{}, 5, vec.Vec2{X: 9.99}, 5))
	assert.False(t, Overlap(vec.Vec2{}, 5, vec.Vec2{X: 10}, 5), "касание не считается пересечением")
}

func TestDetect_PlayerEnemySkipsPhasingAndInactive(t *testing.T) {
	m := newWorld()
	normal := addEnemy(m, 5, 0, nil)
	addEnemy(m, 0, 5, func(c *config.EnemyConfig) { c.Phasing = true })
	dead := addEnemy(m, -5, 0, nil)
	dead.Destroy()

	res := NewCollisionSystem().Detect(m)
	require.Len(t, res.PlayerEnemy, 1)
	assert.Equal(t, normal.ID, res.PlayerEnemy[0].ID)
}

func TestDetect_NonPiercingStopsAtFirstInCollectionOrder(t *testing.T) {
	m := newWorld()
	farther := addEnemy(m, 108, 0, nil) // добавлен первым, но дальше
	nearer := addEnemy(m, 100, 0, nil)
	_ = nearer

	p := entity.NewProjectile(m.NextID(), "PISTOL", 1, vec.Vec2{X: 100, Y: 0}, 0, 0, 4, 25, 0)
	m.AddPlayerProjectile(p)

	res := NewCollisionSystem().Detect(m)
	require.Len(t, res.ProjectileEnemy, 1)
	assert.Equal(t, farther.ID, res.ProjectileEnemy[0].Enemy.ID, "порядок коллекции, а не расстояние")
}

func TestDetect_PiercingBoundedAndNoRepeat(t *testing.T) {
	m := newWorld()
	for i := 0; i < 5; i++ {
		addEnemy(m, 200, 0, nil) // все враги в одной точке
	}
	p := entity.NewProjectile(m.NextID(), "SNIPER", 1, vec.Vec2{X: 200, Y: 0}, 0, 0, 4, 60, 0)
	p.Pierce = entity.NewPierce(3)
	m.AddPlayerProjectile(p)

	cs := NewCollisionSystem()
	res := cs.Detect(m)
	require.Len(t, res.ProjectileEnemy, 3)

	// Следующий кадр: те же враги не засчитываются повторно
	seen := map[uint64]bool{}
	for _, h := range res.ProjectileEnemy {
		seen[h.Enemy.ID] = true
	}
	res = cs.Detect(m)
	for _, h := range res.ProjectileEnemy {
		assert.False(t, seen[h.Enemy.ID], "враг %d поражён повторно", h.Enemy.ID)
	}
}

func TestDetect_GrenadeStoppedByEnemy(t *testing.T) {
	m := newWorld()
	e := addEnemy(m, 300, 0, nil)
	mini := entity.NewProjectile(m.NextID(), "MINI_BANANA", 1, vec.Vec2{X: 300, Y: 0}, 0, 250, 6, 18, 0)
	mini.Explosive = &entity.Explosive{Radius: 40, Damage: 18, Style: config.StyleBanana, IsMini: true}
	mini.MakeGrenade(80)
	m.AddPlayerProjectile(mini)

	res := NewCollisionSystem().Detect(m)
	require.Len(t, res.ProjectileEnemy, 1)
	assert.Equal(t, mini.ID, res.ProjectileEnemy[0].Projectile.ID)
	assert.Equal(t, e.ID, res.ProjectileEnemy[0].Enemy.ID)
	assert.Less(t, mini.Traveled, mini.Grenade.TargetRange)
}

func TestDetect_DeployableRequiresArmed(t *testing.T) {
	m := newWorld()
	addEnemy(m, 400, 400, nil)
	mine := entity.NewDeployable(m.NextID(), "MINE", 1, vec.Vec2{X: 400, Y: 400}, 1, 20, 10, entity.Explosive{Radius: 90, Damage: 50})
	m.AddDeployable(mine)

	cs := NewCollisionSystem()
	assert.Empty(t, cs.Detect(m).EnemyDeployable)

	mine.Tick(1.5)
	res := cs.Detect(m)
	require.Len(t, res.EnemyDeployable, 1)
	assert.Equal(t, mine.ID, res.EnemyDeployable[0].Deployable.ID)
}

func TestDetect_PickupsAndEnemyProjectiles(t *testing.T) {
	m := newWorld()
	gold := entity.NewPickup(m.NextID(), entity.PickupGold, vec.Vec2{X: 3, Y: 0}, 8, 1, 10)
	m.AddPickup(gold)
	far := entity.NewPickup(m.NextID(), entity.PickupGold, vec.Vec2{X: 300, Y: 0}, 8, 1, 10)
	m.AddPickup(far)
	bullet := entity.NewProjectile(m.NextID(), entity.EnemyBulletType, 99, vec.Vec2{X: 0, Y: 4}, 0, 0, 5, 8, 0)
	m.AddEnemyProjectile(bullet)

	res := NewCollisionSystem().Detect(m)
	require.Len(t, res.PlayerPickup, 1)
	assert.Equal(t, gold.ID, res.PlayerPickup[0].ID)
	require.Len(t, res.PlayerProjectile, 1)
	assert.False(t, res.Empty())
}

func TestDetect_DeadPlayerHasNoContacts(t *testing.T) {
	m := newWorld()
	addEnemy(m, 0, 0, nil)
	m.Player().TakeDamage(1000)

	res := NewCollisionSystem().Detect(m)
	assert.Empty(t, res.PlayerEnemy)
}
