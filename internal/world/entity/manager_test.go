package entity

import (
	"testing"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicConfig() *config.EnemyConfig {
	return &config.EnemyConfig{Name: "BASIC", HP: 20, Speed: 70, Damage: 10, XPValue: 1, GoldValue: 1, Radius: 12}
}

func spawnEnemy(m *Manager, x, y float64) *Enemy {
	e := NewEnemy(m.NextID(), basicConfig(), vec.Vec2{X: x, Y: y}, 1, 1, 1)
	m.AddEnemy(e)
	return e
}

func TestManager_NextIDMonotonic(t *testing.T) {
	m := NewManager()
	prev := m.NextID()
	for i := 0; i < 100; i++ {
		id := m.NextID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestManager_InactiveNeverReappears(t *testing.T) {
	m := NewManager()
	a := spawnEnemy(m, 10, 10)
	b := spawnEnemy(m, 20, 20)

	a.Destroy()
	active := m.ActiveEnemies()
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)
	assert.Equal(t, 1, m.CountActiveEnemies())

	// До Compact сырая коллекция содержит обоих
	assert.Len(t, m.Enemies(), 2)

	removed := m.Compact()
	assert.Equal(t, 1, removed)
	assert.Len(t, m.Enemies(), 1)

	// Следующие кадры: a не появляется и не считается повторно
	for frame := 0; frame < 3; frame++ {
		for _, e := range m.ActiveEnemies() {
			assert.NotEqual(t, a.ID, e.ID)
		}
		assert.Equal(t, 0, m.Compact())
	}
	_, ok := m.GetEnemy(a.ID)
	assert.False(t, ok)
}

func TestManager_GetNearestEnemy(t *testing.T) {
	m := NewManager()
	far := spawnEnemy(m, 300, 0)
	near := spawnEnemy(m, 100, 0)
	tie := spawnEnemy(m, -100, 0)
	_ = far

	origin := vec.Vec2{}
	got := m.GetNearestEnemy(origin, 500, nil)
	require.NotNil(t, got)
	assert.Equal(t, near.ID, got.ID, "при равенстве побеждает первый встреченный")

	near.Destroy()
	got = m.GetNearestEnemy(origin, 500, nil)
	require.NotNil(t, got)
	assert.Equal(t, tie.ID, got.ID)

	assert.Nil(t, m.GetNearestEnemy(origin, 50, nil), "вне дальности nil")

	// Дальность включительна
	got = m.GetNearestEnemy(origin, 100, nil)
	require.NotNil(t, got)
	assert.Equal(t, tie.ID, got.ID)

	// Враги вне арены не выбираются
	bounds := &Bounds{Width: 1000, Height: 1000}
	got = m.GetNearestEnemy(origin, 500, bounds)
	require.NotNil(t, got)
	assert.Equal(t, far.ID, got.ID)
}

func TestManager_GetEnemiesInRadiusInclusive(t *testing.T) {
	m := NewManager()
	inside := spawnEnemy(m, 30, 40) // расстояние ровно 50
	spawnEnemy(m, 60, 0)
	dead := spawnEnemy(m, 1, 1)
	dead.Destroy()

	got := m.GetEnemiesInRadius(vec.Vec2{}, 50)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)
}

func TestManager_DestroyAllEnemies(t *testing.T) {
	m := NewManager()
	spawnEnemy(m, 1, 1)
	spawnEnemy(m, 2, 2)
	bullet := NewProjectile(m.NextID(), EnemyBulletType, 1, vec.Vec2{}, 0, 100, 4, 5, 0)
	m.AddEnemyProjectile(bullet)

	assert.Equal(t, 2, m.DestroyAllEnemies())
	assert.Equal(t, 0, m.CountActiveEnemies())
	assert.False(t, bullet.Active)
	for _, e := range m.Enemies() {
		assert.True(t, e.IsDying(), "пропуск волны блокирует обработчик смерти")
	}
}

func TestManager_HasActiveBoss(t *testing.T) {
	m := NewManager()
	spawnEnemy(m, 0, 0)
	assert.False(t, m.HasActiveBoss())

	cfg := basicConfig()
	cfg.IsBoss = true
	boss := NewEnemy(m.NextID(), cfg, vec.Vec2{}, 1, 1, 1)
	m.AddEnemy(boss)
	assert.True(t, m.HasActiveBoss())

	boss.Destroy()
	assert.False(t, m.HasActiveBoss())
}
