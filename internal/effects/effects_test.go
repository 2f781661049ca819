package effects

import (
	"testing"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/rng"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShockwaveHitsPlayerOnce(t *testing.T) {
	s := NewSystem(rng.New(12345))
	s.SpawnShockwave(7, vec.Vec2{}, 250, 200, 25)

	player := vec.Vec2{X: 100}
	var hits []ShockwaveHit
	for i := 0; i < 120; i++ {
		hits = append(hits, s.Update(1.0/60, player, 14, true)...)
	}
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(7), hits[0].OwnerID)
	assert.Equal(t, 25.0, hits[0].Damage)
	assert.Empty(t, s.Shockwaves(), "кольцо исчезает на максимальном радиусе")
}

func TestShockwaveMissesPlayerOutsideRange(t *testing.T) {
	s := NewSystem(rng.New(12345))
	s.SpawnShockwave(1, vec.Vec2{}, 100, 200, 25)
	for i := 0; i < 120; i++ {
		assert.Empty(t, s.Update(1.0/60, vec.Vec2{X: 300}, 14, true))
	}
}

func TestParticlesExpireAndCap(t *testing.T) {
	s := NewSystem(rng.New(12345))
	s.DeathBurst(vec.Vec2{}, 12)
	s.ExplosionFlash(vec.Vec2{}, 80, config.StyleNuke)
	assert.Len(t, s.Particles(), 12)
	assert.Len(t, s.Flashes(), 1)

	s.Update(1, vec.Vec2{}, 10, true)
	assert.Empty(t, s.Particles())
	assert.Empty(t, s.Flashes())

	s.DeathBurst(vec.Vec2{}, MaxParticles+50)
	assert.Len(t, s.Particles(), MaxParticles)
}
