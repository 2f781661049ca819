package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables_Load(t *testing.T) {
	tables, err := DefaultTables()
	require.NoError(t, err)

	basic, err := tables.Enemy("BASIC")
	require.NoError(t, err)
	assert.Equal(t, "BASIC", basic.Name)
	assert.Equal(t, 20.0, basic.HP, "базовый враг должен иметь 20 hp")

	pistol, err := tables.Weapon("PISTOL")
	require.NoError(t, err)
	assert.Equal(t, CategoryGun, pistol.Category)
	assert.Equal(t, 25.0, pistol.Damage)

	for _, boss := range tables.Waves.BossRotation {
		e := tables.MustEnemy(boss)
		assert.True(t, e.IsBoss, "%s должен быть боссом", boss)
	}
}

func TestTables_UnknownKeysFailLoudly(t *testing.T) {
	tables := MustDefaultTables()

	_, err := tables.Weapon("LASER_SWORD")
	assert.True(t, errors.Is(err, ErrUnknownWeapon))

	_, err = tables.Enemy("DRAGON")
	assert.True(t, errors.Is(err, ErrUnknownEnemy))

	_, err = tables.Character("NOBODY")
	assert.True(t, errors.Is(err, ErrUnknownCharacter))

	assert.Panics(t, func() { tables.MustEnemy("DRAGON") })
	assert.Panics(t, func() { tables.MustWeapon("LASER_SWORD") })
}

func TestParseTables_RejectsDanglingReferences(t *testing.T) {
	doc := []byte(`
enemies:
  BASIC: {hp: 10}
waves:
  spawn_table:
    - min_wave: 1
      weights: {BASIC: 0.5, GHOST: 0.5}
`)
	_, err := ParseTables(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTables))
	assert.True(t, errors.Is(err, ErrUnknownEnemy))

	doc = []byte(`
characters:
  HERO: {hp: 10, starting_weapon: BOW}
enemies:
  BASIC: {hp: 10}
waves:
  spawn_table:
    - min_wave: 1
      weights: {BASIC: 1}
`)
	_, err = ParseTables(doc)
	assert.True(t, errors.Is(err, ErrUnknownWeapon))
}

func TestParseTables_RejectsNonPositiveSpawnInterval(t *testing.T) {
	doc := []byte(`
enemies:
  BASIC: {hp: 10}
waves:
  spawn_interval_base: 0
  spawn_interval_min: 0
  spawn_table:
    - min_wave: 1
      weights: {BASIC: 1}
`)
	_, err := ParseTables(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTables))
	assert.Contains(t, err.Error(), "spawn_interval_min")

	doc = []byte(`
enemies:
  BASIC: {hp: 10}
waves:
  spawn_interval_min: 0.5
  spawn_table:
    - min_wave: 1
      weights: {BASIC: 1}
`)
	_, err = ParseTables(doc)
	assert.NoError(t, err)
}

func TestSpawnRow_Pick(t *testing.T) {
	tables := MustDefaultTables()

	row := tables.Waves.RowForWave(1)
	assert.Equal(t, "BASIC", row.Pick(0))
	assert.Equal(t, "BASIC", row.Pick(0.999))

	// Строка волны 2: BASIC 0.7, FAST 0.3, имена отсортированы
	row = tables.Waves.RowForWave(2)
	assert.Equal(t, "BASIC", row.Pick(0.1))
	assert.Equal(t, "FAST", row.Pick(0.9))

	// Между строками действует последняя подходящая
	assert.Equal(t, tables.Waves.RowForWave(8), tables.Waves.RowForWave(9))
	assert.Equal(t, 10, tables.Waves.RowForWave(50).MinWave)
}

func TestSpawnRow_TypesIntroducedProgressively(t *testing.T) {
	tables := MustDefaultTables()

	seen := map[string]int{}
	for wave := 1; wave <= 12; wave++ {
		for name := range tables.Waves.RowForWave(wave).Weights {
			if _, ok := seen[name]; !ok {
				seen[name] = wave
			}
		}
	}
	assert.Equal(t, 1, seen["BASIC"])
	assert.Equal(t, 2, seen["FAST"])
	assert.Equal(t, 7, seen["SPLITTER"])
	assert.Equal(t, 10, seen["SPREADER"])
}

func TestGetIntWithEnvFallback(t *testing.T) {
	t.Setenv("ARENA_TEST_PORT", "9100")
	assert.Equal(t, 7000, getIntWithEnvFallback(7000, "ARENA_TEST_PORT", 1))
	assert.Equal(t, 9100, getIntWithEnvFallback(0, "ARENA_TEST_PORT", 1))
	assert.Equal(t, 1, getIntWithEnvFallback(0, "ARENA_TEST_MISSING", 1))
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Setenv("ARENA_CONFIG", "")
	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}
