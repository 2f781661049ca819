package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTablesYAML []byte

var (
	ErrUnknownWeapon    = errors.New("unknown weapon type")
	ErrUnknownEnemy     = errors.New("unknown enemy type")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrInvalidTables    = errors.New("invalid game tables")
)

// WeaponCategory определяет способ применения оружия
type WeaponCategory string

const (
	CategoryGun        WeaponCategory = "gun"
	CategoryGrenade    WeaponCategory = "grenade"
	CategoryDeployable WeaponCategory = "deployable"
)

// ExplosionStyle визуальный тег взрыва для слушателей
type ExplosionStyle string

const (
	StyleStandard ExplosionStyle = "standard"
	StyleNuke     ExplosionStyle = "nuke"
	StyleHoly     ExplosionStyle = "holy"
	StyleBanana   ExplosionStyle = "banana"
	StyleFire     ExplosionStyle = "fire"
)

// AttackPattern шаблон дальней атаки врага
type AttackPattern string

const (
	PatternSingle    AttackPattern = "single"
	PatternSpread    AttackPattern = "spread"
	PatternShockwave AttackPattern = "shockwave"
)

// WeaponConfig неизменяемые параметры типа оружия
type WeaponConfig struct {
	Name     string         `yaml:"-"`
	Category WeaponCategory `yaml:"category"`

	FireRate         float64 `yaml:"fire_rate"` // секунд между выстрелами на 1 уровне
	Damage           float64 `yaml:"damage"`
	ProjectileSpeed  float64 `yaml:"projectile_speed"`
	ProjectileRadius float64 `yaml:"projectile_radius"`
	Range            float64 `yaml:"range"`
	ProjectileCount  int     `yaml:"projectile_count"`
	Spread           float64 `yaml:"spread"` // радианы

	Pierce           int     `yaml:"pierce"`
	ChainCount       int     `yaml:"chain_count"`
	ChainRange       float64 `yaml:"chain_range"`
	ChainDamageShare float64 `yaml:"chain_damage_share"`

	ExplosionRadius float64        `yaml:"explosion_radius"`
	ExplosionStyle  ExplosionStyle `yaml:"explosion_style"`
	SpawnsMinis     bool           `yaml:"spawns_minis"`

	KnockbackMultiplier float64 `yaml:"knockback_multiplier"`

	DamagePerLevel      float64 `yaml:"damage_per_level"`       // геометрический множитель
	RadiusPerLevel      float64 `yaml:"radius_per_level"`       // геометрический множитель
	AttackSpeedPerLevel float64 `yaml:"attack_speed_per_level"` // линейная прибавка

	// Только для установленных объектов
	ArmTime       float64 `yaml:"arm_time"`
	TriggerRadius float64 `yaml:"trigger_radius"`
	Lifetime      float64 `yaml:"lifetime"`
	MaxDeployed   int     `yaml:"max_deployed"`
}

// IsExplosive сообщает, взрываются ли снаряды этого оружия
func (w *WeaponConfig) IsExplosive() bool { return w.ExplosionRadius > 0 }

// EnemyConfig неизменяемые параметры типа врага (и босса)
type EnemyConfig struct {
	Name string `yaml:"-"`

	HP        float64 `yaml:"hp"`
	Speed     float64 `yaml:"speed"`
	Damage    float64 `yaml:"damage"`
	XPValue   float64 `yaml:"xp"`
	GoldValue float64 `yaml:"gold"`
	Radius    float64 `yaml:"radius"`
	Tier      int     `yaml:"tier"`

	IsBoss         bool    `yaml:"boss"`
	Phasing        bool    `yaml:"phasing"`
	Zigzag         bool    `yaml:"zigzag"`
	ZigzagAmp      float64 `yaml:"zigzag_amplitude"`
	ZigzagFreq     float64 `yaml:"zigzag_frequency"`
	ExplodeOnDeath bool    `yaml:"explode_on_death"`
	SplitOnDeath   bool    `yaml:"split_on_death"`
	SplitCount     int     `yaml:"split_count"`
	SplitInto      string  `yaml:"split_into"` // тип осколков; пусто означает тот же тип
	KeepDistance   float64 `yaml:"keep_distance"`

	CanShoot        bool            `yaml:"can_shoot"`
	FireRate        float64         `yaml:"fire_rate"`
	BulletSpeed     float64         `yaml:"bullet_speed"`
	BulletDamage    float64         `yaml:"bullet_damage"`
	BulletRadius    float64         `yaml:"bullet_radius"`
	Patterns        []AttackPattern `yaml:"patterns"`
	SpreadCount     int             `yaml:"spread_count"`
	SpreadAngle     float64         `yaml:"spread_angle"`
	ShockwaveRadius float64         `yaml:"shockwave_radius"`
	ShockwaveSpeed  float64         `yaml:"shockwave_speed"`
	ShockwaveDamage float64         `yaml:"shockwave_damage"`

	// Масштабирование боссов по номеру появления
	HPScalePerWave     float64 `yaml:"hp_scale_per_wave"`
	DamageScalePerWave float64 `yaml:"damage_scale_per_wave"`
}

// CharacterConfig стартовые характеристики игрока
type CharacterConfig struct {
	Name           string  `yaml:"-"`
	HP             float64 `yaml:"hp"`
	Speed          float64 `yaml:"speed"`
	Radius         float64 `yaml:"radius"`
	Armor          float64 `yaml:"armor"`
	CritChance     float64 `yaml:"crit_chance"`
	CritDamage     float64 `yaml:"crit_damage"`
	Dodge          float64 `yaml:"dodge"`
	Luck           float64 `yaml:"luck"`
	Regen          float64 `yaml:"regen"`
	MaxWeapons     int     `yaml:"max_weapons"`
	StartingWeapon string  `yaml:"starting_weapon"`
}

// BalanceConfig глобальные константы боевой системы
type BalanceConfig struct {
	ArmorK               float64 `yaml:"armor_k"`
	MaxDodge             float64 `yaml:"max_dodge"`
	InvincibilitySeconds float64 `yaml:"invincibility_seconds"`

	KnockbackDecayPerFrame float64 `yaml:"knockback_decay_per_frame"`
	BaseKnockback          float64 `yaml:"base_knockback"`
	ExplosionFalloff       float64 `yaml:"explosion_falloff"`
	BossContactMultiplier  float64 `yaml:"boss_contact_multiplier"`

	HealthDropBaseChance     float64 `yaml:"health_drop_base_chance"`
	HealthDropLuckMultiplier float64 `yaml:"health_drop_luck_multiplier"`
	HealthPickupValue        float64 `yaml:"health_pickup_value"`
	GoldLifetime             float64 `yaml:"gold_lifetime"`
	HealthLifetime           float64 `yaml:"health_lifetime"`
	PickupRadius             float64 `yaml:"pickup_radius"`
	PickupMagnetRadius       float64 `yaml:"pickup_magnet_radius"`
	PickupAttractSpeed       float64 `yaml:"pickup_attract_speed"`
	GoldDropOffset           float64 `yaml:"gold_drop_offset"`

	BossGoldCentralShare  float64 `yaml:"boss_gold_central_share"`
	BossGoldScatterMin    int     `yaml:"boss_gold_scatter_min"`
	BossGoldScatterMax    int     `yaml:"boss_gold_scatter_max"`
	BossGoldScatterRadius float64 `yaml:"boss_gold_scatter_radius"`

	SplitScale  float64 `yaml:"split_scale"`
	SplitRadius float64 `yaml:"split_radius"`

	MiniBananaMin         int     `yaml:"mini_banana_min"`
	MiniBananaMax         int     `yaml:"mini_banana_max"`
	MiniBananaRangeMin    float64 `yaml:"mini_banana_range_min"`
	MiniBananaRangeMax    float64 `yaml:"mini_banana_range_max"`
	MiniBananaDamageShare float64 `yaml:"mini_banana_damage_share"`
	MiniBananaRadiusShare float64 `yaml:"mini_banana_radius_share"`
	MiniBananaSpeed       float64 `yaml:"mini_banana_speed"`
	GrenadeMinSpeedFactor float64 `yaml:"grenade_min_speed_factor"`

	EnemyExplosionRadius      float64 `yaml:"enemy_explosion_radius"`
	EnemyExplosionDamageShare float64 `yaml:"enemy_explosion_damage_share"`

	XPPerLevel    float64 `yaml:"xp_per_level"`
	XPLevelGrowth float64 `yaml:"xp_level_growth"`

	WeaponOrbitRadius         float64 `yaml:"weapon_orbit_radius"`
	ProjectileOffscreenMargin float64 `yaml:"projectile_offscreen_margin"`
	SpawnMargin               float64 `yaml:"spawn_margin"`
	DeathParticlesPerTier     int     `yaml:"death_particles_per_tier"`
}

// DurationTier ступень длительности волны
type DurationTier struct {
	UntilWave int     `yaml:"until_wave"` // 0 означает все оставшиеся волны
	Seconds   float64 `yaml:"seconds"`
}

// SpawnRow строка таблицы вероятностей типов врагов.
// Действует начиная с MinWave и до следующей строки.
type SpawnRow struct {
	MinWave int                `yaml:"min_wave"`
	Weights map[string]float64 `yaml:"weights"`

	cumulative []spawnBucket
}

type spawnBucket struct {
	name  string
	upper float64
}

// WaveConfig параметры волн и масштабирования сложности
type WaveConfig struct {
	Durations           []DurationTier `yaml:"durations"`
	SpawnIntervalBase   float64        `yaml:"spawn_interval_base"`
	SpawnIntervalStep   float64        `yaml:"spawn_interval_step"`
	SpawnIntervalMin    float64        `yaml:"spawn_interval_min"`
	PerTickBase         int            `yaml:"per_tick_base"`
	PerTickEvery        int            `yaml:"per_tick_every"`
	PerTickMax          int            `yaml:"per_tick_max"`
	BossEvery           int            `yaml:"boss_every"`
	BossRotation        []string       `yaml:"boss_rotation"`
	ScalingStartWave    int            `yaml:"scaling_start_wave"`
	ExponentialBase     float64        `yaml:"exponential_base"`
	IntermissionSeconds float64        `yaml:"intermission_seconds"`
	SpawnTable          []SpawnRow     `yaml:"spawn_table"`
}

// Tables полный набор неизменяемых игровых данных
type Tables struct {
	Characters map[string]*CharacterConfig `yaml:"characters"`
	Weapons    map[string]*WeaponConfig    `yaml:"weapons"`
	Enemies    map[string]*EnemyConfig     `yaml:"enemies"`
	Balance    BalanceConfig               `yaml:"balance"`
	Waves      WaveConfig                  `yaml:"waves"`
}

// DefaultTables разбирает встроенные таблицы
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
}

// MustDefaultTables как DefaultTables, но паникует при ошибке (тесты, инициализация)
func MustDefaultTables() *Tables {
	t, err := DefaultTables()
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTables читает таблицы из файла. Пустой путь означает встроенные таблицы.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables разбирает и валидирует YAML с таблицами
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	for name, w := range t.Weapons {
		w.Name = name
	}
	for name, e := range t.Enemies {
		e.Name = name
	}
	for name, c := range t.Characters {
		c.Name = name
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate проверяет ссылочную целостность таблиц и строит кумулятивные таблицы спавна.
// Из чисел проверяется только нижняя граница интервала спавна: при нуле тик волны не завершится.
func (t *Tables) Validate() error {
	for _, c := range t.Characters {
		if c.StartingWeapon == "" {
			continue
		}
		if _, ok := t.Weapons[c.StartingWeapon]; !ok {
			return fmt.Errorf("%w: character %s: %w: %q", ErrInvalidTables, c.Name, ErrUnknownWeapon, c.StartingWeapon)
		}
	}
	for _, e := range t.Enemies {
		if e.SplitInto == "" {
			continue
		}
		if _, ok := t.Enemies[e.SplitInto]; !ok {
			return fmt.Errorf("%w: enemy %s split_into: %w: %q", ErrInvalidTables, e.Name, ErrUnknownEnemy, e.SplitInto)
		}
	}
	for _, name := range t.Waves.BossRotation {
		e, ok := t.Enemies[name]
		if !ok {
			return fmt.Errorf("%w: boss rotation: %w: %q", ErrInvalidTables, ErrUnknownEnemy, name)
		}
		if !e.IsBoss {
			return fmt.Errorf("%w: boss rotation entry %q is not a boss", ErrInvalidTables, name)
		}
	}
	if len(t.Waves.SpawnTable) == 0 {
		return fmt.Errorf("%w: empty spawn table", ErrInvalidTables)
	}
	sort.SliceStable(t.Waves.SpawnTable, func(i, j int) bool {
		return t.Waves.SpawnTable[i].MinWave < t.Waves.SpawnTable[j].MinWave
	})
	for i := range t.Waves.SpawnTable {
		row := &t.Waves.SpawnTable[i]
		if err := row.build(t.Enemies); err != nil {
			return err
		}
	}
	if t.Waves.SpawnIntervalMin <= 0 {
		return fmt.Errorf("%w: spawn_interval_min must be positive, got %v", ErrInvalidTables, t.Waves.SpawnIntervalMin)
	}
	return nil
}

func (row *SpawnRow) build(enemies map[string]*EnemyConfig) error {
	names := make([]string, 0, len(row.Weights))
	for name := range row.Weights {
		if _, ok := enemies[name]; !ok {
			return fmt.Errorf("%w: spawn row %d: %w: %q", ErrInvalidTables, row.MinWave, ErrUnknownEnemy, name)
		}
		names = append(names, name)
	}
	// порядок map не детерминирован, сортируем, чтобы один seed давал один результат
	sort.Strings(names)

	var total float64
	for _, name := range names {
		total += row.Weights[name]
	}
	if total <= 0 {
		return fmt.Errorf("%w: spawn row %d has zero weight", ErrInvalidTables, row.MinWave)
	}

	row.cumulative = row.cumulative[:0]
	var acc float64
	for _, name := range names {
		acc += row.Weights[name] / total
		row.cumulative = append(row.cumulative, spawnBucket{name: name, upper: acc})
	}
	row.cumulative[len(row.cumulative)-1].upper = math.Inf(1)
	return nil
}

// Pick выбирает тип врага по броску roll ∈ [0,1)
func (row *SpawnRow) Pick(roll float64) string {
	for _, b := range row.cumulative {
		if roll < b.upper {
			return b.name
		}
	}
	return row.cumulative[len(row.cumulative)-1].name
}

// RowForWave возвращает строку таблицы спавна, действующую на волне wave
func (w *WaveConfig) RowForWave(wave int) *SpawnRow {
	row := &w.SpawnTable[0]
	for i := range w.SpawnTable {
		if w.SpawnTable[i].MinWave <= wave {
			row = &w.SpawnTable[i]
		}
	}
	return row
}

// Weapon возвращает конфигурацию оружия или ErrUnknownWeapon
func (t *Tables) Weapon(name string) (*WeaponConfig, error) {
	w, ok := t.Weapons[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
	}
	return w, nil
}

// Enemy возвращает конфигурацию врага или ErrUnknownEnemy
func (t *Tables) Enemy(name string) (*EnemyConfig, error) {
	e, ok := t.Enemies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnemy, name)
	}
	return e, nil
}

// Character возвращает конфигурацию персонажа или ErrUnknownCharacter
func (t *Tables) Character(name string) (*CharacterConfig, error) {
	c, ok := t.Characters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
	}
	return c, nil
}

// MustEnemy паникует на неизвестном ключе. Используется внутри кадра,
// где имена уже прошли Validate.
func (t *Tables) MustEnemy(name string) *EnemyConfig {
	e, err := t.Enemy(name)
	if err != nil {
		panic(err)
	}
	return e
}

// MustWeapon паникует на неизвестном ключе
func (t *Tables) MustWeapon(name string) *WeaponConfig {
	w, err := t.Weapon(name)
	if err != nil {
		panic(err)
	}
	return w
}
