package eventbus

import (
	"github.com/annel0/arena-core/internal/vec"
)

// Type тип уведомления симуляции
type Type string

const (
	EnemyDamaged    Type = "enemy_damaged"
	EnemyDeath      Type = "enemy_death"
	PlayerHit       Type = "player_hit"
	PlayerDodged    Type = "player_dodged"
	PlayerDeath     Type = "player_death"
	PlayerLevelUp   Type = "player_level_up"
	Explosion       Type = "explosion"
	GoldCollected   Type = "gold_collected"
	HealthCollected Type = "health_collected"
	WaveStart       Type = "wave_start"
	WaveEnd         Type = "wave_end"
	BossSpawned     Type = "boss_spawned"
	WeaponFired     Type = "weapon_fired"
	MinePlaced      Type = "mine_placed"
)

// Priority возвращает приоритет для внешней шины (0..9).
// Частые косметические события можно терять под нагрузкой.
func (t Type) Priority() int {
	switch t {
	case PlayerDeath, WaveStart, WaveEnd, BossSpawned:
		return 9
	case EnemyDeath, PlayerHit, PlayerLevelUp:
		return 5
	default:
		return 1
	}
}

// Source откуда пришёл урон/смерть
type Source string

const (
	SourceContact    Source = "contact"
	SourceProjectile Source = "projectile"
	SourceExplosion  Source = "explosion"
	SourceThorns     Source = "thorns"
	SourceChain      Source = "chain"
	SourceShockwave  Source = "shockwave"
)

// Event уведомление, испускаемое внутри кадра
type Event struct {
	Type    Type    `json:"type"`
	Time    float64 `json:"time"`  // время симуляции, с
	Frame   uint64  `json:"frame"` // номер кадра
	Payload any     `json:"payload,omitempty"`
}

// EnemyDamagedPayload враг получил урон
type EnemyDamagedPayload struct {
	EnemyID   uint64  `json:"enemy_id"`
	EnemyType string  `json:"enemy_type"`
	Amount    float64 `json:"amount"`
	Crit      bool    `json:"crit"`
	Source    Source  `json:"source"`
}

// EnemyDeathPayload враг погиб
type EnemyDeathPayload struct {
	EnemyID   uint64   `json:"enemy_id"`
	EnemyType string   `json:"enemy_type"`
	IsBoss    bool     `json:"is_boss"`
	Position  vec.Vec2 `json:"position"`
	Source    Source   `json:"source"`
	Killer    string   `json:"killer"` // тип оружия/снаряда или источник
}

// PlayerHitPayload игрок получил урон
type PlayerHitPayload struct {
	Damage float64 `json:"damage"`
	HP     float64 `json:"hp"`
	Source Source  `json:"source"`
}

// PlayerDodgedPayload игрок уклонился
type PlayerDodgedPayload struct {
	Source Source `json:"source"`
}

// PlayerDeathPayload игрок погиб
type PlayerDeathPayload struct {
	Wave         int     `json:"wave"`
	TimeSurvived float64 `json:"time_survived"`
}

// LevelUpPayload новый уровень игрока
type LevelUpPayload struct {
	Level int `json:"level"`
}

// ExplosionPayload сработал взрыв
type ExplosionPayload struct {
	Position vec.Vec2 `json:"position"`
	Radius   float64  `json:"radius"`
	Style    string   `json:"style"`
	Hostile  bool     `json:"hostile"`
}

// CollectedPayload подобран предмет
type CollectedPayload struct {
	Amount float64 `json:"amount"`
	Total  float64 `json:"total"`
}

// WaveStartPayload началась волна
type WaveStartPayload struct {
	Wave     int     `json:"wave"`
	Duration float64 `json:"duration"`
	BossWave bool    `json:"boss_wave"`
}

// WaveEndPayload волна завершена
type WaveEndPayload struct {
	Wave    int  `json:"wave"`
	Skipped bool `json:"skipped"`
}

// BossSpawnedPayload появился босс
type BossSpawnedPayload struct {
	EnemyID    uint64  `json:"enemy_id"`
	BossType   string  `json:"boss_type"`
	Appearance int     `json:"appearance"`
	HP         float64 `json:"hp"`
}

// WeaponFiredPayload выстрел оружия
type WeaponFiredPayload struct {
	Weapon      string `json:"weapon"`
	Projectiles int    `json:"projectiles"`
	Crit        bool   `json:"crit"`
}

// MinePlacedPayload установлена мина
type MinePlacedPayload struct {
	DeployableID uint64   `json:"deployable_id"`
	Position     vec.Vec2 `json:"position"`
}
