package game

import (
	"github.com/annel0/arena-core/internal/combat"
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/wave"
)

// Snapshot состояние мира для отрисовки и HUD, пригодное для JSON.
// Копия: последующие кадры её не меняют.
type Snapshot struct {
	RunID    string  `json:"run_id"`
	Frame    uint64  `json:"frame"`
	Time     float64 `json:"time"`
	Paused   bool    `json:"paused"`
	GameOver bool    `json:"game_over"`

	Player           PlayerView       `json:"player"`
	Enemies          []EnemyView      `json:"enemies"`
	Projectiles      []ProjectileView `json:"projectiles"`
	EnemyProjectiles []ProjectileView `json:"enemy_projectiles"`
	Deployables      []DeployableView `json:"deployables"`
	Pickups          []PickupView     `json:"pickups"`
	Shockwaves       []ShockwaveView  `json:"shockwaves,omitempty"`

	Wave  wave.Status     `json:"wave"`
	Stats combat.RunStats `json:"stats"`
}

type PlayerView struct {
	Position vec.Vec2 `json:"position"`
	Radius   float64  `json:"radius"`
	HP       float64  `json:"hp"`
	MaxHP    float64  `json:"max_hp"`
	Level    int      `json:"level"`
	XP       float64  `json:"xp"`
	XPToNext float64  `json:"xp_to_next"`
	Gold     float64  `json:"gold"`
	Weapons  []string `json:"weapons"`
}

type EnemyView struct {
	ID       uint64   `json:"id"`
	Type     string   `json:"type"`
	Position vec.Vec2 `json:"position"`
	Radius   float64  `json:"radius"`
	HP       float64  `json:"hp"`
	MaxHP    float64  `json:"max_hp"`
	Boss     bool     `json:"boss,omitempty"`
}

type ProjectileView struct {
	ID       uint64   `json:"id"`
	Type     string   `json:"type"`
	Position vec.Vec2 `json:"position"`
	Radius   float64  `json:"radius"`
}

type DeployableView struct {
	ID       uint64   `json:"id"`
	Position vec.Vec2 `json:"position"`
	Armed    bool     `json:"armed"`
}

type PickupView struct {
	ID       uint64   `json:"id"`
	Kind     string   `json:"kind"`
	Position vec.Vec2 `json:"position"`
	Value    float64  `json:"value"`
}

type ShockwaveView struct {
	Center vec.Vec2 `json:"center"`
	Radius float64  `json:"radius"`
}

// Snapshot собирает снимок текущего кадра
func (w *World) Snapshot() Snapshot {
	p := w.entities.Player()
	s := Snapshot{
		RunID:    w.RunID,
		Frame:    w.frame,
		Time:     w.now,
		Paused:   w.paused,
		GameOver: w.gameOver,
		Player: PlayerView{
			Position: p.Position,
			Radius:   p.Radius,
			HP:       p.HP,
			MaxHP:    p.MaxHP,
			Level:    p.Level,
			XP:       p.XP,
			XPToNext: p.XPToNext,
			Gold:     p.Gold,
		},
		Wave:  w.waves.Status(),
		Stats: w.combat.Stats(),
	}
	for _, wp := range p.Weapons {
		s.Player.Weapons = append(s.Player.Weapons, wp.Type)
	}

	enemies := w.entities.ActiveEnemies()
	s.Enemies = make([]EnemyView, 0, len(enemies))
	for _, e := range enemies {
		s.Enemies = append(s.Enemies, EnemyView{
			ID: e.ID, Type: e.Type, Position: e.Position, Radius: e.Radius,
			HP: e.HP, MaxHP: e.Stats.MaxHP, Boss: e.IsBoss,
		})
	}
	for _, pr := range w.entities.ActivePlayerProjectiles() {
		s.Projectiles = append(s.Projectiles, ProjectileView{ID: pr.ID, Type: pr.Type, Position: pr.Position, Radius: pr.Radius})
	}
	for _, pr := range w.entities.ActiveEnemyProjectiles() {
		s.EnemyProjectiles = append(s.EnemyProjectiles, ProjectileView{ID: pr.ID, Type: pr.Type, Position: pr.Position, Radius: pr.Radius})
	}
	for _, d := range w.entities.ActiveDeployables() {
		s.Deployables = append(s.Deployables, DeployableView{ID: d.ID, Position: d.Position, Armed: d.Armed})
	}
	for _, pk := range w.entities.ActivePickups() {
		s.Pickups = append(s.Pickups, PickupView{ID: pk.ID, Kind: pk.Type.String(), Position: pk.Position, Value: pk.Value})
	}
	for _, sw := range w.effects.Shockwaves() {
		s.Shockwaves = append(s.Shockwaves, ShockwaveView{Center: sw.Center, Radius: sw.Radius})
	}
	return s
}
