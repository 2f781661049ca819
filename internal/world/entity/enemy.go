package entity

import (
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
)

// EnemyStats снимок характеристик врага на момент создания.
// После создания не меняется; масштаб и волновые множители уже применены.
type EnemyStats struct {
	MaxHP     float64
	Speed     float64
	Damage    float64
	XPValue   float64
	GoldValue float64
	Radius    float64
}

// Enemy представляет врага (включая боссов)
type Enemy struct {
	Entity

	Type   string
	Config *config.EnemyConfig
	Stats  EnemyStats
	Scale  float64

	IsBoss         bool
	Phasing        bool // не сталкивается с игроком
	Zigzag         bool
	ExplodeOnDeath bool
	SplitOnDeath   bool
	SplitCount     int
	CanShoot       bool

	HP           float64
	Knockback    vec.Vec2 // затухающая скорость отбрасывания
	ZigzagTimer  float64
	EnteredArena bool // пока false, ограничение границами арены выключено
	LastShotTime float64
	PatternIndex int

	dying bool
}

// NewEnemy создаёт врага из конфигурации типа.
// scale применяется к hp, урону, наградам и радиусу (используется для осколков);
// hpMult и damageMult задают волновое масштабирование.
func NewEnemy(id uint64, cfg *config.EnemyConfig, position vec.Vec2, scale, hpMult, damageMult float64) *Enemy {
	stats := EnemyStats{
		MaxHP:     cfg.HP * scale * hpMult,
		Speed:     cfg.Speed,
		Damage:    cfg.Damage * scale * damageMult,
		XPValue:   cfg.XPValue * scale,
		GoldValue: cfg.GoldValue * scale,
		Radius:    cfg.Radius * scale,
	}
	return &Enemy{
		Entity:         NewEntity(id, KindEnemy, position, stats.Radius),
		Type:           cfg.Name,
		Config:         cfg,
		Stats:          stats,
		Scale:          scale,
		IsBoss:         cfg.IsBoss,
		Phasing:        cfg.Phasing,
		Zigzag:         cfg.Zigzag,
		ExplodeOnDeath: cfg.ExplodeOnDeath,
		SplitOnDeath:   cfg.SplitOnDeath,
		SplitCount:     cfg.SplitCount,
		CanShoot:       cfg.CanShoot,
		HP:             stats.MaxHP,
	}
}

// IsDead сообщает, что hp исчерпаны (уничтожение происходит позже)
func (e *Enemy) IsDead() bool { return e.HP <= 0 }

// TakeDamage снимает hp и возвращает true, если удар оказался смертельным
// впервые. Повторные удары по уже умирающему врагу возвращают false.
func (e *Enemy) TakeDamage(amount float64) bool {
	if e.dying {
		return false
	}
	e.HP -= amount
	if e.HP < 0 {
		e.HP = 0
	}
	return e.HP <= 0
}

// MarkDying переводит врага в состояние смерти. Возвращает true только
// при первом вызове: обработчик смерти срабатывает ровно один раз.
func (e *Enemy) MarkDying() bool {
	if e.dying {
		return false
	}
	e.dying = true
	return true
}

// IsDying сообщает, что обработчик смерти уже запущен
func (e *Enemy) IsDying() bool { return e.dying }

// ApplyKnockback добавляет импульс отбрасывания
func (e *Enemy) ApplyKnockback(impulse vec.Vec2) {
	e.Knockback = e.Knockback.Add(impulse)
}

// ContactDamage урон при касании с учётом множителя боссов
func (e *Enemy) ContactDamage(bossMultiplier float64) float64 {
	if e.IsBoss {
		return e.Stats.Damage * bossMultiplier
	}
	return e.Stats.Damage
}

// NextPattern возвращает следующий шаблон атаки (боссы чередуют шаблоны)
func (e *Enemy) NextPattern() config.AttackPattern {
	patterns := e.Config.Patterns
	if len(patterns) == 0 {
		return config.PatternSingle
	}
	p := patterns[e.PatternIndex%len(patterns)]
	e.PatternIndex++
	return p
}
