package entity

import (
	"fmt"
	"math"

	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/vec"
)

// Stats накапливаемые характеристики игрока (апгрейды, предметы)
type Stats struct {
	Armor            float64
	DamageMultiplier float64
	CritChance       float64
	CritDamage       float64
	Lifesteal        float64 // доля нанесённого урона, возвращаемая в hp
	Knockback        float64 // множитель отбрасывания
	ExplosionRadius  float64 // множитель радиуса взрывов
	AttackSpeed      float64 // множитель скорострельности
	ProjectileCount  int     // дополнительные снаряды на выстрел
	Pierce           int     // дополнительные пробития
	AttackRange      float64 // множитель дальности
	Dodge            float64 // шанс уклонения (ограничивается MaxDodge)
	Thorns           float64 // отражённый урон при контакте
	Regen            float64 // hp в секунду
	Luck             float64
	XPMultiplier     float64
	GoldMultiplier   float64
	MaxWeapons       int
}

// Weapon экземпляр оружия в слоте игрока
type Weapon struct {
	Type           string
	Config         *config.WeaponConfig
	Level          int
	LastFireTime   float64
	FireOffset     float64 // одноразовый сдвиг первого выстрела для дубликатов
	MultishotBonus int
}

// Player представляет игрока на арене
type Player struct {
	Entity

	Character string
	HP        float64
	MaxHP     float64
	Speed     float64
	Stats     Stats

	InvincibleUntil float64
	Weapons         []*Weapon

	Level    int
	XP       float64
	XPToNext float64
	Gold     float64

	TargetID uint64   // текущая отслеживаемая цель (ближайший враг)
	Facing   vec.Vec2 // последнее направление движения
}

// NewPlayer создаёт игрока из конфигурации персонажа
func NewPlayer(id uint64, character *config.CharacterConfig, position vec.Vec2, xpPerLevel float64) *Player {
	critDamage := character.CritDamage
	if critDamage == 0 {
		critDamage = 1.5
	}
	return &Player{
		Entity:    NewEntity(id, KindPlayer, position, character.Radius),
		Character: character.Name,
		HP:        character.HP,
		MaxHP:     character.HP,
		Speed:     character.Speed,
		Stats: Stats{
			Armor:            character.Armor,
			DamageMultiplier: 1,
			CritChance:       character.CritChance,
			CritDamage:       critDamage,
			Knockback:        1,
			ExplosionRadius:  1,
			AttackSpeed:      1,
			AttackRange:      1,
			Dodge:            character.Dodge,
			Regen:            character.Regen,
			Luck:             character.Luck,
			XPMultiplier:     1,
			GoldMultiplier:   1,
			MaxWeapons:       character.MaxWeapons,
		},
		Level:    1,
		XPToNext: xpPerLevel,
		Facing:   vec.Vec2{X: 1},
	}
}

// IsAlive сообщает, жив ли игрок
func (p *Player) IsAlive() bool { return p.HP > 0 }

// IsInvincible сообщает, действует ли окно неуязвимости на момент now
func (p *Player) IsInvincible(now float64) bool { return now < p.InvincibleUntil }

// DodgeChance возвращает шанс уклонения с учётом ограничения
func (p *Player) DodgeChance(maxDodge float64) float64 {
	return vec.Clamp(p.Stats.Dodge, 0, maxDodge)
}

// Heal восстанавливает hp, не превышая MaxHP. Возвращает фактически восстановленное.
func (p *Player) Heal(amount float64) float64 {
	if amount <= 0 || !p.IsAlive() {
		return 0
	}
	before := p.HP
	p.HP = math.Min(p.MaxHP, p.HP+amount)
	return p.HP - before
}

// TakeDamage снимает hp, не опускаясь ниже нуля. Возвращает true, если игрок погиб.
func (p *Player) TakeDamage(amount float64) bool {
	p.HP = math.Max(0, p.HP-amount)
	return p.HP <= 0
}

// AddXP начисляет опыт и возвращает количество полученных уровней
func (p *Player) AddXP(amount, growth float64) int {
	p.XP += amount
	levels := 0
	for p.XPToNext > 0 && p.XP >= p.XPToNext {
		p.XP -= p.XPToNext
		p.Level++
		levels++
		p.XPToNext = math.Ceil(p.XPToNext * growth)
	}
	return levels
}

// ApplyUpgrade добавляет amount к характеристике stat.
// Точка входа для магазина/меню прокачки (внешний UI).
func (p *Player) ApplyUpgrade(stat string, amount float64) error {
	s := &p.Stats
	switch stat {
	case "max_hp":
		p.MaxHP += amount
		p.HP = math.Min(p.MaxHP, p.HP+math.Max(0, amount))
	case "speed":
		p.Speed += amount
	case "armor":
		s.Armor += amount
	case "damage":
		s.DamageMultiplier += amount
	case "crit_chance":
		s.CritChance += amount
	case "crit_damage":
		s.CritDamage += amount
	case "lifesteal":
		s.Lifesteal += amount
	case "knockback":
		s.Knockback += amount
	case "explosion_radius":
		s.ExplosionRadius += amount
	case "attack_speed":
		s.AttackSpeed += amount
	case "projectile_count":
		s.ProjectileCount += int(amount)
	case "pierce":
		s.Pierce += int(amount)
	case "attack_range":
		s.AttackRange += amount
	case "dodge":
		s.Dodge += amount
	case "thorns":
		s.Thorns += amount
	case "regen":
		s.Regen += amount
	case "luck":
		s.Luck += amount
	case "xp_multiplier":
		s.XPMultiplier += amount
	case "gold_multiplier":
		s.GoldMultiplier += amount
	case "max_weapons":
		s.MaxWeapons += int(amount)
	default:
		return fmt.Errorf("unknown player stat %q", stat)
	}
	return nil
}

// WeaponCount возвращает число оружий данного типа
func (p *Player) WeaponCount(weaponType string) int {
	n := 0
	for _, w := range p.Weapons {
		if w.Type == weaponType {
			n++
		}
	}
	return n
}
