package entity

import (
	"github.com/annel0/arena-core/internal/vec"
)

// PickupType тип подбираемого предмета
type PickupType uint8

const (
	PickupGold PickupType = iota
	PickupHealth
)

// String возвращает имя типа
func (t PickupType) String() string {
	if t == PickupHealth {
		return "health"
	}
	return "gold"
}

// Pickup предмет на полу: золото или аптечка
type Pickup struct {
	Entity

	Type      PickupType
	Value     float64
	Lifetime  float64
	Attracted bool // однажды установленный, не сбрасывается и отменяет истечение
}

// NewPickup создаёт предмет
func NewPickup(id uint64, pickupType PickupType, position vec.Vec2, radius, value, lifetime float64) *Pickup {
	return &Pickup{
		Entity:   NewEntity(id, KindPickup, position, radius),
		Type:     pickupType,
		Value:    value,
		Lifetime: lifetime,
	}
}

// Attract включает притяжение к игроку
func (p *Pickup) Attract() { p.Attracted = true }

// Age уменьшает время жизни. Возвращает true, если предмет истёк.
// Притягиваемые предметы не истекают.
func (p *Pickup) Age(dt float64) bool {
	if p.Attracted {
		return false
	}
	p.Lifetime -= dt
	return p.Lifetime <= 0
}
