package entity

import (
	"github.com/annel0/arena-core/internal/vec"
)

// Kind представляет тип сущности
type Kind uint8

const (
	KindPlayer Kind = iota
	KindEnemy
	KindProjectile
	KindDeployable
	KindPickup
)

// String возвращает имя типа для логов и событий
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindProjectile:
		return "projectile"
	case KindDeployable:
		return "deployable"
	case KindPickup:
		return "pickup"
	default:
		return "unknown"
	}
}

// Entity представляет базовую сущность арены.
// Active реализует мягкое удаление: после Destroy сущность не участвует ни в одном
// проходе, а физически удаляется только в Manager.Compact в конце кадра.
type Entity struct {
	ID       uint64   // Уникальный монотонный идентификатор
	Kind     Kind     // Тип сущности
	Position vec.Vec2 // Центр коллайдера
	Velocity vec.Vec2 // Текущая скорость (пикс/с), может быть нулевой
	Radius   float64  // Радиус круглого коллайдера
	Active   bool     // Активна ли сущность
}

// NewEntity создаёт новую активную сущность
func NewEntity(id uint64, kind Kind, position vec.Vec2, radius float64) Entity {
	return Entity{
		ID:       id,
		Kind:     kind,
		Position: position,
		Radius:   radius,
		Active:   true,
	}
}

// Base возвращает базовую часть сущности
func (e *Entity) Base() *Entity { return e }

// IsActive сообщает, участвует ли сущность в кадре
func (e *Entity) IsActive() bool { return e.Active }

// Destroy помечает сущность удалённой. Повторный вызов безопасен,
// обратного перехода нет.
func (e *Entity) Destroy() { e.Active = false }

// Collider любая сущность с круглым коллайдером
type Collider interface {
	Base() *Entity
}

// Bounds размеры видимой арены
type Bounds struct {
	Width  float64
	Height float64
}

// Contains проверяет, что круг целиком лежит внутри арены
func (b Bounds) Contains(pos vec.Vec2, radius float64) bool {
	return pos.X-radius >= 0 && pos.Y-radius >= 0 &&
		pos.X+radius <= b.Width && pos.Y+radius <= b.Height
}

// ContainsPoint проверяет, что точка лежит внутри арены с запасом margin
func (b Bounds) ContainsPoint(pos vec.Vec2, margin float64) bool {
	return pos.X >= -margin && pos.Y >= -margin &&
		pos.X <= b.Width+margin && pos.Y <= b.Height+margin
}

// Clamp удерживает круг внутри арены
func (b Bounds) Clamp(pos vec.Vec2, radius float64) vec.Vec2 {
	return vec.Vec2{
		X: vec.Clamp(pos.X, radius, b.Width-radius),
		Y: vec.Clamp(pos.Y, radius, b.Height-radius),
	}
}

// Center центр арены
func (b Bounds) Center() vec.Vec2 {
	return vec.Vec2{X: b.Width / 2, Y: b.Height / 2}
}
