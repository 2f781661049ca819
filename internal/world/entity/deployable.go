package entity

import (
	"github.com/annel0/arena-core/internal/vec"
)

// Deployable установленный объект (мина): неподвижен, взводится с задержкой
type Deployable struct {
	Entity

	Type          string
	OwnerID       uint64
	ArmRemaining  float64
	Armed         bool
	TriggerRadius float64
	Lifetime      float64
	Explosive     Explosive
}

// NewDeployable создаёт невзведённую мину
func NewDeployable(id uint64, deployType string, ownerID uint64, position vec.Vec2, armTime, triggerRadius, lifetime float64, payload Explosive) *Deployable {
	return &Deployable{
		Entity:        NewEntity(id, KindDeployable, position, triggerRadius),
		Type:          deployType,
		OwnerID:       ownerID,
		ArmRemaining:  armTime,
		Armed:         armTime <= 0,
		TriggerRadius: triggerRadius,
		Lifetime:      lifetime,
		Explosive:     payload,
	}
}

// Tick отсчитывает взведение и время жизни. Возвращает true, если срок истёк.
func (d *Deployable) Tick(dt float64) bool {
	if !d.Armed {
		d.ArmRemaining -= dt
		if d.ArmRemaining <= 0 {
			d.ArmRemaining = 0
			d.Armed = true
		}
	}
	if d.Lifetime > 0 {
		d.Lifetime -= dt
		if d.Lifetime <= 0 {
			return true
		}
	}
	return false
}
