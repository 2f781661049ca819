package entity

import (
	"github.com/annel0/arena-core/internal/vec"
)

// Manager владеет всеми коллекциями сущностей арены.
//
// Внутри кадра коллекции только дополняются, а удалённые сущности лишь
// помечаются (Active=false). Физическое удаление выполняет Compact один раз
// после всех систем, поэтому каждая система видит стабильную коллекцию.
// Менеджер не потокобезопасен: симуляция однопоточная.
type Manager struct {
	nextID uint64

	player            *Player
	enemies           []*Enemy
	playerProjectiles []*Projectile
	enemyProjectiles  []*Projectile
	deployables       []*Deployable
	pickups           []*Pickup
}

// NewManager создаёт пустой менеджер
func NewManager() *Manager {
	return &Manager{nextID: 1}
}

// NextID выдаёт следующий монотонный идентификатор
func (m *Manager) NextID() uint64 {
	id := m.nextID
	m.nextID++
	return id
}

// SetPlayer устанавливает единственного игрока
func (m *Manager) SetPlayer(p *Player) { m.player = p }

// Player возвращает игрока (может быть nil до старта)
func (m *Manager) Player() *Player { return m.player }

func (m *Manager) AddEnemy(e *Enemy)                 { m.enemies = append(m.enemies, e) }
func (m *Manager) AddPlayerProjectile(p *Projectile) { m.playerProjectiles = append(m.playerProjectiles, p) }
func (m *Manager) AddEnemyProjectile(p *Projectile)  { m.enemyProjectiles = append(m.enemyProjectiles, p) }
func (m *Manager) AddDeployable(d *Deployable)       { m.deployables = append(m.deployables, d) }
func (m *Manager) AddPickup(p *Pickup)               { m.pickups = append(m.pickups, p) }

// Enemies возвращает сырую коллекцию (включая помеченных до Compact).
// Вызывающий обязан пропускать неактивных.
func (m *Manager) Enemies() []*Enemy                 { return m.enemies }
func (m *Manager) PlayerProjectiles() []*Projectile { return m.playerProjectiles }
func (m *Manager) EnemyProjectiles() []*Projectile  { return m.enemyProjectiles }
func (m *Manager) Deployables() []*Deployable       { return m.deployables }
func (m *Manager) Pickups() []*Pickup               { return m.pickups }

// ActiveEnemies возвращает копию списка активных врагов
func (m *Manager) ActiveEnemies() []*Enemy {
	return filterActive(m.enemies)
}

// ActivePlayerProjectiles возвращает копию списка активных снарядов игрока
func (m *Manager) ActivePlayerProjectiles() []*Projectile {
	return filterActive(m.playerProjectiles)
}

// ActiveEnemyProjectiles возвращает копию списка активных снарядов врагов
func (m *Manager) ActiveEnemyProjectiles() []*Projectile {
	return filterActive(m.enemyProjectiles)
}

// ActiveDeployables возвращает копию списка активных мин
func (m *Manager) ActiveDeployables() []*Deployable {
	return filterActive(m.deployables)
}

// ActivePickups возвращает копию списка активных предметов
func (m *Manager) ActivePickups() []*Pickup {
	return filterActive(m.pickups)
}

func filterActive[T Collider](items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.Base().Active {
			out = append(out, it)
		}
	}
	return out
}

func countActive[T Collider](items []T) int {
	n := 0
	for _, it := range items {
		if it.Base().Active {
			n++
		}
	}
	return n
}

// CountActiveEnemies число активных врагов
func (m *Manager) CountActiveEnemies() int { return countActive(m.enemies) }

// CountActiveDeployables число активных мин владельца указанного типа
func (m *Manager) CountActiveDeployables(deployType string) int {
	n := 0
	for _, d := range m.deployables {
		if d.Active && d.Type == deployType {
			n++
		}
	}
	return n
}

// HasActiveBoss сообщает, жив ли хотя бы один босс
func (m *Manager) HasActiveBoss() bool {
	for _, e := range m.enemies {
		if e.Active && e.IsBoss {
			return true
		}
	}
	return false
}

// GetEnemy ищет активного врага по id
func (m *Manager) GetEnemy(id uint64) (*Enemy, bool) {
	for _, e := range m.enemies {
		if e.ID == id && e.Active {
			return e, true
		}
	}
	return nil, false
}

// GetNearestEnemy возвращает ближайшего активного врага в пределах maxRange
// (включительно) или nil. Если bounds не nil, учитываются только враги,
// центр которых внутри арены. При равных расстояниях побеждает первый
// встреченный.
func (m *Manager) GetNearestEnemy(origin vec.Vec2, maxRange float64, bounds *Bounds) *Enemy {
	var nearest *Enemy
	best := maxRange * maxRange
	for _, e := range m.enemies {
		if !e.Active {
			continue
		}
		if bounds != nil && !bounds.ContainsPoint(e.Position, 0) {
			continue
		}
		d := origin.DistanceSqTo(e.Position)
		if d > best {
			continue
		}
		if nearest == nil || d < best {
			nearest = e
			best = d
		}
	}
	return nearest
}

// GetEnemiesInRadius возвращает активных врагов, чей центр не дальше radius
func (m *Manager) GetEnemiesInRadius(point vec.Vec2, radius float64) []*Enemy {
	var result []*Enemy
	r2 := radius * radius
	for _, e := range m.enemies {
		if e.Active && point.DistanceSqTo(e.Position) <= r2 {
			result = append(result, e)
		}
	}
	return result
}

// DestroyAllEnemies помечает всех врагов и их снаряды удалёнными без наград.
// Возвращает число помеченных врагов.
func (m *Manager) DestroyAllEnemies() int {
	n := 0
	for _, e := range m.enemies {
		if e.Active {
			e.MarkDying()
			e.Destroy()
			n++
		}
	}
	for _, p := range m.enemyProjectiles {
		p.Destroy()
	}
	return n
}

// Compact физически удаляет неактивные сущности. Вызывается один раз
// в конце кадра. Возвращает число удалённых.
func (m *Manager) Compact() int {
	removed := 0
	m.enemies, removed = compact(m.enemies, removed)
	m.playerProjectiles, removed = compact(m.playerProjectiles, removed)
	m.enemyProjectiles, removed = compact(m.enemyProjectiles, removed)
	m.deployables, removed = compact(m.deployables, removed)
	m.pickups, removed = compact(m.pickups, removed)
	return removed
}

func compact[T Collider](items []T, removed int) ([]T, int) {
	kept := items[:0]
	for _, it := range items {
		if it.Base().Active {
			kept = append(kept, it)
		} else {
			removed++
		}
	}
	// обнуляем хвост, чтобы не держать ссылки на удалённые сущности
	var zero T
	for i := len(kept); i < len(items); i++ {
		items[i] = zero
	}
	return kept, removed
}

// Reset очищает все коллекции (новый забег)
func (m *Manager) Reset() {
	m.player = nil
	m.enemies = nil
	m.playerProjectiles = nil
	m.enemyProjectiles = nil
	m.deployables = nil
	m.pickups = nil
}
