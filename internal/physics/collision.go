package physics

import (
	"github.com/annel0/arena-core/internal/vec"
	"github.com/annel0/arena-core/internal/world/entity"
)

// Overlap проверяет пересечение двух кругов через квадрат расстояния,
// без извлечения корня: (r1+r2)² > dist².
func Overlap(pos1 vec.Vec2, radius1 float64, pos2 vec.Vec2, radius2 float64) bool {
	rs := radius1 + radius2
	return rs*rs > pos1.DistanceSqTo(pos2)
}

// CollidersOverlap проверяет пересечение двух сущностей
func CollidersOverlap(a, b entity.Collider) bool {
	ea, eb := a.Base(), b.Base()
	return Overlap(ea.Position, ea.Radius, eb.Position, eb.Radius)
}

// ProjectileHit попадание снаряда игрока во врага
type ProjectileHit struct {
	Projectile *entity.Projectile
	Enemy      *entity.Enemy
}

// DeployableTrigger враг вошёл в радиус взведённой мины
type DeployableTrigger struct {
	Deployable *entity.Deployable
	Enemy      *entity.Enemy
}

// Result структурированный результат обнаружения столкновений за кадр
type Result struct {
	PlayerEnemy      []*entity.Enemy      // контакт игрока с врагом
	PlayerProjectile []*entity.Projectile // вражеские снаряды, попавшие в игрока
	ProjectileEnemy  []ProjectileHit      // снаряды игрока, попавшие во врагов
	PlayerPickup     []*entity.Pickup     // предметы под игроком
	EnemyDeployable  []DeployableTrigger  // сработавшие мины
}

// Empty сообщает, что столкновений нет
func (r *Result) Empty() bool {
	return len(r.PlayerEnemy) == 0 && len(r.PlayerProjectile) == 0 &&
		len(r.ProjectileEnemy) == 0 && len(r.PlayerPickup) == 0 && len(r.EnemyDeployable) == 0
}

// CollisionSystem чистый детектор близости.
// Урон не наносит; единственная мутация: учёт уже поражённых врагов
// у пробивающих снарядов, чтобы один враг не засчитывался дважды.
type CollisionSystem struct{}

// NewCollisionSystem создаёт систему коллизий
func NewCollisionSystem() *CollisionSystem {
	return &CollisionSystem{}
}

// Detect строит результат столкновений для текущего состояния
func (cs *CollisionSystem) Detect(m *entity.Manager) Result {
	var res Result

	player := m.Player()
	playerAlive := player != nil && player.Active && player.IsAlive()

	if playerAlive {
		res.PlayerEnemy = cs.playerEnemy(player, m.Enemies())
		res.PlayerProjectile = cs.playerProjectiles(player, m.EnemyProjectiles())
		res.PlayerPickup = cs.playerPickups(player, m.Pickups())
	}
	res.ProjectileEnemy = cs.projectileEnemy(m.PlayerProjectiles(), m.Enemies())
	res.EnemyDeployable = cs.enemyDeployable(m.Enemies(), m.Deployables())

	return res
}

func (cs *CollisionSystem) playerEnemy(player *entity.Player, enemies []*entity.Enemy) []*entity.Enemy {
	var hits []*entity.Enemy
	for _, e := range enemies {
		if !e.Active || e.Phasing {
			continue
		}
		if CollidersOverlap(player, e) {
			hits = append(hits, e)
		}
	}
	return hits
}

func (cs *CollisionSystem) playerProjectiles(player *entity.Player, projectiles []*entity.Projectile) []*entity.Projectile {
	var hits []*entity.Projectile
	for _, p := range projectiles {
		if p.Active && CollidersOverlap(player, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

func (cs *CollisionSystem) playerPickups(player *entity.Player, pickups []*entity.Pickup) []*entity.Pickup {
	var hits []*entity.Pickup
	for _, p := range pickups {
		if p.Active && CollidersOverlap(player, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

// projectileEnemy сопоставляет снаряды игрока с врагами в порядке коллекции
// врагов (не по расстоянию). Обычный снаряд останавливает поиск на первом
// попадании; пробивающий регистрирует до Remaining новых врагов за кадр.
// Гранаты тоже участвуют: враг на пути взрывает их до конца дистанции.
func (cs *CollisionSystem) projectileEnemy(projectiles []*entity.Projectile, enemies []*entity.Enemy) []ProjectileHit {
	var hits []ProjectileHit
	for _, p := range projectiles {
		if !p.Active {
			continue
		}

		if p.HasPierce() {
			registered := 0
			for _, e := range enemies {
				if registered >= p.Pierce.Remaining {
					break
				}
				if !e.Active || p.Pierce.HasHit(e.ID) {
					continue
				}
				if CollidersOverlap(p, e) {
					p.Pierce.MarkHit(e.ID)
					hits = append(hits, ProjectileHit{Projectile: p, Enemy: e})
					registered++
				}
			}
			continue
		}

		for _, e := range enemies {
			if e.Active && CollidersOverlap(p, e) {
				hits = append(hits, ProjectileHit{Projectile: p, Enemy: e})
				break
			}
		}
	}
	return hits
}

// enemyDeployable ищет врагов в радиусе взведённых мин. Каждая мина
// срабатывает не более одного раза.
func (cs *CollisionSystem) enemyDeployable(enemies []*entity.Enemy, deployables []*entity.Deployable) []DeployableTrigger {
	var triggers []DeployableTrigger
	for _, d := range deployables {
		if !d.Active || !d.Armed {
			continue
		}
		for _, e := range enemies {
			if e.Active && Overlap(d.Position, d.TriggerRadius, e.Position, e.Radius) {
				triggers = append(triggers, DeployableTrigger{Deployable: d, Enemy: e})
				break
			}
		}
	}
	return triggers
}
