package combat

import "math"

// ArmorReduction доля поглощаемого урона: armor/(armor+k).
// 0 при нулевой броне, растёт с бронёй и никогда не достигает 1.
// Отрицательная броня не усиливает урон.
func ArmorReduction(armor, k float64) float64 {
	if armor <= 0 {
		return 0
	}
	return armor / (armor + k)
}

// MitigatedDamage урон после брони
func MitigatedDamage(amount, armor, k float64) float64 {
	return amount * (1 - ArmorReduction(armor, k))
}

// ExplosionDamage линейное затухание урона взрыва:
// damage × (1 − (dist/radius) × falloff). На краю остаётся damage×(1−falloff).
func ExplosionDamage(damage, dist, radius, falloff float64) float64 {
	if radius <= 0 {
		return damage
	}
	ratio := math.Min(1, math.Max(0, dist/radius))
	return damage * (1 - ratio*falloff)
}

// DecayFactor затухание за dt секунд при заданном множителе на кадр (60 FPS)
func DecayFactor(perFrame, dt float64) float64 {
	return math.Pow(perFrame, dt*60)
}
