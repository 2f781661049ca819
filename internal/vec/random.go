package vec

import "math"

// Float64Source минимальный источник случайности, нужный генераторам точек.
// Совместим с *rand.Rand и rng.Source.
type Float64Source interface {
	Float64() float64
}

// RandomAngle возвращает случайный угол в [0, 2π)
func RandomAngle(r Float64Source) float64 {
	return r.Float64() * 2 * math.Pi
}

// RandomPointInCircle возвращает равномерно распределённую точку внутри круга
func RandomPointInCircle(r Float64Source, center Vec2, radius float64) Vec2 {
	angle := RandomAngle(r)
	dist := math.Sqrt(r.Float64()) * radius
	return center.Add(FromAngle(angle, dist))
}

// RandomPointOnCircle возвращает случайную точку на окружности
func RandomPointOnCircle(r Float64Source, center Vec2, radius float64) Vec2 {
	return center.Add(FromAngle(RandomAngle(r), radius))
}

// Clamp ограничивает значение отрезком [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
