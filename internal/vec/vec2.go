package vec

import "math"

// Vec2 представляет 2D координаты арены с плавающей точкой (пиксели)
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zero нулевой вектор
var Zero = Vec2{}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2) Mul(scalar float64) Vec2 {
	return Vec2{X: v.X * scalar, Y: v.Y * scalar}
}

// Length возвращает длину вектора
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSq возвращает квадрат длины (без корня)
func (v Vec2) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalized возвращает нормализованный вектор.
// Для нулевого вектора возвращает нулевой вектор.
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSqTo вычисляет квадрат расстояния до другой точки.
// Используется в горячих циклах коллизий, где корень не нужен.
func (v Vec2) DistanceSqTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx*dx + dy*dy
}

// Angle возвращает угол вектора в радианах
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// AngleTo возвращает угол направления от v к other
func (v Vec2) AngleTo(other Vec2) float64 {
	return math.Atan2(other.Y-v.Y, other.X-v.X)
}

// IsZero сообщает, является ли вектор нулевым
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// FromAngle создаёт вектор заданной длины под углом angle
func FromAngle(angle, length float64) Vec2 {
	return Vec2{X: math.Cos(angle) * length, Y: math.Sin(angle) * length}
}
