// Package rng единая точка случайности симуляции.
//
// Все броски (дроп, криты, уклонение, разброс, количество частиц) идут через
// Source, поэтому тесты передают детерминированный генератор с фиксированным seed.
package rng

import (
	"math/rand"
	"time"
)

// Source порт генератора случайных чисел
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New создаёт детерминированный генератор с заданным seed
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewUnseeded создаёт генератор с seed от текущего времени (игровой режим)
func NewUnseeded() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Range возвращает число в [min, max)
func Range(r Source, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// IntRange возвращает целое число в [min, max] включительно
func IntRange(r Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// Chance возвращает true с вероятностью p
func Chance(r Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// Fixed источник, всегда возвращающий одно и то же значение.
// Нужен в тестах, где бросок должен гарантированно пройти или провалиться.
type Fixed float64

// Float64 реализует Source
func (f Fixed) Float64() float64 { return float64(f) }

// Intn реализует Source
func (f Fixed) Intn(n int) int {
	v := int(float64(f) * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
