package game

import (
	"github.com/annel0/arena-core/internal/vec"
)

// Input дискретное состояние управления на кадр.
// Аналоговые значения, если заданы, имеют приоритет над клавишами.
type Input struct {
	Up    bool    `json:"up"`
	Down  bool    `json:"down"`
	Left  bool    `json:"left"`
	Right bool    `json:"right"`
	MoveX float64 `json:"moveX"`
	MoveY float64 `json:"moveY"`
}

// Direction направление движения длиной не больше 1
func (in Input) Direction() vec.Vec2 {
	if in.MoveX != 0 || in.MoveY != 0 {
		v := vec.Vec2{X: in.MoveX, Y: in.MoveY}
		if v.LengthSq() > 1 {
			v = v.Normalized()
		}
		return v
	}

	var v vec.Vec2
	if in.Up {
		v.Y--
	}
	if in.Down {
		v.Y++
	}
	if in.Left {
		v.X--
	}
	if in.Right {
		v.X++
	}
	// по диагонали не быстрее, чем по прямой
	return v.Normalized()
}
