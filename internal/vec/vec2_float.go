package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой (позиции сущностей)
type Vec2Float struct {
	X, Y float64
}

// Floor возвращает клетку, в которой лежит точка
func (v Vec2Float) Floor() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}
