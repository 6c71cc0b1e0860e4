package physics

import (
	"math"

	"github.com/annel0/dig-world/internal/vec"
)

// CellChecker сообщает, занята ли клетка твёрдым материалом
type CellChecker func(pos vec.Vec2) bool

// AnySolid проверяет прямоугольник клеток [X, X+width) x [Y, Y+height).
// pos — левая нижняя клетка области. Пустая область никогда не твёрдая.
func AnySolid(pos vec.Vec2, width, height int, isSolid CellChecker) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	for y := pos.Y; y < pos.Y+height; y++ {
		for x := pos.X; x < pos.X+width; x++ {
			if isSolid(vec.Vec2{X: x, Y: y}) {
				return true
			}
		}
	}
	return false
}

// BoxCollider представляет прямоугольный коллайдер сущности (в клетках)
type BoxCollider struct {
	Width  float64
	Height float64
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(width, height float64) BoxCollider {
	return BoxCollider{Width: width, Height: height}
}

// CellBounds возвращает левую нижнюю клетку и размеры области клеток,
// которые перекрывает коллайдер с левым нижним углом в pos
func (bc BoxCollider) CellBounds(pos vec.Vec2Float) (vec.Vec2, int, int) {
	minCell := pos.Floor()
	// правая/верхняя граница не включается: касание границы клетки — не перекрытие
	maxX := int(math.Ceil(pos.X+bc.Width)) - 1
	maxY := int(math.Ceil(pos.Y+bc.Height)) - 1
	return minCell, maxX - minCell.X + 1, maxY - minCell.Y + 1
}

// CanMoveToPosition проверяет, может ли сущность с указанным коллайдером оказаться в позиции
func CanMoveToPosition(newPos vec.Vec2Float, collider BoxCollider, isSolid CellChecker) bool {
	if collider.Width <= 0 || collider.Height <= 0 {
		return true
	}
	origin, w, h := collider.CellBounds(newPos)
	return !AnySolid(origin, w, h, isSolid)
}
