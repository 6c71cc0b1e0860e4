package world

import (
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// Shape задаёт область действия инструмента
type Shape interface {
	// Cells возвращает клетки области: сверху вниз, слева направо
	Cells(center vec.Vec2) []vec.Vec2
}

// Disc — круг радиуса Radius (dx²+dy² <= r²)
type Disc struct {
	Radius int
}

// Cells реализует Shape
func (d Disc) Cells(center vec.Vec2) []vec.Vec2 {
	r := d.Radius
	if r < 0 {
		r = 0
	}
	cells := make([]vec.Vec2, 0, (2*r+1)*(2*r+1))
	for dy := r; dy >= -r; dy-- {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				cells = append(cells, vec.Vec2{X: center.X + dx, Y: center.Y + dy})
			}
		}
	}
	return cells
}

// Rect — прямоугольник Width x Height с центром в позиции инструмента
type Rect struct {
	Width, Height int
}

// Cells реализует Shape
func (r Rect) Cells(center vec.Vec2) []vec.Vec2 {
	if r.Width <= 0 || r.Height <= 0 {
		return nil
	}
	left := center.X - r.Width/2
	top := center.Y + (r.Height-1)/2
	cells := make([]vec.Vec2, 0, r.Width*r.Height)
	for y := top; y > top-r.Height; y-- {
		for x := left; x < left+r.Width; x++ {
			cells = append(cells, vec.Vec2{X: x, Y: y})
		}
	}
	return cells
}

// Inventory — ограниченный стек материалов инструмента (LIFO)
type Inventory struct {
	capacity int
	items    []material.ID
}

// NewInventory создаёт пустой инвентарь
func NewInventory(capacity int) *Inventory {
	if capacity < 0 {
		capacity = 0
	}
	return &Inventory{capacity: capacity, items: make([]material.ID, 0, capacity)}
}

// Push добавляет материал. Возвращает false, если инвентарь полон.
func (inv *Inventory) Push(id material.ID) bool {
	if inv.Full() {
		return false
	}
	inv.items = append(inv.items, id)
	return true
}

// Pop снимает последний добавленный материал
func (inv *Inventory) Pop() (material.ID, bool) {
	if len(inv.items) == 0 {
		return material.Void, false
	}
	last := inv.items[len(inv.items)-1]
	inv.items = inv.items[:len(inv.items)-1]
	return last, true
}

// Top возвращает верхний материал без снятия (для индикатора инструмента)
func (inv *Inventory) Top() (material.ID, bool) {
	if len(inv.items) == 0 {
		return material.Void, false
	}
	return inv.items[len(inv.items)-1], true
}

func (inv *Inventory) Len() int    { return len(inv.items) }
func (inv *Inventory) Cap() int    { return inv.capacity }
func (inv *Inventory) Full() bool  { return len(inv.items) >= inv.capacity }
func (inv *Inventory) Empty() bool { return len(inv.items) == 0 }

// Items возвращает копию содержимого, от дна к вершине
func (inv *Inventory) Items() []material.ID {
	out := make([]material.ID, len(inv.items))
	copy(out, inv.items)
	return out
}

// ToolKind — тип инструмента
type ToolKind int

const (
	ToolShovel ToolKind = iota
	ToolPickaxe
)

// String возвращает имя типа инструмента
func (k ToolKind) String() string {
	switch k {
	case ToolShovel:
		return "shovel"
	case ToolPickaxe:
		return "pickaxe"
	default:
		return "unknown"
	}
}

// ParseToolKind разбирает имя инструмента
func ParseToolKind(s string) (ToolKind, bool) {
	switch s {
	case "shovel":
		return ToolShovel, true
	case "pickaxe":
		return ToolPickaxe, true
	default:
		return ToolShovel, false
	}
}

// Tool — инструмент игрока с формой области и инвентарём
type Tool struct {
	ID        string
	Kind      ToolKind
	Shape     Shape
	Inventory *Inventory
}

// NewTool создаёт инструмент
func NewTool(id string, kind ToolKind, shape Shape, capacity int) *Tool {
	return &Tool{ID: id, Kind: kind, Shape: shape, Inventory: NewInventory(capacity)}
}

// ToolResult — итог применения инструмента
type ToolResult struct {
	Removed   []material.ID // выкопанные материалы
	Placed    int           // выложенные клетки
	Crushed   int           // камень, превращённый в гравий
	Inventory int           // размер инвентаря после операции
}
