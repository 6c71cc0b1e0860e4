package world

import (
	"fmt"
	"math"
	"sync"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// CellCount — количество клеток в чанке
const CellCount = vec.ChunkSize * vec.ChunkSize

// NoSurface означает колонку без единой непустой клетки
const NoSurface = math.MinInt32

// Chunk представляет участок мира ChunkSize x ChunkSize клеток
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	// Cells хранит материалы построчно: индекс = row*ChunkSize + col, строка 0 — верх
	Cells [CellCount]material.ID

	// Surface[col] — максимальный глобальный Y непустой клетки колонки на момент генерации
	Surface [vec.ChunkSize]int

	ChangeCounter int          // Счетчик изменений после генерации/загрузки
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	c := &Chunk{Coords: coords}
	for i := range c.Surface {
		c.Surface[i] = NoSurface
	}
	return c
}

// GetBlock возвращает материал по локальным координатам
func (c *Chunk) GetBlock(local vec.Vec2) material.ID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.Cells[local.Index()]
}

// SetBlock устанавливает материал по локальным координатам и учитывает изменение
func (c *Chunk) SetBlock(local vec.Vec2, id material.ID) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	idx := local.Index()
	if c.Cells[idx] == id {
		return
	}
	c.Cells[idx] = id
	c.ChangeCounter++
}

// GlobalOrigin возвращает глобальные координаты левой верхней клетки чанка
func (c *Chunk) GlobalOrigin() vec.Vec2 {
	return vec.FromChunkLocal(c.Coords, vec.Vec2{X: 0, Y: 0})
}

// Snapshot возвращает копию клеток
func (c *Chunk) Snapshot() [CellCount]material.ID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.Cells
}

// HasChanges возвращает true, если чанк изменялся после генерации или загрузки
func (c *Chunk) HasChanges() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счетчик изменений (после сохранения)
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.ChangeCounter = 0
}

// Validate проверяет, что все клетки содержат допустимые коды материалов
func (c *Chunk) Validate() error {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	for i, id := range c.Cells {
		if !material.IsValid(id) {
			local := vec.Vec2{X: i % vec.ChunkSize, Y: i / vec.ChunkSize}
			return &CorruptCellError{Pos: vec.FromChunkLocal(c.Coords, local), Code: id}
		}
	}
	return nil
}

// RecomputeSurface пересчитывает карту высот по текущим клеткам
func (c *Chunk) RecomputeSurface() {
	for col := 0; col < vec.ChunkSize; col++ {
		c.Surface[col] = NoSurface
		for row := 0; row < vec.ChunkSize; row++ {
			if c.Cells[vec.Vec2{X: col, Y: row}.Index()] != material.Void {
				c.Surface[col] = vec.GlobalY(c.Coords.Y, row)
				break
			}
		}
	}
}

// String для логов
func (c *Chunk) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.Coords.X, c.Coords.Y)
}
