package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// skyY — высота, на которой генератор не создаёт ничего, кроме пустоты
const skyY = 500

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return NewWorld(DefaultOptions(4242))
}

// columnCount считает непустые клетки колонны x в диапазоне [from, to]
func columnCount(w *World, x, from, to int) int {
	n := 0
	for y := from; y <= to; y++ {
		if w.CellAt(vec.Vec2{X: x, Y: y}) != material.Void {
			n++
		}
	}
	return n
}

func TestSingleGrainFallsOneCellPerStep(t *testing.T) {
	w := newTestWorld(t)
	start := vec.Vec2{X: 0, Y: skyY}
	w.SetCell(start, material.Dirt1)

	for step := 1; step <= 5; step++ {
		w.StepGravity()
		assert.Equal(t, material.Dirt1, w.CellAt(vec.Vec2{X: 0, Y: skyY - step}), "шаг %d", step)
		assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: 0, Y: skyY - step + 1}))
		assert.Equal(t, 1, columnCount(w, 0, skyY-10, skyY+10), "материал не теряется и не дублируется")
	}
}

func TestGrainCrossesChunkBoundary(t *testing.T) {
	w := newTestWorld(t)
	// нижняя клетка чанка: следующий шаг переносит зерно в чанк ниже
	bottom := vec.Vec2{X: 3, Y: vec.GlobalY(20, vec.ChunkSize-1)}
	w.SetCell(bottom, material.Gravel2)

	w.StepGravity()
	below := bottom.Down()
	require.NotEqual(t, bottom.ToChunkCoords(), below.ToChunkCoords())
	assert.Equal(t, material.Gravel2, w.CellAt(below))
	assert.Equal(t, material.Void, w.CellAt(bottom))
}

func TestFallingGrainDragsColumn(t *testing.T) {
	w := newTestWorld(t)
	store := w.Store()
	column := []material.ID{material.Dirt1, material.Grass2, material.Copper, material.Silver}
	for i, id := range column {
		store.SetCell(vec.Vec2{X: 7, Y: skyY + i}, id)
	}
	w.Gravity().MarkDirty(vec.Vec2{X: 7, Y: skyY})

	w.StepGravity()
	for i, id := range column {
		assert.Equal(t, id, w.CellAt(vec.Vec2{X: 7, Y: skyY - 1 + i}), "клетка %d", i)
	}
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: 7, Y: skyY + len(column) - 1}))
	assert.Equal(t, len(column), columnCount(w, 7, skyY-5, skyY+10))
}

func TestDragStopsAtNonFallingMaterial(t *testing.T) {
	w := newTestWorld(t)
	store := w.Store()
	store.SetCell(vec.Vec2{X: 9, Y: skyY}, material.Dirt2)
	store.SetCell(vec.Vec2{X: 9, Y: skyY + 1}, material.RefinedCopper)
	store.SetCell(vec.Vec2{X: 9, Y: skyY + 2}, material.Dirt3)
	w.Gravity().MarkDirty(vec.Vec2{X: 9, Y: skyY})

	w.StepGravity()
	assert.Equal(t, material.Dirt2, w.CellAt(vec.Vec2{X: 9, Y: skyY - 1}))
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: 9, Y: skyY}))
	assert.Equal(t, material.RefinedCopper, w.CellAt(vec.Vec2{X: 9, Y: skyY + 1}))
	assert.Equal(t, material.Dirt3, w.CellAt(vec.Vec2{X: 9, Y: skyY + 2}))
}

func TestDragMovesStructuresAndStopsAtLight(t *testing.T) {
	w := newTestWorld(t)
	store := w.Store()
	x := 17
	store.SetCell(vec.Vec2{X: x, Y: skyY}, material.Dirt1)
	store.SetCell(vec.Vec2{X: x, Y: skyY + 1}, material.DrillFrame)
	store.SetCell(vec.Vec2{X: x, Y: skyY + 2}, material.SellBox)
	store.SetCell(vec.Vec2{X: x, Y: skyY + 3}, material.Light)
	w.Gravity().MarkDirty(vec.Vec2{X: x, Y: skyY})

	w.StepGravity()
	assert.Equal(t, material.Dirt1, w.CellAt(vec.Vec2{X: x, Y: skyY - 1}))
	assert.Equal(t, material.DrillFrame, w.CellAt(vec.Vec2{X: x, Y: skyY}), "бур тянется вниз за зерном")
	assert.Equal(t, material.SellBox, w.CellAt(vec.Vec2{X: x, Y: skyY + 1}))
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: x, Y: skyY + 2}))
	assert.Equal(t, material.Light, w.CellAt(vec.Vec2{X: x, Y: skyY + 3}), "свет останавливает протягивание")
}

func TestDragStopsAtRock(t *testing.T) {
	w := newTestWorld(t)
	store := w.Store()
	x := 19
	store.SetCell(vec.Vec2{X: x, Y: skyY}, material.Gravel1)
	store.SetCell(vec.Vec2{X: x, Y: skyY + 1}, material.Rock)
	w.Gravity().MarkDirty(vec.Vec2{X: x, Y: skyY})

	w.StepGravity()
	assert.Equal(t, material.Gravel1, w.CellAt(vec.Vec2{X: x, Y: skyY - 1}))
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: x, Y: skyY}))
	assert.Equal(t, material.Rock, w.CellAt(vec.Vec2{X: x, Y: skyY + 1}))
}

func TestLongColumnSettlesPastScanLimit(t *testing.T) {
	w := newTestWorld(t)
	store := w.Store()
	x := 21
	height := DefaultMaxScan + 10
	store.SetCell(vec.Vec2{X: x, Y: skyY - 3}, material.Rock)
	for i := 0; i < height; i++ {
		store.SetCell(vec.Vec2{X: x, Y: skyY + i}, material.Dirt1)
	}
	w.Gravity().MarkDirty(vec.Vec2{X: x, Y: skyY})

	for i := 0; i < 10; i++ {
		w.StepGravity()
	}
	for i := 0; i < height; i++ {
		require.Equal(t, material.Dirt1, w.CellAt(vec.Vec2{X: x, Y: skyY - 2 + i}), "клетка %d колонны висит", i)
	}
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: x, Y: skyY - 2 + height}))
	assert.Zero(t, w.Gravity().DirtyCount(), "колонна осела полностью")
}

func TestGrainRestsOnRock(t *testing.T) {
	w := newTestWorld(t)
	w.Store().SetCell(vec.Vec2{X: 2, Y: skyY - 1}, material.Rock)
	w.SetCell(vec.Vec2{X: 2, Y: skyY}, material.Dirt1)

	w.StepGravity()
	assert.Equal(t, material.Dirt1, w.CellAt(vec.Vec2{X: 2, Y: skyY}))
	assert.Zero(t, w.Gravity().DirtyCount(), "осевшая клетка больше не проверяется")
}

func TestSellBoxVacuumsColumn(t *testing.T) {
	w := newTestWorld(t)
	box := vec.Vec2{X: 11, Y: skyY}
	w.SetCell(box, material.SellBox)
	for i := 1; i <= 3; i++ {
		w.Store().SetCell(vec.Vec2{X: box.X, Y: box.Y + i}, material.Copper)
	}
	w.Gravity().MarkDirty(vec.Vec2{X: box.X, Y: box.Y + 1})

	prev := w.CurrentMoney()
	w.StepGravity()
	assert.InDelta(t, 1.5, w.CurrentMoney()-prev, 1e-9)
	assert.Zero(t, columnCount(w, box.X, box.Y+1, box.Y+5))
	assert.Equal(t, material.SellBox, w.CellAt(box))

	// баланс монотонен: дальнейшие шаги его не уменьшают
	money := w.CurrentMoney()
	for i := 0; i < 5; i++ {
		w.StepGravity()
		require.GreaterOrEqual(t, w.CurrentMoney(), money)
		money = w.CurrentMoney()
	}
}

func TestSellBoxPricesMixedColumn(t *testing.T) {
	w := newTestWorld(t)
	box := vec.Vec2{X: 13, Y: skyY}
	w.SetCell(box, material.SellBox)
	column := []material.ID{material.Dirt1, material.Silver, material.Gravel3, material.Grass1}
	for i, id := range column {
		w.Store().SetCell(vec.Vec2{X: box.X, Y: box.Y + 1 + i}, id)
	}
	// переработанная медь останавливает втягивание
	w.Store().SetCell(vec.Vec2{X: box.X, Y: box.Y + 1 + len(column)}, material.RefinedCopper)
	w.Gravity().MarkDirty(vec.Vec2{X: box.X, Y: box.Y + 1})

	w.StepGravity()
	assert.InDelta(t, 0.01+1.0+0.01+0.01, w.CurrentMoney(), 1e-9)
	assert.Equal(t, material.RefinedCopper, w.CellAt(vec.Vec2{X: box.X, Y: box.Y + 1 + len(column)}))
}

func TestSellBoxClearsRockWithoutPayment(t *testing.T) {
	w := newTestWorld(t)
	box := vec.Vec2{X: 23, Y: skyY}
	w.SetCell(box, material.SellBox)
	column := []material.ID{material.Copper, material.Rock, material.DrillBit, material.Copper, material.RefinedCopper}
	for i, id := range column {
		w.Store().SetCell(vec.Vec2{X: box.X, Y: box.Y + 1 + i}, id)
	}
	w.Gravity().MarkDirty(vec.Vec2{X: box.X, Y: box.Y + 1})

	w.StepGravity()
	assert.InDelta(t, 1.0, w.CurrentMoney(), 1e-9, "камень и бур втягиваются бесплатно")
	assert.Zero(t, columnCount(w, box.X, box.Y+1, box.Y+4))
	assert.Equal(t, material.RefinedCopper, w.CellAt(vec.Vec2{X: box.X, Y: box.Y + 5}))
}

func TestSellBoxVacuumsPastScanLimit(t *testing.T) {
	w := newTestWorld(t)
	box := vec.Vec2{X: 25, Y: skyY}
	w.SetCell(box, material.SellBox)
	height := DefaultMaxScan + 10
	for i := 1; i <= height; i++ {
		w.Store().SetCell(vec.Vec2{X: box.X, Y: box.Y + i}, material.Copper)
	}
	w.Gravity().MarkDirty(vec.Vec2{X: box.X, Y: box.Y + 1})

	w.StepGravity()
	assert.InDelta(t, 0.5*float64(DefaultMaxScan), w.CurrentMoney(), 1e-9)
	assert.True(t, w.Gravity().IsDirty(vec.Vec2{X: box.X, Y: box.Y + DefaultMaxScan + 1}), "остаток колонны в очереди")

	for i := 0; i < DefaultMaxScan+5; i++ {
		w.StepGravity()
	}
	assert.InDelta(t, 0.5*float64(height), w.CurrentMoney(), 1e-9)
	assert.Zero(t, columnCount(w, box.X, box.Y+1, box.Y+height))
}

func TestGrainFallsIntoSellBox(t *testing.T) {
	w := newTestWorld(t)
	box := vec.Vec2{X: 15, Y: skyY}
	w.SetCell(box, material.SellBox)
	w.SetCell(vec.Vec2{X: box.X, Y: box.Y + 4}, material.Silver)

	for i := 0; i < 10; i++ {
		w.StepGravity()
	}
	assert.InDelta(t, 1.0, w.CurrentMoney(), 1e-9)
	assert.Zero(t, columnCount(w, box.X, box.Y+1, box.Y+6))
}

func TestTickAccumulator(t *testing.T) {
	store := newTestStore(31)
	g := NewGravityEngine(store, 50*time.Millisecond, 0)

	assert.Equal(t, 0, g.Tick(20*time.Millisecond))
	assert.Equal(t, 1, g.Tick(40*time.Millisecond))
	assert.Equal(t, MaxCatchUpSteps, g.Tick(time.Second), "отставание ограничено")
	assert.Equal(t, 0, g.Tick(49*time.Millisecond), "накопитель сброшен после отставания")
	assert.Equal(t, uint64(1+MaxCatchUpSteps), g.Steps())
}

func TestPinnedChunks(t *testing.T) {
	store := newTestStore(32)
	g := NewGravityEngine(store, 0, 0)
	g.MarkDirty(vec.Vec2{X: 0, Y: 0})
	g.MarkDirty(vec.Vec2{X: 1, Y: 1})
	g.MarkDirty(vec.Vec2{X: -1, Y: 0})

	pinned := g.PinnedChunks()
	assert.Len(t, pinned, 2)
	assert.Contains(t, pinned, vec.Vec2{X: 0, Y: 0})
	assert.Contains(t, pinned, vec.Vec2{X: -1, Y: 0})
	assert.True(t, g.IsDirty(vec.Vec2{X: 1, Y: 1}))
	_, generated := store.Get(vec.Vec2{X: -1, Y: 0})
	assert.True(t, generated, "MarkDirty генерирует чанк заранее")
}
