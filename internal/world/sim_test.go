package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/dig-world/internal/metrics"
	"github.com/annel0/dig-world/internal/physics"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

func fillShape(w *World, shape Shape, center vec.Vec2, id material.ID) {
	for _, c := range shape.Cells(center) {
		w.Store().SetCell(c, id)
	}
}

func TestDigStopsAtCapacity(t *testing.T) {
	w := newTestWorld(t)
	center := vec.Vec2{X: 0, Y: 600}
	shape := Disc{Radius: 1}
	fillShape(w, shape, center, material.Dirt1)

	inv := NewInventory(2)
	removed, err := w.Dig(center, shape, inv)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.True(t, inv.Full())
	// первые клетки в порядке обхода: верхняя, затем левая в средней строке
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: 0, Y: 601}))
	assert.Equal(t, material.Void, w.CellAt(vec.Vec2{X: -1, Y: 600}))
	assert.Equal(t, material.Dirt1, w.CellAt(center))

	removed, err = w.Dig(center, shape, inv)
	require.NoError(t, err)
	assert.Empty(t, removed, "полный инвентарь ничего не выкапывает")
}

func TestDigSkipsNonShovelable(t *testing.T) {
	w := newTestWorld(t)
	center := vec.Vec2{X: 20, Y: 600}
	shape := Rect{Width: 2, Height: 1}
	w.Store().SetCell(vec.Vec2{X: 19, Y: 600}, material.Rock)
	w.Store().SetCell(vec.Vec2{X: 20, Y: 600}, material.Silver)

	inv := NewInventory(10)
	removed, err := w.Dig(center, shape, inv)
	require.NoError(t, err)
	assert.Equal(t, []material.ID{material.Silver}, removed)
	assert.Equal(t, material.Rock, w.CellAt(vec.Vec2{X: 19, Y: 600}))
}

func TestDigMarksColumnAbove(t *testing.T) {
	w := newTestWorld(t)
	w.Store().SetCell(vec.Vec2{X: 30, Y: 600}, material.Dirt1)
	w.Store().SetCell(vec.Vec2{X: 30, Y: 605}, material.Gravel1)

	_, err := w.Dig(vec.Vec2{X: 30, Y: 600}, Disc{Radius: 0}, NewInventory(4))
	require.NoError(t, err)
	assert.True(t, w.Gravity().IsDirty(vec.Vec2{X: 30, Y: 605}))
}

func TestDigPlaceRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	// глубоко под землёй нет открытых клеток: только камень и руда
	center := vec.Vec2{X: 5, Y: -2000}
	shape := Disc{Radius: 3}
	before := make(map[vec.Vec2]material.ID)
	for _, c := range shape.Cells(center) {
		id := w.CellAt(c)
		require.False(t, material.IsOpen(id))
		before[c] = id
	}

	// гарантируем, что есть что выкапывать
	w.Store().SetCell(center, material.Copper)
	before[center] = material.Copper
	w.Store().SetCell(center.Up(), material.Dirt3)
	before[center.Up()] = material.Dirt3

	inv := NewInventory(64)
	removed, err := w.Dig(center, shape, inv)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(removed), 2)

	placed := w.Place(center, shape, inv)
	assert.Equal(t, len(removed), placed)
	assert.True(t, inv.Empty())
	for c, id := range before {
		assert.Equal(t, id, w.CellAt(c), "клетка %v", c)
	}
}

func TestPlaceFillsOnlyOpenCells(t *testing.T) {
	w := newTestWorld(t)
	center := vec.Vec2{X: 40, Y: 600}
	w.Store().SetCell(center, material.Rock)
	w.Store().SetCell(center.Down(), material.Light)

	inv := NewInventory(10)
	inv.Push(material.Dirt1)
	inv.Push(material.Dirt2)

	placed := w.Place(center, Rect{Width: 1, Height: 3}, inv)
	assert.Equal(t, 2, placed)
	assert.Equal(t, material.Rock, w.CellAt(center))
	assert.Equal(t, material.Dirt2, w.CellAt(center.Down()), "свет заменяется")
	assert.Equal(t, material.Dirt1, w.CellAt(center.Up()))
	assert.True(t, w.Gravity().IsDirty(center.Up()))

	assert.Zero(t, w.Place(center, Disc{Radius: 2}, inv), "пустой инвентарь")
}

func TestExcavateTurnsRockIntoGravel(t *testing.T) {
	w := newTestWorld(t)
	center := vec.Vec2{X: 50, Y: 600}
	shape := Rect{Width: 3, Height: 3}
	fillShape(w, shape, center, material.Rock)
	w.Store().SetCell(center, material.DrillFrame)

	crushed, err := w.Excavate(center, shape)
	require.NoError(t, err)
	assert.Equal(t, 8, crushed)
	for _, c := range shape.Cells(center) {
		if c == center {
			assert.Equal(t, material.DrillFrame, w.CellAt(c))
			continue
		}
		assert.Contains(t, material.Gravel[:], w.CellAt(c))
		assert.True(t, w.Gravity().IsDirty(c))
	}
}

func TestUseTool(t *testing.T) {
	w := newTestWorld(t)
	shovel := NewTool("s1", ToolShovel, Disc{Radius: 0}, 4)
	pickaxe := NewTool("p1", ToolPickaxe, Disc{Radius: 0}, 4)
	pos := vec.Vec2{X: 60, Y: 600}

	w.Store().SetCell(pos, material.Rock)
	res, err := w.UseTool(shovel, pos, true)
	require.NoError(t, err)
	assert.Empty(t, res.Removed, "лопата не берёт камень")

	res, err = w.UseTool(pickaxe, pos, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Crushed)
	assert.Zero(t, res.Inventory)

	res, err = w.UseTool(shovel, pos, true)
	require.NoError(t, err)
	require.Len(t, res.Removed, 1)
	assert.Contains(t, material.Gravel[:], res.Removed[0])
	assert.Equal(t, 1, res.Inventory)

	res, err = w.UseTool(shovel, pos, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Placed)
	assert.Zero(t, res.Inventory)
}

func TestCorruptCellIsReported(t *testing.T) {
	opts := DefaultOptions(77)
	opts.Metrics = metrics.NewWorldMetrics()
	w := NewWorld(opts)
	pos := vec.Vec2{X: 0, Y: 600}
	w.Store().SetCell(pos, material.ID(200))

	_, err := w.Dig(pos, Disc{Radius: 0}, NewInventory(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptMaterial))

	var cellErr *CorruptCellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, pos, cellErr.Pos)

	_, err = w.Excavate(pos, Disc{Radius: 0})
	assert.ErrorIs(t, err, ErrCorruptMaterial)
}

func TestIsSolidRegion(t *testing.T) {
	w := newTestWorld(t)
	origin := vec.Vec2{X: 70, Y: 600}

	assert.False(t, w.IsSolidRegion(origin, 3, 3))
	w.Store().SetCell(vec.Vec2{X: 71, Y: 601}, material.SellBox)
	w.Store().SetCell(vec.Vec2{X: 72, Y: 602}, material.Light)
	assert.False(t, w.IsSolidRegion(origin, 3, 3), "приёмник и свет проходимы")

	w.Store().SetCell(vec.Vec2{X: 72, Y: 600}, material.Dirt1)
	assert.True(t, w.IsSolidRegion(origin, 3, 3))
	assert.False(t, w.IsSolidRegion(origin, 2, 3), "правая граница не входит")
	assert.False(t, w.IsSolidRegion(origin, 0, 3))

	assert.True(t, w.IsSolidRegion(vec.Vec2{X: 0, Y: -3000}, 1, 1), "глубина — камень")
}

func TestCanEntityMoveTo(t *testing.T) {
	w := newTestWorld(t)
	collider := physics.NewBoxCollider(1, 2)
	pos := vec.Vec2Float{X: 80.5, Y: 600}

	assert.True(t, w.CanEntityMoveTo(pos, collider))
	w.Store().SetCell(vec.Vec2{X: 80, Y: 601}, material.Rock)
	assert.False(t, w.CanEntityMoveTo(pos, collider))
}

func TestStatsAndRun(t *testing.T) {
	opts := DefaultOptions(88)
	opts.GravityPeriod = 5 * time.Millisecond
	opts.EvictRadius = 1
	opts.EvictEvery = 5 * time.Millisecond
	w := NewWorld(opts)
	w.SetCell(vec.Vec2{X: 0, Y: skyY}, material.Dirt1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return w.Stats().GravitySteps >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.LoadedChunks, 1)
	assert.Zero(t, stats.Money)
}
