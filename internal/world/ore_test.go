package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

func countCells(chunk *Chunk, ids ...material.ID) int {
	n := 0
	for _, c := range chunk.Cells {
		for _, id := range ids {
			if c == id {
				n++
				break
			}
		}
	}
	return n
}

func TestSeedCountByDepth(t *testing.T) {
	specs := DefaultOreSpecs()
	copper, silver := specs[0], specs[1]
	rng := rand.New(rand.NewSource(3))

	assert.Zero(t, copper.SeedCount(0, rng))
	assert.Zero(t, copper.SeedCount(-4, rng))
	assert.Zero(t, silver.SeedCount(2, rng), "серебро не встречается выше MinDepth")

	for depth := 1; depth <= 80; depth++ {
		n := copper.SeedCount(depth, rng)
		assert.GreaterOrEqual(t, n, int(copper.Rate*float64(depth)*0.5))
		assert.LessOrEqual(t, n, MaxSeedsPerOre)
	}
}

func TestSeedSkipsSurfaceAndSky(t *testing.T) {
	gen := NewWorldGenerator(DefaultGeneratorConfig(11))
	seeder := NewOreSeeder(11, DefaultOreSpecs())

	for _, coords := range []vec.Vec2{{X: 0, Y: 0}, {X: 2, Y: 1}, {X: -1, Y: 5}} {
		chunk := gen.GenerateChunk(coords)
		before := chunk.Cells
		assert.Zero(t, seeder.Seed(chunk))
		assert.Equal(t, before, chunk.Cells)
	}
}

func TestSeedGrowsOreUnderground(t *testing.T) {
	gen := NewWorldGenerator(DefaultGeneratorConfig(11))
	seeder := NewOreSeeder(11, DefaultOreSpecs())

	chunk := gen.GenerateChunk(vec.Vec2{X: 0, Y: -20})
	converted := seeder.Seed(chunk)
	require.Greater(t, converted, 0)
	assert.Equal(t, converted, countCells(chunk, material.Copper, material.Silver))
	assert.NoError(t, chunk.Validate())
}

func TestSeedNeverTouchesVoid(t *testing.T) {
	seeder := NewOreSeeder(11, DefaultOreSpecs())

	// подземные координаты, но чанк пустой: руде не во что расти
	chunk := NewChunk(vec.Vec2{X: 0, Y: -30})
	assert.Zero(t, seeder.Seed(chunk))
	assert.Equal(t, CellCount, countCells(chunk, material.Void))

	// наполовину пустой чанк: пустые клетки остаются пустыми
	half := NewChunk(vec.Vec2{X: 1, Y: -30})
	for i := CellCount / 2; i < CellCount; i++ {
		half.Cells[i] = material.Rock
	}
	seeder.Seed(half)
	for i := 0; i < CellCount/2; i++ {
		require.Equal(t, material.Void, half.Cells[i], "клетка %d", i)
	}
}
