package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkOfFloorsNegative(t *testing.T) {
	assert.Equal(t, 0, ChunkOf(0))
	assert.Equal(t, 0, ChunkOf(ChunkSize-1))
	assert.Equal(t, 1, ChunkOf(ChunkSize))
	assert.Equal(t, -1, ChunkOf(-1), "-1 должен попадать в чанк -1, а не 0")
	assert.Equal(t, -1, ChunkOf(-ChunkSize))
	assert.Equal(t, -2, ChunkOf(-ChunkSize-1))
}

func TestLocalOfAlwaysInRange(t *testing.T) {
	for g := -3 * ChunkSize; g <= 3*ChunkSize; g++ {
		l := LocalOf(g)
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, ChunkSize)
	}
	assert.Equal(t, ChunkSize-1, LocalOf(-1))
}

func TestCoordinateBijection(t *testing.T) {
	for x := -2*ChunkSize - 3; x <= 2*ChunkSize+3; x += 5 {
		for y := -2*ChunkSize - 3; y <= 2*ChunkSize+3; y++ {
			g := Vec2{X: x, Y: y}
			back := FromChunkLocal(g.ToChunkCoords(), g.LocalInChunk())
			assert.Equal(t, g, back, "координаты должны восстанавливаться без потерь")
		}
	}
}

func TestGlobalYMonotonicAndContiguous(t *testing.T) {
	for cy := -3; cy <= 3; cy++ {
		for row := 1; row < ChunkSize; row++ {
			assert.Equal(t, GlobalY(cy, row-1)-1, GlobalY(cy, row), "Y убывает на 1 с каждой строкой")
		}
		// нижняя строка чанка cy+1 стыкуется с верхней строкой чанка cy
		assert.Equal(t, GlobalY(cy+1, ChunkSize-1)-1, GlobalY(cy, 0))
	}
}

func TestIndexRowMajor(t *testing.T) {
	assert.Equal(t, 0, Vec2{X: 0, Y: 0}.Index())
	assert.Equal(t, 5, Vec2{X: 5, Y: 0}.Index())
	assert.Equal(t, ChunkSize*3+2, Vec2{X: 2, Y: 3}.Index())
}

func TestChebyshevAndFloor(t *testing.T) {
	assert.Equal(t, 3, Vec2{X: 0, Y: 0}.ChebyshevTo(Vec2{X: -3, Y: 2}))
	assert.Equal(t, Vec2{X: -1, Y: 2}, Vec2Float{X: -0.5, Y: 2.9}.Floor())
}
