package world

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// memoryBackend — ChunkBackend в памяти для тестов выгрузки
type memoryBackend struct {
	mu      sync.Mutex
	chunks  map[vec.Vec2][CellCount]material.ID
	saves   int
	loads   int
	failing bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{chunks: make(map[vec.Vec2][CellCount]material.ID)}
}

func (b *memoryBackend) LoadChunk(coords vec.Vec2) (*Chunk, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cells, ok := b.chunks[coords]
	if !ok {
		return nil, false, nil
	}
	b.loads++
	chunk := NewChunk(coords)
	chunk.Cells = cells
	chunk.RecomputeSurface()
	return chunk, true, nil
}

func (b *memoryBackend) SaveChunk(chunk *Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failing {
		return errors.New("диск недоступен")
	}
	b.saves++
	b.chunks[chunk.Coords] = chunk.Snapshot()
	return nil
}

func newTestStore(seed int64) *ChunkStore {
	return NewChunkStore(NewWorldGenerator(DefaultGeneratorConfig(seed)), NewOreSeeder(seed, DefaultOreSpecs()))
}

func TestGetOrGenerateIsAtomic(t *testing.T) {
	store := newTestStore(21)
	coords := vec.Vec2{X: 4, Y: -20}

	const workers = 32
	results := make([]*Chunk, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.GetOrGenerate(coords)
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		require.Same(t, results[0], c)
	}
	assert.Equal(t, 1, store.Len())

	// никто не видит чанк без руды: содержимое совпадает с засеянным эталоном
	ref := NewWorldGenerator(DefaultGeneratorConfig(21)).GenerateChunk(coords)
	NewOreSeeder(21, DefaultOreSpecs()).Seed(ref)
	assert.Equal(t, ref.Cells, results[0].Snapshot())
	assert.Greater(t, countCells(results[0], material.Copper, material.Silver), 0)
}

func TestGetOrGenerateDifferentChunksInParallel(t *testing.T) {
	store := newTestStore(22)

	var wg sync.WaitGroup
	for x := -4; x < 4; x++ {
		for y := -4; y < 4; y++ {
			wg.Add(1)
			go func(c vec.Vec2) {
				defer wg.Done()
				store.GetOrGenerate(c)
			}(vec.Vec2{X: x, Y: y})
		}
	}
	wg.Wait()

	coords := store.Coords()
	require.Len(t, coords, 64)
	assert.Equal(t, vec.Vec2{X: -4, Y: -4}, coords[0])
	assert.Equal(t, vec.Vec2{X: 3, Y: 3}, coords[len(coords)-1])
}

func TestCellAccessGeneratesChunk(t *testing.T) {
	store := newTestStore(23)
	pos := vec.Vec2{X: -70, Y: 900}

	_, exists := store.Get(pos.ToChunkCoords())
	require.False(t, exists)

	assert.Equal(t, material.Void, store.Cell(pos))
	store.SetCell(pos, material.Light)
	assert.Equal(t, material.Light, store.Cell(pos))

	chunk, exists := store.Get(pos.ToChunkCoords())
	require.True(t, exists)
	assert.True(t, chunk.HasChanges())
}

func TestEvictOutside(t *testing.T) {
	store := newTestStore(24)
	backend := newMemoryBackend()
	store.SetBackend(backend)

	near := vec.Vec2{X: 0, Y: 0}
	farClean := vec.Vec2{X: 5, Y: 0}
	farDirty := vec.Vec2{X: -5, Y: 3}
	pinned := vec.Vec2{X: 0, Y: 9}
	for _, c := range []vec.Vec2{near, farClean, farDirty, pinned} {
		store.GetOrGenerate(c)
	}
	store.SetCell(vec.FromChunkLocal(farDirty, vec.Vec2{X: 1, Y: 1}), material.SellBox)

	evicted, err := store.EvictOutside(near, 2, func(c vec.Vec2) bool { return c == pinned })
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, backend.saves, "сохраняется только изменённый чанк")

	_, ok := store.Get(near)
	assert.True(t, ok)
	_, ok = store.Get(pinned)
	assert.True(t, ok, "закреплённый чанк не выгружается")
	_, ok = store.Get(farDirty)
	assert.False(t, ok)

	// изменённый чанк возвращается из хранилища, а не генерируется заново
	assert.Equal(t, material.SellBox, store.Cell(vec.FromChunkLocal(farDirty, vec.Vec2{X: 1, Y: 1})))
	assert.Equal(t, 1, backend.loads)
}

func TestEvictKeepsModifiedChunksWithoutBackend(t *testing.T) {
	store := newTestStore(25)
	far := vec.Vec2{X: 10, Y: 10}
	store.SetCell(vec.FromChunkLocal(far, vec.Vec2{}), material.Rock)
	store.GetOrGenerate(vec.Vec2{X: -10, Y: 10})

	evicted, err := store.EvictOutside(vec.Vec2{}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	_, ok := store.Get(far)
	assert.True(t, ok, "без хранилища изменения нельзя терять")
}

func TestEvictReportsSaveErrors(t *testing.T) {
	store := newTestStore(26)
	backend := newMemoryBackend()
	backend.failing = true
	store.SetBackend(backend)

	far := vec.Vec2{X: 8, Y: 0}
	store.SetCell(vec.FromChunkLocal(far, vec.Vec2{}), material.Rock)

	evicted, err := store.EvictOutside(vec.Vec2{}, 1, nil)
	assert.Error(t, err)
	assert.Zero(t, evicted)
	_, ok := store.Get(far)
	assert.True(t, ok)
}

func TestFlushSavesModifiedChunks(t *testing.T) {
	store := newTestStore(27)
	backend := newMemoryBackend()
	store.SetBackend(backend)

	store.GetOrGenerate(vec.Vec2{X: 1, Y: 1})
	store.SetCell(vec.Vec2{X: 0, Y: 0}, material.SellBox)
	store.SetCell(vec.Vec2{X: 100, Y: 0}, material.SellBox)

	saved, err := store.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	saved, err = store.Flush()
	require.NoError(t, err)
	assert.Zero(t, saved, "после сохранения изменений не осталось")
}
