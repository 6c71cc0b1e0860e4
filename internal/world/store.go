package world

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/metrics"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// ChunkBackend — внешнее хранилище для выгруженных чанков
type ChunkBackend interface {
	// LoadChunk возвращает сохранённый чанк; found=false, если чанк не сохранялся
	LoadChunk(coords vec.Vec2) (chunk *Chunk, found bool, err error)
	// SaveChunk сохраняет чанк целиком
	SaveChunk(chunk *Chunk) error
}

// ChunkStore — разреженная карта чанков, заполняемая лениво.
// Генерация и засев рудой выполняются одним шагом до публикации чанка.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[vec.Vec2]*Chunk
	group  singleflight.Group

	generator *WorldGenerator
	seeder    *OreSeeder
	backend   ChunkBackend
	metrics   *metrics.WorldMetrics
	logger    *logging.Logger
}

// NewChunkStore создаёт хранилище чанков
func NewChunkStore(generator *WorldGenerator, seeder *OreSeeder) *ChunkStore {
	return &ChunkStore{
		chunks:    make(map[vec.Vec2]*Chunk),
		generator: generator,
		seeder:    seeder,
		logger:    logging.GetWorldLogger(),
	}
}

// SetBackend подключает хранилище для выгрузки изменённых чанков
func (s *ChunkStore) SetBackend(backend ChunkBackend) { s.backend = backend }

// SetMetrics подключает метрики
func (s *ChunkStore) SetMetrics(m *metrics.WorldMetrics) { s.metrics = m }

// Get возвращает чанк без генерации
func (s *ChunkStore) Get(coords vec.Vec2) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, exists := s.chunks[coords]
	return chunk, exists
}

// GetOrGenerate возвращает существующий чанк или материализует его.
// Параллельные промахи по одному чанку генерируют его ровно один раз,
// разные чанки генерируются независимо.
func (s *ChunkStore) GetOrGenerate(coords vec.Vec2) *Chunk {
	if chunk, exists := s.Get(coords); exists {
		return chunk
	}

	key := fmt.Sprintf("%d:%d", coords.X, coords.Y)
	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		// Проверяем еще раз: чанк мог появиться, пока мы ждали
		if chunk, exists := s.Get(coords); exists {
			return chunk, nil
		}

		chunk := s.materialize(coords)

		s.mu.Lock()
		if existing, exists := s.chunks[coords]; exists {
			chunk = existing
		} else {
			s.chunks[coords] = chunk
		}
		resident := len(s.chunks)
		s.mu.Unlock()

		s.metrics.SetResident(resident)
		return chunk, nil
	})
	return v.(*Chunk)
}

// GetMut возвращает чанк для изменения. Отсутствующий чанк генерируется,
// так что вызывающему не нужно заранее прогревать хранилище.
func (s *ChunkStore) GetMut(coords vec.Vec2) *Chunk {
	return s.GetOrGenerate(coords)
}

// materialize загружает чанк из хранилища или генерирует и засевает новый
func (s *ChunkStore) materialize(coords vec.Vec2) *Chunk {
	if s.backend != nil {
		chunk, found, err := s.backend.LoadChunk(coords)
		switch {
		case err != nil:
			s.logger.Error("Ошибка загрузки чанка (%d,%d), генерируем заново: %v", coords.X, coords.Y, err)
		case found:
			s.metrics.ChunkLoaded()
			return chunk
		}
	}

	start := time.Now()
	chunk := s.generator.GenerateChunk(coords)
	ore := 0
	if s.seeder != nil {
		ore = s.seeder.Seed(chunk)
	}
	s.metrics.ChunkGenerated(ore)
	logging.LogChunkGenerated(s.logger, coords.X, coords.Y, ore, time.Since(start))
	return chunk
}

// Len возвращает количество чанков в памяти
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks)
}

// Coords возвращает отсортированные координаты загруженных чанков
func (s *ChunkStore) Coords() []vec.Vec2 {
	s.mu.RLock()
	coords := make([]vec.Vec2, 0, len(s.chunks))
	for c := range s.chunks {
		coords = append(coords, c)
	}
	s.mu.RUnlock()

	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// EvictOutside выгружает чанки дальше radius (по Чебышёву, в чанках) от center.
// Изменённые чанки сначала сохраняются; без хранилища они остаются в памяти.
// Неизменённые чанки просто удаляются: генерация детерминирована по координатам.
func (s *ChunkStore) EvictOutside(center vec.Vec2, radius int, pinned func(vec.Vec2) bool) (int, error) {
	s.mu.RLock()
	candidates := make([]*Chunk, 0)
	for coords, chunk := range s.chunks {
		if coords.ChebyshevTo(center) <= radius {
			continue
		}
		if pinned != nil && pinned(coords) {
			continue
		}
		candidates = append(candidates, chunk)
	}
	s.mu.RUnlock()

	evicted := make([]vec.Vec2, 0, len(candidates))
	var firstErr error
	for _, chunk := range candidates {
		if chunk.HasChanges() {
			if s.backend == nil {
				continue
			}
			if err := s.backend.SaveChunk(chunk); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("сохранение %s: %w", chunk, err)
				}
				continue
			}
			chunk.ClearChanges()
		}
		evicted = append(evicted, chunk.Coords)
	}

	s.mu.Lock()
	for _, coords := range evicted {
		delete(s.chunks, coords)
	}
	resident := len(s.chunks)
	s.mu.Unlock()

	s.metrics.ChunksEvicted(len(evicted))
	s.metrics.SetResident(resident)
	if len(evicted) > 0 {
		s.logger.Info("Выгружено чанков: %d, в памяти: %d", len(evicted), resident)
	}
	return len(evicted), firstErr
}

// Flush сохраняет все изменённые чанки в хранилище
func (s *ChunkStore) Flush() (int, error) {
	if s.backend == nil {
		return 0, nil
	}

	s.mu.RLock()
	dirty := make([]*Chunk, 0)
	for _, chunk := range s.chunks {
		if chunk.HasChanges() {
			dirty = append(dirty, chunk)
		}
	}
	s.mu.RUnlock()

	saved := 0
	for _, chunk := range dirty {
		if err := s.backend.SaveChunk(chunk); err != nil {
			return saved, fmt.Errorf("сохранение %s: %w", chunk, err)
		}
		chunk.ClearChanges()
		saved++
	}
	return saved, nil
}

// Cell возвращает материал по глобальным координатам, генерируя чанк при необходимости
func (s *ChunkStore) Cell(pos vec.Vec2) material.ID {
	return s.GetOrGenerate(pos.ToChunkCoords()).GetBlock(pos.LocalInChunk())
}

// SetCell записывает материал по глобальным координатам
func (s *ChunkStore) SetCell(pos vec.Vec2, id material.ID) {
	s.GetMut(pos.ToChunkCoords()).SetBlock(pos.LocalInChunk(), id)
}
