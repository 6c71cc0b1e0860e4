package world

import (
	"math"
	"math/rand"

	"github.com/annel0/dig-world/internal/util"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// GeneratorConfig задаёт форму рельефа. Все высоты — в глобальных клетках.
type GeneratorConfig struct {
	Seed int64 // Сид для генерации шума

	SurfaceLevel float64 // Средняя высота поверхности
	TopOffset    float64 // Смещение верхней границы травы
	GrassDepth   float64 // Толщина слоя травы
	GrassJitter  float64 // Сдвиг выборки шума для нижней границы травы
	DirtDepth    float64 // Глубина земли под поверхностью
	RockFloor    float64 // Средняя высота начала камня

	DirtSmoothness float64
	DirtAmplitude  float64
	RockSmoothness float64
	RockAmplitude  float64
}

// DefaultGeneratorConfig возвращает настройки по умолчанию
func DefaultGeneratorConfig(seed int64) GeneratorConfig {
	return GeneratorConfig{
		Seed:           seed,
		SurfaceLevel:   0,
		TopOffset:      0,
		GrassDepth:     2,
		GrassJitter:    0.5,
		DirtDepth:      12,
		RockFloor:      -40,
		DirtSmoothness: 48,
		DirtAmplitude:  10,
		RockSmoothness: 24,
		RockAmplitude:  6,
	}
}

// ColumnProfile — четыре порога одной колонки. Рельеф зависит только от X,
// поэтому получаются плавные холмы, а не пещеры.
type ColumnProfile struct {
	GrassTop     float64
	GrassBottom  float64
	DirtBoundary float64
	RockBoundary float64
}

// Таблицы вариантов текстур
var (
	grassTable = util.NewWeightedTable(
		util.Weighted[material.ID]{Value: material.Grass1, Weight: 0.6},
		util.Weighted[material.ID]{Value: material.Grass2, Weight: 0.3},
		util.Weighted[material.ID]{Value: material.Grass3, Weight: 0.1},
	)
	dirtTable = util.NewWeightedTable(
		util.Weighted[material.ID]{Value: material.Dirt1, Weight: 3},
		util.Weighted[material.ID]{Value: material.Dirt2, Weight: 2},
		util.Weighted[material.ID]{Value: material.Dirt3, Weight: 1},
	)
	transitionTable = util.NewWeightedTable(
		util.Weighted[material.ID]{Value: material.Dirt1, Weight: 1},
		util.Weighted[material.ID]{Value: material.Dirt2, Weight: 2},
		util.Weighted[material.ID]{Value: material.Dirt3, Weight: 3},
	)
	gravelTable = util.NewWeightedTable(
		util.Weighted[material.ID]{Value: material.Gravel1, Weight: 1},
		util.Weighted[material.ID]{Value: material.Gravel2, Weight: 1},
		util.Weighted[material.ID]{Value: material.Gravel3, Weight: 1},
	)
)

// WorldGenerator генерирует ландшафт мира
type WorldGenerator struct {
	cfg  GeneratorConfig
	dirt *util.NoiseChannel // граница земли/поверхности
	rock *util.NoiseChannel // граница камня
}

// NewWorldGenerator создаёт новый генератор мира. Каналы шума независимы.
func NewWorldGenerator(cfg GeneratorConfig) *WorldGenerator {
	return &WorldGenerator{
		cfg:  cfg,
		dirt: util.NewNoiseChannel(cfg.Seed, cfg.DirtSmoothness, cfg.DirtAmplitude),
		rock: util.NewNoiseChannel(cfg.Seed+1, cfg.RockSmoothness, cfg.RockAmplitude),
	}
}

// Config возвращает настройки генератора
func (wg *WorldGenerator) Config() GeneratorConfig { return wg.cfg }

// Profile вычисляет пороги колонки с глобальным X
func (wg *WorldGenerator) Profile(gx int) ColumnProfile {
	x := float64(gx)
	top := wg.cfg.SurfaceLevel + wg.dirt.Sample(x)
	return ColumnProfile{
		GrassTop:     top,
		GrassBottom:  wg.cfg.SurfaceLevel + wg.dirt.Sample(x+wg.cfg.GrassJitter),
		DirtBoundary: top - wg.cfg.DirtDepth,
		RockBoundary: wg.cfg.RockFloor + wg.rock.Sample(x),
	}
}

// Classify выбирает материал клетки. Пороги проверяются строго по порядку,
// первая подходящая ветка выигрывает, поэтому перекрытий не бывает.
func (wg *WorldGenerator) Classify(gy int, p ColumnProfile, rng *rand.Rand) material.ID {
	y := float64(gy)
	switch {
	case y > p.GrassTop+wg.cfg.TopOffset:
		return material.Void
	case y > p.GrassBottom-wg.cfg.GrassDepth:
		return grassTable.Pick(rng)
	case y > p.DirtBoundary:
		return dirtTable.Pick(rng)
	case y > p.RockBoundary:
		return transitionTable.Pick(rng)
	default:
		return material.Rock
	}
}

// SurfaceAt возвращает глобальный Y самой верхней непустой клетки колонки
func (wg *WorldGenerator) SurfaceAt(gx int) int {
	p := wg.Profile(gx)
	return int(math.Floor(p.GrassTop + wg.cfg.TopOffset))
}

// GenerateChunk генерирует чанк по его координатам (без руды)
func (wg *WorldGenerator) GenerateChunk(coords vec.Vec2) *Chunk {
	chunk := NewChunk(coords)
	rng := rand.New(rand.NewSource(chunkSeed(wg.cfg.Seed, coords, 0)))

	for col := 0; col < vec.ChunkSize; col++ {
		profile := wg.Profile(vec.GlobalX(coords.X, col))
		// идём сверху вниз: строка 0 — самая высокая клетка чанка
		for row := 0; row < vec.ChunkSize; row++ {
			gy := vec.GlobalY(coords.Y, row)
			chunk.Cells[vec.Vec2{X: col, Y: row}.Index()] = wg.Classify(gy, profile, rng)
		}
	}

	chunk.RecomputeSurface()
	return chunk
}

// chunkSeed выводит сид чанка из глобального сида, координат и соли
func chunkSeed(seed int64, coords vec.Vec2, salt int64) int64 {
	h := uint64(seed) ^ 0x9E3779B97F4A7C15
	h ^= uint64(int64(coords.X)) * 0xBF58476D1CE4E5B9
	h = (h ^ (h >> 31)) * 0x94D049BB133111EB
	h ^= uint64(int64(coords.Y)) * 0xD6E8FEB86659FD93
	h ^= uint64(salt) * 0x2545F4914F6CDD1D
	h ^= h >> 29
	return int64(h)
}

// RandomGravel выбирает вариант гравия
func RandomGravel(rng *rand.Rand) material.ID {
	return gravelTable.Pick(rng)
}
