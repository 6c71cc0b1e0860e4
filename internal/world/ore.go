package world

import (
	"math/rand"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// OreSpec описывает один тип рудных жил
type OreSpec struct {
	Ore       material.ID
	Rate      float64 // Среднее число зародышей на единицу глубины чанка
	MinDepth  int     // Минимальная глубина чанка (в чанках ниже поверхности)
	MinRadius int
	MaxRadius int
	Density   float64 // Вероятность превращения клетки грунта внутри эллипса
}

// MaxSeedsPerOre ограничивает число зародышей одного типа на чанк
const MaxSeedsPerOre = 64

// DefaultOreSpecs — медь встречается везде под поверхностью, серебро глубже и реже
func DefaultOreSpecs() []OreSpec {
	return []OreSpec{
		{Ore: material.Copper, Rate: 1.5, MinDepth: 1, MinRadius: 1, MaxRadius: 4, Density: 0.6},
		{Ore: material.Silver, Rate: 0.4, MinDepth: 3, MinRadius: 1, MaxRadius: 3, Density: 0.45},
	}
}

// OreSeeder выращивает рудные жилы в только что сгенерированном чанке
type OreSeeder struct {
	seed  int64
	specs []OreSpec
}

// NewOreSeeder создаёт сеялку руды
func NewOreSeeder(seed int64, specs []OreSpec) *OreSeeder {
	return &OreSeeder{seed: seed, specs: specs}
}

// SeedCount возвращает число зародышей для глубины. Чанки на поверхности и выше получают ноль.
func (s OreSpec) SeedCount(depth int, rng *rand.Rand) int {
	if depth <= 0 || depth < s.MinDepth {
		return 0
	}
	n := int(s.Rate * float64(depth) * (0.5 + rng.Float64()))
	if n > MaxSeedsPerOre {
		n = MaxSeedsPerOre
	}
	return n
}

// Seed засевает чанк рудой и возвращает число изменённых клеток.
// Вызывается до публикации чанка в хранилище.
func (seeder *OreSeeder) Seed(chunk *Chunk) int {
	depth := -chunk.Coords.Y
	if depth <= 0 {
		return 0
	}

	rng := rand.New(rand.NewSource(chunkSeed(seeder.seed, chunk.Coords, 1)))
	converted := 0
	for _, spec := range seeder.specs {
		seeds := spec.SeedCount(depth, rng)
		for i := 0; i < seeds; i++ {
			center := vec.Vec2{X: rng.Intn(vec.ChunkSize), Y: rng.Intn(vec.ChunkSize)}
			rx := spec.randomRadius(rng)
			ry := spec.randomRadius(rng)
			converted += growVein(chunk, center, rx, ry, spec, rng)
		}
	}
	return converted
}

func (s OreSpec) randomRadius(rng *rand.Rand) int {
	if s.MaxRadius <= s.MinRadius {
		return max(s.MinRadius, 1)
	}
	return s.MinRadius + rng.Intn(s.MaxRadius-s.MinRadius+1)
}

// growVein превращает грунт внутри эллипса в руду с вероятностью Density
func growVein(chunk *Chunk, center vec.Vec2, rx, ry int, spec OreSpec, rng *rand.Rand) int {
	rx = max(rx, 1)
	ry = max(ry, 1)
	converted := 0
	for dy := -ry; dy <= ry; dy++ {
		row := center.Y + dy
		if row < 0 || row >= vec.ChunkSize {
			continue
		}
		for dx := -rx; dx <= rx; dx++ {
			col := center.X + dx
			if col < 0 || col >= vec.ChunkSize {
				continue
			}
			fx := float64(dx) / float64(rx)
			fy := float64(dy) / float64(ry)
			if fx*fx+fy*fy > 1 {
				continue
			}
			idx := vec.Vec2{X: col, Y: row}.Index()
			if !material.IsGround(chunk.Cells[idx]) {
				continue
			}
			if rng.Float64() < spec.Density {
				chunk.Cells[idx] = spec.Ore
				converted++
			}
		}
	}
	return converted
}
