package world

import (
	"sort"
	"sync"
	"time"

	"github.com/annel0/dig-world/internal/metrics"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// Параметры осыпания по умолчанию
const (
	DefaultGravityPeriod = 50 * time.Millisecond
	DefaultMaxScan       = 2 * vec.ChunkSize
	MaxCatchUpSteps      = 4 // шагов за один вызов Tick, чтобы не уйти в догонялки
)

// GravityEngine — дискретное осыпание рыхлого материала.
// Каждый шаг обрабатывает текущее множество «грязных» клеток и строит новое.
type GravityEngine struct {
	store   *ChunkStore
	metrics *metrics.WorldMetrics

	mu      sync.Mutex
	dirty   map[vec.Vec2]struct{}
	money   float64
	maxScan int
	period  time.Duration
	acc     time.Duration
	steps   uint64
}

// NewGravityEngine создаёт движок. maxScan ограничивает подъём по колонне в обоих циклах.
func NewGravityEngine(store *ChunkStore, period time.Duration, maxScan int) *GravityEngine {
	if period <= 0 {
		period = DefaultGravityPeriod
	}
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}
	return &GravityEngine{
		store:   store,
		dirty:   make(map[vec.Vec2]struct{}),
		maxScan: maxScan,
		period:  period,
	}
}

// SetMetrics подключает метрики
func (g *GravityEngine) SetMetrics(m *metrics.WorldMetrics) { g.metrics = m }

// MarkDirty ставит клетку в очередь на следующий шаг. Чанк генерируется заранее.
func (g *GravityEngine) MarkDirty(pos vec.Vec2) {
	g.store.GetOrGenerate(pos.ToChunkCoords())

	g.mu.Lock()
	g.dirty[pos] = struct{}{}
	g.mu.Unlock()
}

// IsDirty сообщает, ждёт ли клетка обработки
func (g *GravityEngine) IsDirty(pos vec.Vec2) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.dirty[pos]
	return ok
}

// DirtyCount возвращает размер текущего множества
func (g *GravityEngine) DirtyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.dirty)
}

// Money возвращает текущий баланс
func (g *GravityEngine) Money() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.money
}

// Steps возвращает число выполненных шагов
func (g *GravityEngine) Steps() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.steps
}

// PinnedChunks возвращает чанки, в которых есть грязные клетки (их нельзя выгружать)
func (g *GravityEngine) PinnedChunks() map[vec.Vec2]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	pinned := make(map[vec.Vec2]struct{}, len(g.dirty))
	for pos := range g.dirty {
		pinned[pos.ToChunkCoords()] = struct{}{}
	}
	return pinned
}

// Tick накапливает dt и выполняет по одному шагу на каждый истёкший период
func (g *GravityEngine) Tick(dt time.Duration) int {
	g.mu.Lock()
	g.acc += dt
	steps := 0
	for g.acc >= g.period && steps < MaxCatchUpSteps {
		g.acc -= g.period
		steps++
	}
	if steps == MaxCatchUpSteps && g.acc >= g.period {
		// отставание сбрасываем, иначе оно будет копиться бесконечно
		g.acc = 0
	}
	g.mu.Unlock()

	for i := 0; i < steps; i++ {
		g.Step()
	}
	return steps
}

// Step выполняет один шаг осыпания
func (g *GravityEngine) Step() {
	start := time.Now()

	g.mu.Lock()
	current := g.dirty
	g.dirty = make(map[vec.Vec2]struct{})
	g.mu.Unlock()

	// снизу вверх, чтобы результат не зависел от порядка обхода карты
	order := make([]vec.Vec2, 0, len(current))
	for pos := range current {
		order = append(order, pos)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Y != order[j].Y {
			return order[i].Y < order[j].Y
		}
		return order[i].X < order[j].X
	})

	next := make(map[vec.Vec2]struct{})
	earned := 0.0
	for _, pos := range order {
		if !material.IsGravityAffected(g.store.Cell(pos)) {
			continue
		}

		below := pos.Down()
		switch g.store.Cell(below) {
		case material.Void:
			if rest, cut := g.fall(pos); cut {
				next[rest] = struct{}{}
			}
			next[below] = struct{}{}
		case material.SellBox:
			money, rest, cut := g.vacuum(pos)
			earned += money
			if cut {
				next[rest] = struct{}{}
			}
		}
	}

	g.mu.Lock()
	// клетки, отмеченные во время шага, тоже идут в следующее множество
	for pos := range g.dirty {
		next[pos] = struct{}{}
	}
	g.dirty = next
	g.money += earned
	g.steps++
	dirty, money := len(g.dirty), g.money
	g.mu.Unlock()

	g.metrics.GravityStep(time.Since(start), dirty, money)
}

// fall сдвигает колонну над pos на одну клетку вниз.
// Подъём останавливается на пустоте, переработанной меди, камне или свете.
// Если колонна длиннее maxScan, возвращается первая несдвинутая клетка (cut=true).
func (g *GravityEngine) fall(pos vec.Vec2) (rest vec.Vec2, cut bool) {
	look := pos.Down()
	for i := 0; i < g.maxScan; i++ {
		above := look.Up()
		id := g.store.Cell(above)
		if material.StopsDrag(id) {
			return above, false
		}
		g.store.SetCell(look, id)
		g.store.SetCell(above, material.Void)
		look = above
	}
	return look.Up(), true
}

// vacuum втягивает колонну над приёмником продажи и возвращает выручку.
// Втягивание идёт до пустоты или переработанной меди; при исчерпании maxScan
// возвращается первая оставшаяся клетка (cut=true).
func (g *GravityEngine) vacuum(pos vec.Vec2) (earned float64, rest vec.Vec2, cut bool) {
	look := pos
	for i := 0; i < g.maxScan; i++ {
		id := g.store.Cell(look)
		if material.StopsVacuum(id) {
			return earned, look, false
		}
		earned += material.Price(id)
		g.store.SetCell(look, material.Void)
		look = look.Up()
	}
	return earned, look, true
}
