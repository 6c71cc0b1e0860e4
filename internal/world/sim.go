package world

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/metrics"
	"github.com/annel0/dig-world/internal/physics"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// Options — параметры мира
type Options struct {
	Generator     GeneratorConfig
	Ores          []OreSpec
	GravityPeriod time.Duration
	MaxScan       int
	EvictRadius   int           // радиус хранения чанков вокруг активного центра; 0 — не выгружать
	EvictEvery    time.Duration // как часто проверять выгрузку в Run
	Backend       ChunkBackend
	Metrics       *metrics.WorldMetrics
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions(seed int64) Options {
	return Options{
		Generator:     DefaultGeneratorConfig(seed),
		Ores:          DefaultOreSpecs(),
		GravityPeriod: DefaultGravityPeriod,
		MaxScan:       DefaultMaxScan,
		EvictEvery:    10 * time.Second,
	}
}

// Stats — снимок состояния мира
type Stats struct {
	LoadedChunks int     `json:"loaded_chunks"`
	DirtyCells   int     `json:"dirty_cells"`
	Money        float64 `json:"money"`
	GravitySteps uint64  `json:"gravity_steps"`
}

// World управляет миром: хранилище чанков, осыпание и инструменты.
// Все изменения сериализуются через mu (один писатель).
type World struct {
	mu sync.Mutex

	opts      Options
	generator *WorldGenerator
	store     *ChunkStore
	gravity   *GravityEngine
	metrics   *metrics.WorldMetrics
	logger    *logging.Logger
	rng       *rand.Rand

	centerMu     sync.RWMutex
	activeCenter vec.Vec2 // координаты чанка, вокруг которого держим мир в памяти
}

// NewWorld создаёт мир с указанными параметрами
func NewWorld(opts Options) *World {
	generator := NewWorldGenerator(opts.Generator)
	store := NewChunkStore(generator, NewOreSeeder(opts.Generator.Seed, opts.Ores))
	store.SetMetrics(opts.Metrics)
	if opts.Backend != nil {
		store.SetBackend(opts.Backend)
	}

	gravity := NewGravityEngine(store, opts.GravityPeriod, opts.MaxScan)
	gravity.SetMetrics(opts.Metrics)

	return &World{
		opts:      opts,
		generator: generator,
		store:     store,
		gravity:   gravity,
		metrics:   opts.Metrics,
		logger:    logging.GetWorldLogger(),
		rng:       rand.New(rand.NewSource(opts.Generator.Seed ^ 0x5eed)),
	}
}

// Store возвращает хранилище чанков
func (w *World) Store() *ChunkStore { return w.store }

// Gravity возвращает движок осыпания
func (w *World) Gravity() *GravityEngine { return w.gravity }

// Generator возвращает генератор
func (w *World) Generator() *WorldGenerator { return w.generator }

// GetOrGenerateChunk возвращает полностью засеянный чанк
func (w *World) GetOrGenerateChunk(coords vec.Vec2) *Chunk {
	return w.store.GetOrGenerate(coords)
}

// GetChunkMut возвращает чанк для изменения (генерирует отсутствующий)
func (w *World) GetChunkMut(coords vec.Vec2) *Chunk {
	return w.store.GetMut(coords)
}

// CellAt возвращает материал клетки
func (w *World) CellAt(pos vec.Vec2) material.ID {
	return w.store.Cell(pos)
}

// SetCell записывает материал и ставит клетку в очередь осыпания
func (w *World) SetCell(pos vec.Vec2, id material.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.SetCell(pos, id)
	w.gravity.MarkDirty(pos)
	w.gravity.MarkDirty(pos.Up())
}

// SurfaceAt возвращает высоту поверхности колонки (для размещения спавна)
func (w *World) SurfaceAt(gx int) int {
	return w.generator.SurfaceAt(gx)
}

// checkCell проверяет код клетки на принадлежность перечислению
func (w *World) checkCell(pos vec.Vec2, id material.ID) error {
	if material.IsValid(id) {
		return nil
	}
	w.metrics.CorruptCell()
	w.logger.Error("Недопустимый материал %d в клетке (%d,%d)", uint8(id), pos.X, pos.Y)
	return &CorruptCellError{Pos: pos, Code: id}
}

// Dig выкапывает материал в области в инвентарь. Останавливается, когда инвентарь полон.
// Колонны над выкопанными клетками ставятся в очередь осыпания.
func (w *World) Dig(pos vec.Vec2, shape Shape, inv *Inventory) ([]material.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := make([]material.ID, 0)
	dug := make([]vec.Vec2, 0)
	var digErr error
	for _, cell := range shape.Cells(pos) {
		if inv.Full() {
			break
		}
		id := w.store.Cell(cell)
		if err := w.checkCell(cell, id); err != nil {
			digErr = err
			break
		}
		if !material.IsShovelable(id) {
			continue
		}
		inv.Push(id)
		w.store.SetCell(cell, material.Void)
		removed = append(removed, id)
		dug = append(dug, cell)
	}

	for _, cell := range dug {
		w.markColumnAbove(cell)
	}
	w.metrics.ToolCells("dig", len(removed))
	return removed, digErr
}

// markColumnAbove ищет над клеткой первую непустую и ставит её в очередь
func (w *World) markColumnAbove(pos vec.Vec2) {
	look := pos.Up()
	for i := 0; i < w.gravity.maxScan; i++ {
		if w.store.Cell(look) != material.Void {
			w.gravity.MarkDirty(look)
			return
		}
		look = look.Up()
	}
}

// Excavate (кирка) превращает камень в области в случайный гравий. Инвентарь не заполняется.
func (w *World) Excavate(pos vec.Vec2, shape Shape) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	crushed := 0
	var err error
	for _, cell := range shape.Cells(pos) {
		id := w.store.Cell(cell)
		if err = w.checkCell(cell, id); err != nil {
			break
		}
		if !material.IsRock(id) {
			continue
		}
		w.store.SetCell(cell, RandomGravel(w.rng))
		w.gravity.MarkDirty(cell)
		crushed++
	}
	w.metrics.ToolCells("excavate", crushed)
	return crushed, err
}

// Place выкладывает материал из инвентаря в пустые клетки области.
// Клетки обходятся в порядке, обратном Dig, поэтому выкопанное
// и выложенное на том же месте возвращается в исходные клетки.
func (w *World) Place(pos vec.Vec2, shape Shape, inv *Inventory) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cells := shape.Cells(pos)
	placed := 0
	for i := len(cells) - 1; i >= 0 && !inv.Empty(); i-- {
		cell := cells[i]
		if !material.IsOpen(w.store.Cell(cell)) {
			continue
		}
		id, _ := inv.Pop()
		w.store.SetCell(cell, id)
		w.gravity.MarkDirty(cell)
		placed++
	}
	w.metrics.ToolCells("place", placed)
	return placed
}

// UseTool применяет инструмент: primary — основное действие, иначе выкладка
func (w *World) UseTool(tool *Tool, pos vec.Vec2, primary bool) (ToolResult, error) {
	var (
		res ToolResult
		err error
	)
	switch {
	case !primary:
		res.Placed = w.Place(pos, tool.Shape, tool.Inventory)
	case tool.Kind == ToolPickaxe:
		res.Crushed, err = w.Excavate(pos, tool.Shape)
	case tool.Kind == ToolShovel:
		res.Removed, err = w.Dig(pos, tool.Shape, tool.Inventory)
	default:
		err = fmt.Errorf("неизвестный инструмент %v", tool.Kind)
	}
	res.Inventory = tool.Inventory.Len()
	return res, err
}

// TickGravity продвигает осыпание на dt, выполняя шаги фиксированного периода
func (w *World) TickGravity(dt time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.gravity.Tick(dt)
}

// StepGravity выполняет один шаг осыпания немедленно
func (w *World) StepGravity() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gravity.Step()
}

// CurrentMoney возвращает баланс (только для чтения)
func (w *World) CurrentMoney() float64 {
	return w.gravity.Money()
}

// IsSolidRegion проверяет, есть ли твёрдый материал в области [x, x+width) x [y, y+height)
func (w *World) IsSolidRegion(pos vec.Vec2, width, height int) bool {
	return physics.AnySolid(pos, width, height, func(p vec.Vec2) bool {
		return material.IsSolid(w.store.Cell(p))
	})
}

// CanEntityMoveTo проверяет, помещается ли коллайдер сущности в позицию
func (w *World) CanEntityMoveTo(pos vec.Vec2Float, collider physics.BoxCollider) bool {
	return physics.CanMoveToPosition(pos, collider, func(p vec.Vec2) bool {
		return material.IsSolid(w.store.Cell(p))
	})
}

// SetActiveCenter задаёт чанк, вокруг которого мир держится в памяти
func (w *World) SetActiveCenter(chunk vec.Vec2) {
	w.centerMu.Lock()
	w.activeCenter = chunk
	w.centerMu.Unlock()
}

// ActiveCenter возвращает текущий активный чанк
func (w *World) ActiveCenter() vec.Vec2 {
	w.centerMu.RLock()
	defer w.centerMu.RUnlock()

	return w.activeCenter
}

// Evict выгружает чанки вне радиуса EvictRadius. Чанки с грязными клетками не трогаются.
func (w *World) Evict() (int, error) {
	if w.opts.EvictRadius <= 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	pinned := w.gravity.PinnedChunks()
	return w.store.EvictOutside(w.ActiveCenter(), w.opts.EvictRadius, func(c vec.Vec2) bool {
		_, ok := pinned[c]
		return ok
	})
}

// Flush сохраняет все изменённые чанки
func (w *World) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	saved, err := w.store.Flush()
	if saved > 0 {
		w.logger.Info("Сохранено чанков: %d", saved)
	}
	return err
}

// Stats возвращает снимок состояния
func (w *World) Stats() Stats {
	return Stats{
		LoadedChunks: w.store.Len(),
		DirtyCells:   w.gravity.DirtyCount(),
		Money:        w.gravity.Money(),
		GravitySteps: w.gravity.Steps(),
	}
}

// Run крутит осыпание с фиксированным периодом и периодически выгружает далёкие чанки.
// Возвращается после отмены ctx, предварительно сохранив изменённые чанки.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.gravity.period)
	defer ticker.Stop()

	evictEvery := w.opts.EvictEvery
	if evictEvery <= 0 {
		evictEvery = 10 * time.Second
	}
	evictTicker := time.NewTicker(evictEvery)
	defer evictTicker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return w.Flush()
		case now := <-ticker.C:
			w.TickGravity(now.Sub(last))
			last = now
		case <-evictTicker.C:
			if _, err := w.Evict(); err != nil {
				w.logger.Error("Ошибка выгрузки чанков: %v", err)
			}
		}
	}
}
