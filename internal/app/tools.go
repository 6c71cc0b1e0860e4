package app

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/dig-world/internal/config"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world"
)

// ErrToolNotFound — инструмент с таким ID не выдавался
var ErrToolNotFound = errors.New("инструмент не найден")

type toolEntry struct {
	mu   sync.Mutex // инвентарь инструмента меняется только под этой блокировкой
	tool *world.Tool
}

// ToolRegistry выдаёт инструменты и применяет их к миру
type ToolRegistry struct {
	world *world.World
	cfg   config.ToolsConfig

	mu    sync.RWMutex
	tools map[string]*toolEntry
}

// ToolView — снимок инструмента для API
type ToolView struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Inventory int      `json:"inventory"`
	Capacity  int      `json:"capacity"`
	Top       string   `json:"top,omitempty"`
	Items     []string `json:"items"`
}

// NewToolRegistry создаёт пустой реестр
func NewToolRegistry(w *world.World, cfg config.ToolsConfig) *ToolRegistry {
	return &ToolRegistry{
		world: w,
		cfg:   cfg,
		tools: make(map[string]*toolEntry),
	}
}

// Create выдаёт новый инструмент указанного типа
func (r *ToolRegistry) Create(kind world.ToolKind) *world.Tool {
	var tool *world.Tool
	id := uuid.NewString()
	switch kind {
	case world.ToolPickaxe:
		shape := world.Rect{Width: r.cfg.PickaxeWidth, Height: r.cfg.PickaxeHeight}
		tool = world.NewTool(id, kind, shape, r.cfg.ShovelCapacity)
	default:
		tool = world.NewTool(id, world.ToolShovel, world.Disc{Radius: r.cfg.ShovelRadius}, r.cfg.ShovelCapacity)
	}

	r.mu.Lock()
	r.tools[id] = &toolEntry{tool: tool}
	r.mu.Unlock()
	return tool
}

func (r *ToolRegistry) entry(id string) (*toolEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	return e, nil
}

// View возвращает снимок инструмента
func (r *ToolRegistry) View(id string) (ToolView, error) {
	e, err := r.entry(id)
	if err != nil {
		return ToolView{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return viewOf(e.tool), nil
}

// Use применяет инструмент в позиции pos
func (r *ToolRegistry) Use(id string, pos vec.Vec2, primary bool) (world.ToolResult, error) {
	e, err := r.entry(id)
	if err != nil {
		return world.ToolResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return r.world.UseTool(e.tool, pos, primary)
}

// IDs возвращает отсортированные ID выданных инструментов
func (r *ToolRegistry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func viewOf(tool *world.Tool) ToolView {
	items := tool.Inventory.Items()
	names := make([]string, len(items))
	for i, id := range items {
		names[i] = id.String()
	}
	v := ToolView{
		ID:        tool.ID,
		Kind:      tool.Kind.String(),
		Inventory: tool.Inventory.Len(),
		Capacity:  tool.Inventory.Cap(),
		Items:     names,
	}
	if top, ok := tool.Inventory.Top(); ok {
		v.Top = top.String()
	}
	return v
}
