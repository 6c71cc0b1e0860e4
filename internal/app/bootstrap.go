package app

import (
	"fmt"
	"time"

	"github.com/annel0/dig-world/internal/config"
	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/metrics"
	"github.com/annel0/dig-world/internal/storage"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world"
	"github.com/annel0/dig-world/internal/world/material"
)

// App связывает конфигурацию, хранилище, метрики и мир в один процесс
type App struct {
	Config  *config.Config
	World   *world.World
	Storage *storage.WorldStorage // nil, если хранение отключено
	Metrics *metrics.WorldMetrics
	Tools   *ToolRegistry

	logger *logging.Logger
}

// BuildOptions переносит конфигурацию в параметры мира
func BuildOptions(cfg *config.Config, backend world.ChunkBackend, m *metrics.WorldMetrics) world.Options {
	opts := world.DefaultOptions(cfg.World.Seed)

	gen := &opts.Generator
	gen.SurfaceLevel = cfg.World.SurfaceLevel
	gen.TopOffset = cfg.World.TopOffset
	gen.GrassJitter = cfg.World.GrassJitter
	gen.GrassDepth = cfg.World.GrassDepth
	gen.DirtDepth = cfg.World.DirtDepth
	gen.RockFloor = cfg.World.RockFloor
	gen.DirtSmoothness = cfg.World.DirtSmoothness
	gen.DirtAmplitude = cfg.World.DirtAmplitude
	gen.RockSmoothness = cfg.World.RockSmoothness
	gen.RockAmplitude = cfg.World.RockAmplitude

	opts.GravityPeriod = cfg.Gravity.GravityPeriod()
	opts.MaxScan = cfg.Gravity.MaxScan
	opts.EvictRadius = cfg.World.EvictRadius
	opts.EvictEvery = time.Duration(cfg.World.EvictEvery) * time.Second
	opts.Metrics = m
	if backend != nil {
		opts.Backend = backend
	}
	return opts
}

// New открывает хранилище (если включено) и создаёт мир
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	a := &App{
		Config:  cfg,
		Metrics: metrics.NewWorldMetrics(),
		logger:  logging.GetWorldLogger(),
	}

	var backend world.ChunkBackend
	if cfg.Storage.Enabled {
		ws, err := storage.NewWorldStorage(cfg.Storage.DataPath)
		if err != nil {
			return nil, fmt.Errorf("открытие хранилища мира: %w", err)
		}
		a.Storage = ws
		backend = ws
		a.logger.Info("Хранилище чанков: %s", cfg.Storage.DataPath)
	}

	a.World = world.NewWorld(BuildOptions(cfg, backend, a.Metrics))
	a.Tools = NewToolRegistry(a.World, cfg.Tools)
	return a, nil
}

// PlaceSellBox ставит приёмник продажи на поверхность колонки gx
func (a *App) PlaceSellBox(gx int) vec.Vec2 {
	pos := vec.Vec2{X: gx, Y: a.World.SurfaceAt(gx)}
	a.World.SetCell(pos, material.SellBox)
	a.logger.Info("Приёмник продажи установлен в (%d,%d)", pos.X, pos.Y)
	return pos
}

// Close сохраняет изменённые чанки и закрывает хранилище
func (a *App) Close() error {
	flushErr := a.World.Flush()
	if a.Storage == nil {
		return flushErr
	}
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("закрытие хранилища: %w", err)
	}
	return flushErr
}
