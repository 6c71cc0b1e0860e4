package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorldMetrics инкапсулирует Prometheus-метрики симуляции мира.
// Все методы безопасны для nil-получателя: мир без метрик просто не считает.
type WorldMetrics struct {
	registry *prometheus.Registry

	chunksGenerated prometheus.Counter
	chunksLoaded    prometheus.Counter
	chunksEvicted   prometheus.Counter
	chunksResident  prometheus.Gauge
	oreCells        prometheus.Counter

	gravitySteps    prometheus.Counter
	gravityDuration prometheus.Histogram
	dirtyCells      prometheus.Gauge
	money           prometheus.Gauge

	toolCells    *prometheus.CounterVec
	corruptCells prometheus.Counter
}

// NewWorldMetrics создаёт метрики в собственном регистре
func NewWorldMetrics() *WorldMetrics {
	m := &WorldMetrics{
		registry: prometheus.NewRegistry(),
		chunksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_generated_total",
			Help:      "Число сгенерированных чанков.",
		}),
		chunksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_loaded_total",
			Help:      "Число чанков, загруженных из хранилища.",
		}),
		chunksEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_evicted_total",
			Help:      "Число чанков, выгруженных из памяти.",
		}),
		chunksResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "chunks_resident",
			Help:      "Количество чанков в памяти.",
		}),
		oreCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "ore_cells_seeded_total",
			Help:      "Клеток руды, выращенных при генерации.",
		}),
		gravitySteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gravity",
			Name:      "steps_total",
			Help:      "Число выполненных шагов осыпания.",
		}),
		gravityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gravity",
			Name:      "step_duration_seconds",
			Help:      "Длительность шага осыпания.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		dirtyCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gravity",
			Name:      "dirty_cells",
			Help:      "Размер множества клеток на следующий шаг.",
		}),
		money: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "economy",
			Name:      "money",
			Help:      "Текущий баланс.",
		}),
		toolCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tools",
			Name:      "cells_total",
			Help:      "Клеток, изменённых инструментами.",
		}, []string{"op"}),
		corruptCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "corrupt_cells_total",
			Help:      "Обнаружено клеток с недопустимым кодом материала.",
		}),
	}

	m.registry.MustRegister(
		m.chunksGenerated, m.chunksLoaded, m.chunksEvicted, m.chunksResident, m.oreCells,
		m.gravitySteps, m.gravityDuration, m.dirtyCells, m.money,
		m.toolCells, m.corruptCells,
	)
	return m
}

// Registry возвращает регистр (для подключения к HTTP и тестов)
func (m *WorldMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler возвращает HTTP-обработчик /metrics для этого регистра
func (m *WorldMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorldMetrics) ChunkGenerated(oreCells int) {
	if m == nil {
		return
	}
	m.chunksGenerated.Inc()
	m.oreCells.Add(float64(oreCells))
}

func (m *WorldMetrics) ChunkLoaded() {
	if m == nil {
		return
	}
	m.chunksLoaded.Inc()
}

func (m *WorldMetrics) ChunksEvicted(n int) {
	if m == nil {
		return
	}
	m.chunksEvicted.Add(float64(n))
}

func (m *WorldMetrics) SetResident(n int) {
	if m == nil {
		return
	}
	m.chunksResident.Set(float64(n))
}

// GravityStep фиксирует шаг осыпания
func (m *WorldMetrics) GravityStep(took time.Duration, dirty int, money float64) {
	if m == nil {
		return
	}
	m.gravitySteps.Inc()
	m.gravityDuration.Observe(took.Seconds())
	m.dirtyCells.Set(float64(dirty))
	m.money.Set(money)
}

// ToolCells учитывает клетки, изменённые операцией op (dig/place/excavate)
func (m *WorldMetrics) ToolCells(op string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.toolCells.WithLabelValues(op).Add(float64(n))
}

func (m *WorldMetrics) CorruptCell() {
	if m == nil {
		return
	}
	m.corruptCells.Inc()
}
