package util

import "math/rand"

// WeightedTable — категориальное распределение с фиксированными весами
type WeightedTable[T any] struct {
	values     []T
	cumulative []float64
	total      float64
}

// Weighted — элемент таблицы
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// NewWeightedTable строит таблицу. Элементы с неположительным весом игнорируются.
func NewWeightedTable[T any](entries ...Weighted[T]) *WeightedTable[T] {
	wt := &WeightedTable[T]{}
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		wt.total += e.Weight
		wt.values = append(wt.values, e.Value)
		wt.cumulative = append(wt.cumulative, wt.total)
	}
	return wt
}

// Pick выбирает значение пропорционально весам
func (wt *WeightedTable[T]) Pick(rng *rand.Rand) T {
	var zero T
	if len(wt.values) == 0 {
		return zero
	}
	r := rng.Float64() * wt.total
	for i, c := range wt.cumulative {
		if r < c {
			return wt.values[i]
		}
	}
	return wt.values[len(wt.values)-1]
}

// Probability возвращает долю значения с индексом i
func (wt *WeightedTable[T]) Probability(i int) float64 {
	if i < 0 || i >= len(wt.cumulative) || wt.total == 0 {
		return 0
	}
	prev := 0.0
	if i > 0 {
		prev = wt.cumulative[i-1]
	}
	return (wt.cumulative[i] - prev) / wt.total
}
