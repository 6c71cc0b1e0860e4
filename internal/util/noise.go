package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры perlin по умолчанию
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// NoiseChannel — одномерный канал шума Перлина вдоль глобальной оси X.
// Smoothness задаёт пространственный масштаб (чем больше, тем плавнее холмы),
// Amplitude — максимальное отклонение в клетках.
type NoiseChannel struct {
	Smoothness float64
	Amplitude  float64
	noise      *perlin.Perlin
}

// NewNoiseChannel создаёт независимый канал с собственным сидом
func NewNoiseChannel(seed int64, smoothness, amplitude float64) *NoiseChannel {
	if smoothness <= 0 {
		smoothness = 1
	}
	return &NoiseChannel{
		Smoothness: smoothness,
		Amplitude:  amplitude,
		noise:      perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// Sample возвращает смещение в клетках для глобального X (примерно от -Amplitude до Amplitude)
func (nc *NoiseChannel) Sample(x float64) float64 {
	return nc.noise.Noise1D(x/nc.Smoothness) * nc.Amplitude
}
