package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Gravity   GravityConfig   `yaml:"gravity"`
	Tools     ToolsConfig     `yaml:"tools"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

type WorldConfig struct {
	Seed           int64   `yaml:"seed"`
	SurfaceLevel   float64 `yaml:"surface_level"`
	TopOffset      float64 `yaml:"top_offset"`
	GrassJitter    float64 `yaml:"grass_jitter"`
	GrassDepth     float64 `yaml:"grass_depth"`
	DirtDepth      float64 `yaml:"dirt_depth"`
	RockFloor      float64 `yaml:"rock_floor"`
	DirtSmoothness float64 `yaml:"dirt_smoothness"`
	DirtAmplitude  float64 `yaml:"dirt_amplitude"`
	RockSmoothness float64 `yaml:"rock_smoothness"`
	RockAmplitude  float64 `yaml:"rock_amplitude"`
	EvictRadius    int     `yaml:"evict_radius_chunks"`
	EvictEvery     int     `yaml:"evict_every_seconds"`
}

type GravityConfig struct {
	PeriodMillis int `yaml:"period_ms"`
	MaxScan      int `yaml:"max_scan"`
}

type ToolsConfig struct {
	ShovelRadius   int `yaml:"shovel_radius"`
	ShovelCapacity int `yaml:"shovel_capacity"`
	PickaxeWidth   int `yaml:"pickaxe_width"`
	PickaxeHeight  int `yaml:"pickaxe_height"`
}

type StorageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DataPath string `yaml:"data_path"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults заполняет незаданные поля значениями по умолчанию
func (c *Config) ApplyDefaults() {
	w := &c.World
	if w.Seed == 0 {
		w.Seed = 1337
	}
	setFloat(&w.GrassJitter, 0.5)
	setFloat(&w.GrassDepth, 2)
	setFloat(&w.DirtDepth, 12)
	setFloat(&w.RockFloor, -40)
	setFloat(&w.DirtSmoothness, 48)
	setFloat(&w.DirtAmplitude, 10)
	setFloat(&w.RockSmoothness, 24)
	setFloat(&w.RockAmplitude, 6)
	setInt(&w.EvictEvery, 10)

	setInt(&c.Gravity.PeriodMillis, 50)
	setInt(&c.Gravity.MaxScan, 64)

	setInt(&c.Tools.ShovelRadius, 2)
	setInt(&c.Tools.ShovelCapacity, 32)
	setInt(&c.Tools.PickaxeWidth, 3)
	setInt(&c.Tools.PickaxeHeight, 3)

	if c.Storage.DataPath == "" {
		c.Storage.DataPath = "data"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "dig-world"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate проверяет значения, которые нельзя исправить умолчаниями
func (c *Config) Validate() error {
	if c.Gravity.PeriodMillis < 0 || c.Gravity.MaxScan < 0 {
		return fmt.Errorf("gravity: значения не могут быть отрицательными")
	}
	if c.Tools.ShovelCapacity < 0 || c.Tools.ShovelRadius < 0 {
		return fmt.Errorf("tools: значения не могут быть отрицательными")
	}
	if c.World.EvictRadius < 0 {
		return fmt.Errorf("world: evict_radius_chunks не может быть отрицательным")
	}
	return nil
}

// GravityPeriod возвращает период шага осыпания
func (g GravityConfig) GravityPeriod() time.Duration {
	return time.Duration(g.PeriodMillis) * time.Millisecond
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "DIG_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "DIG_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV DIG_CONFIG, иначе возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DIG_CONFIG")
		if path == "" {
			return Default(), nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
