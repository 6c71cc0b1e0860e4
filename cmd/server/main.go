package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/dig-world/internal/api"
	"github.com/annel0/dig-world/internal/app"
	"github.com/annel0/dig-world/internal/config"
	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/observability"
	"github.com/annel0/dig-world/internal/vec"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или DIG_CONFIG)")
	sellBoxX := flag.Int("sellbox-x", 4, "колонка, в которой ставится приёмник продажи при старте")
	flag.Parse()

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	logging.Info("⛏  Запуск dig-world: seed=%d, gravity=%s, storage=%v",
		cfg.World.Seed, cfg.Gravity.GravityPeriod(), cfg.Storage.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === МИР ===
	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка создания мира: %v", err)
	}

	spawn := vec.Vec2{X: 0, Y: a.World.SurfaceAt(0)}
	a.World.SetActiveCenter(spawn.ToChunkCoords())
	a.World.GetOrGenerateChunk(spawn.ToChunkCoords())
	a.PlaceSellBox(*sellBoxX)
	logging.Info("🌍 Спавн (%d,%d), чанков в памяти: %d", spawn.X, spawn.Y, a.World.Stats().LoadedChunks)

	worldDone := make(chan error, 1)
	go func() {
		worldDone <- a.World.Run(ctx)
	}()

	// === REST API ===
	gin.SetMode(gin.ReleaseMode)
	restPort := cfg.Server.GetRESTPort()
	rest := api.NewRestServer(api.Config{
		Port:    restPort,
		App:     a,
		Tracing: cfg.Telemetry.Enabled,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
		}
	}()

	// === PROMETHEUS ===
	metricsPort := cfg.Server.GetMetricsPort()
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           a.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", restPort)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", metricsPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if err := <-worldDone; err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	}
	if err := a.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Сервер остановлен, заработано: %.2f", a.World.CurrentMoney())
}
