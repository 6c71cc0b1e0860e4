package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/dig-world/internal/app"
	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/middleware"
)

// RestServer — REST API для наблюдения за миром и управления инструментами
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	app     *app.App
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     int                   // порт для запуска сервера
	App      *app.App              // мир, инструменты и метрики
	Registry prometheus.Registerer // регистр HTTP-метрик; nil — регистр мира
	Tracing  bool                  // подключать otelgin
}

// GenericResponse — общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == 0 {
		config.Port = 8088
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	if config.Tracing {
		router.Use(otelgin.Middleware("rest_api"))
	}
	logger := logging.GetAPILogger()
	router.Use(middleware.NewRequestLogger(logger).Handler())

	reg := config.Registry
	if reg == nil && config.App.Metrics != nil {
		reg = config.App.Metrics.Registry()
	}
	router.Use(middleware.NewPrometheusMiddleware("rest_api", reg).Handler())

	rs := &RestServer{
		router:  router,
		app:     config.App,
		metrics: NewServerMetrics(),
		logger:  logger,
	}
	rs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)
	if rs.app.Metrics != nil {
		rs.router.GET("/metrics", gin.WrapH(rs.app.Metrics.Handler()))
	}

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/money", rs.handleMoney)

		api.GET("/chunks/:x/:y", rs.handleGetChunk)
		api.GET("/surface/:x", rs.handleSurface)
		api.GET("/cells/:x/:y", rs.handleGetCell)
		api.PUT("/cells/:x/:y", rs.handleSetCell)

		api.POST("/sellbox", rs.handleSellBox)

		tools := api.Group("/tools")
		tools.GET("", rs.handleListTools)
		tools.POST("", rs.handleCreateTool)
		tools.GET("/:id", rs.handleGetTool)
		tools.POST("/:id/use", rs.handleUseTool)
	}
}

// Handler возвращает http.Handler (для тестов)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает сервер и блокируется до Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь текущих запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
