package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tradeboard/tradeboard-api/internal/config"
	"github.com/tradeboard/tradeboard-api/internal/database"
	"github.com/tradeboard/tradeboard-api/internal/market"
	"github.com/tradeboard/tradeboard-api/internal/metrics"
	"github.com/tradeboard/tradeboard-api/internal/stream"
	"github.com/tradeboard/tradeboard-api/pkg/middleware"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the dashboard API server with graceful
// shutdown support. It opens the store, seeds demonstration data, starts
// the tick scheduler and wires the HTTP and websocket surfaces.
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && os.Getenv("DEBUG") != "true" {
		zerolog.SetGlobalLevel(level)
	}

	// Initialize database and seed demonstration data
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := database.Seed(db); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed database")
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	// Simulation engine. The hub snapshots prices through the scheduler
	// and the scheduler publishes events through the hub, so the hub is
	// bound through a late-resolving adapter.
	ids := market.NewIDGenerator()
	sim := market.NewSimulator()

	var hub *stream.Hub
	scheduler := market.NewScheduler(
		market.NewDatabase(db), sim, ids,
		market.BroadcasterFunc(func(ev stream.Event) { hub.Broadcast(ev) }),
		cfg.Simulation.TickInterval,
	)
	hub = stream.NewHub(scheduler)

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	go scheduler.Run(schedulerCtx)

	marketService := market.NewService(db, ids, hub)
	marketHandlers := market.NewGinHandlers(marketService)
	streamHandlers := stream.NewGinHandlers(hub, scheduler.InitPricesOnce)

	// Initialize router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RateLimit())
	router.Use(metrics.GinMiddleware())

	setupRoutes(router, marketHandlers, streamHandlers)
	router.GET(cfg.MetricsPath, gin.WrapH(metrics.Handler(registry)))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Create server
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:     router,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown setup
	go func() {
		zlog.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	schedulerCancel()

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures the dashboard endpoints:
// - Order routes: create, patch, read, open-order listing
// - Trade routes: recent trades and trades by order
// - Market data: tickers, per-symbol price history
// - Stream: the persistent websocket event feed
func setupRoutes(
	router *gin.Engine,
	marketHandlers *market.GinHandlers,
	streamHandlers *stream.GinHandlers,
) {
	orders := router.Group("/orders")
	{
		orders.GET("/open", marketHandlers.GetOpenOrdersHandler())
		orders.POST("", marketHandlers.CreateOrderHandler())
		orders.PATCH("/:order_id", marketHandlers.UpdateOrderHandler())
		orders.GET("/:order_id", marketHandlers.GetOrderHandler())
	}

	trades := router.Group("/trades")
	{
		trades.GET("/recent", marketHandlers.GetRecentTradesHandler())
		trades.GET("/by-order/:order_id", marketHandlers.GetTradesByOrderHandler())
	}

	router.GET("/tickers", marketHandlers.GetTickersHandler())
	router.GET("/prices/:symbol", marketHandlers.GetPriceHistoryHandler())
	router.GET("/ws/live", streamHandlers.LiveHandler())
}
