package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/api/handlers"
	"github.com/stitts-dev/lineup-engine/internal/api/middleware"
	"github.com/stitts-dev/lineup-engine/pkg/cache"
	"github.com/stitts-dev/lineup-engine/pkg/config"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger("", cfg.IsDevelopment())
	log := logger.WithService("lineup-engine")
	log.WithFields(logrus.Fields{
		"version":     version,
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting Lineup Engine")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// The result cache is optional: the engine is stateless and solves
	// every request from scratch when Redis is down.
	resultCache, err := cache.NewResultCache(cfg.RedisURL, cfg.CacheTTL, logger.WithService("result_cache"))
	if err != nil {
		log.WithError(err).Warn("Result cache unavailable, continuing without caching")
		resultCache = nil
	} else {
		defer resultCache.Close()
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	optimizationHandler := handlers.NewOptimizationHandler(cfg, resultCache)
	simulationHandler := handlers.NewSimulationHandler(cfg, resultCache)
	portfolioHandler := handlers.NewPortfolioHandler()
	healthHandler := handlers.NewHealthHandler(resultCache, version)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimizationHandler.Optimize)
		apiV1.POST("/simulate", simulationHandler.Simulate)
		apiV1.POST("/portfolio/filter", portfolioHandler.Filter)
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Lineup engine started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down lineup engine")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Info("Lineup engine stopped")
}
