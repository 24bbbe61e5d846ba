// Command impact-service runs the pipeline continuously, polling the
// input directories on an interval, and serves a small HTTP status
// API alongside Prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"impact-agent/config"
	"impact-agent/handlers"
	"impact-agent/metrics"
	"impact-agent/pipeline"
)

func main() {
	cfg := config.Load()

	service, cleanup, err := pipeline.Build(cfg)
	if err != nil {
		log.Errorf("Failed to initialize pipeline: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	metrics.Register()

	h := handlers.NewHandlers(cfg, service.Ledger())

	router := gin.Default()
	api := router.Group("/api/v3")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/status", h.GetStatus)
		api.GET("/analyses", h.GetAnalyses)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Poll loop. Batches run sequentially; a slow batch just delays
	// the next tick.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			runBatch(ctx, service)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func runBatch(ctx context.Context, service *pipeline.Service) {
	if _, err := service.ProcessPhotos(ctx); err != nil {
		log.Errorf("Photo batch failed: %v", err)
	}
	if _, err := service.ProcessAnalyses(ctx); err != nil {
		log.Errorf("Analysis batch failed: %v", err)
	}
}
