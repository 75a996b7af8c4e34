package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LighthouseIS/internal/api"
	"LighthouseIS/internal/archive"
	"LighthouseIS/internal/config"
	"LighthouseIS/internal/dedup"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.Archiver.Enabled {
		log.Fatalf("Archiver is disabled in config. API server cannot start.")
	}

	// Initialize querier against the archive
	querier, err := archive.NewQuerier(cfg.Archiver.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	window := dedup.DefaultWindow
	if cfg.Analyzer.MatchWindow != "" {
		window, err = time.ParseDuration(cfg.Analyzer.MatchWindow)
		if err != nil {
			log.Fatalf("Invalid match_window in config: %v", err)
		}
	}

	// The API runs detached from the live relay, so there is no recent ring.
	handler := api.NewHandler(querier, nil, window)

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}
