package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"LighthouseIS/internal/config"
	"LighthouseIS/internal/forward"
	"LighthouseIS/internal/stream"
)

func main() {
	log.Println("Starting lh-forwarder...")

	// 1. Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.Stream.Enabled {
		log.Fatalf("Stream is disabled in config. Forwarder cannot start.")
	}
	if cfg.Forwarder.DownstreamAddr == "" {
		log.Fatalf("No downstream_addr configured. Forwarder cannot start.")
	}

	// 2. Build the forwarder and subscribe to the live stream
	fwd, err := forward.New(cfg.Forwarder)
	if err != nil {
		log.Fatalf("Failed to create forwarder: %v", err)
	}
	defer fwd.Close()

	sub, err := stream.NewSubscriber(cfg.Stream)
	if err != nil {
		log.Fatalf("Failed to connect stream subscriber: %v", err)
	}
	defer sub.Close()

	if err := sub.Start(fwd.HandleEntry); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	// 3. Wait for a shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Printf("Shutdown signal received. Forwarded %d packets this run.", fwd.Forwarded())
}
