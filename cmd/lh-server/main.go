package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"LighthouseIS/internal/archive"
	"LighthouseIS/internal/config"
	"LighthouseIS/internal/model"
	"LighthouseIS/internal/server"
	"LighthouseIS/internal/sink"
	"LighthouseIS/internal/stream"
)

func main() {
	log.Println("Starting lh-server...")

	// 1. Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Build the packet stream: file sink plus optional NATS fan-out and
	// ClickHouse archive
	capacity := cfg.Sink.RecentCapacity
	if capacity <= 0 {
		capacity = sink.DefaultRecentCapacity
	}
	ring := sink.NewRing(capacity)

	var pub model.Publisher
	if cfg.Stream.Enabled {
		p, err := stream.NewPublisher(cfg.Stream)
		if err != nil {
			log.Fatalf("Failed to connect stream publisher: %v", err)
		}
		defer p.Close()
		pub = p
	}

	logPath := cfg.Sink.LogFilePath
	if logPath == "" {
		logPath = "received_packets.log"
	}
	fileSink, err := sink.NewFileSink(logPath, ring, pub, cfg.Sink.EchoToConsole)
	if err != nil {
		log.Fatalf("Failed to open packet stream: %v", err)
	}
	defer fileSink.Close()

	targets := sink.Multi{fileSink}
	if cfg.Archiver.Enabled {
		writer, err := archive.NewWriter(cfg.Archiver)
		if err != nil {
			log.Fatalf("Failed to create archive writer: %v", err)
		}
		writer.Start()
		defer writer.Stop()
		targets = append(targets, writer)
	}

	// 3. Start the relay engine
	engine, err := server.NewEngine(cfg.Server, targets)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	log.Printf("Relay listening on %s", engine.Addr())

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")
	if err := engine.Stop(context.Background()); err != nil {
		log.Printf("Engine stop: %v", err)
	}
	log.Println("Shutdown complete.")
}
