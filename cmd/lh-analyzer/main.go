package main

import (
	"flag"
	"log"
	"os"
	"time"

	"LighthouseIS/internal/config"
	"LighthouseIS/internal/dedup"
	"LighthouseIS/internal/report"
)

func main() {
	logFile := flag.String("f", "received_packets.log", "path to the packet stream log file")
	duration := flag.String("d", "", "lookback duration, e.g. 30min, 12h, 2d, 1w (default 1h)")
	showUnique := flag.Bool("u", false, "list unique packets per client")
	showIdentical := flag.Bool("i", false, "list identical packets across clients")
	flag.Parse()

	lookback := report.DefaultLookback
	window := dedup.DefaultWindow

	// Config is optional for the analyzer; it only supplies defaults for
	// flags left unset.
	if cfg, err := config.LoadConfig("configs/config.yaml"); err == nil {
		if *duration == "" && cfg.Analyzer.DefaultLookback != "" {
			*duration = cfg.Analyzer.DefaultLookback
		}
		if cfg.Analyzer.MatchWindow != "" {
			w, err := time.ParseDuration(cfg.Analyzer.MatchWindow)
			if err != nil {
				log.Fatalf("Invalid match_window in config: %v", err)
			}
			window = w
		}
	}

	if *duration != "" {
		var err error
		lookback, err = report.ParseLookback(*duration)
		if err != nil {
			log.Fatalf("Invalid duration %q: %v", *duration, err)
		}
	}

	entries, err := report.ReadLog(*logFile)
	if err != nil {
		log.Fatalf("Failed to read log file: %v", err)
	}

	opts := report.Options{
		Lookback:      lookback,
		Window:        window,
		Now:           time.Now(),
		ShowUnique:    *showUnique,
		ShowIdentical: *showIdentical,
	}
	rep := report.Build(entries, opts)
	report.Render(os.Stdout, rep, opts)
}
