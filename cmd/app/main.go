package main

import (
	"flag"
	"log"
	"os"

	"PatternPull/internal/di"
	"PatternPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s tickers=%d", cfg.Environment, cfg.Backend.Type, len(cfg.Feed.Tickers))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("scanner: interval=%s capacity=%d", cfg.Scanner.Interval, cfg.Scanner.Capacity)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
