// cmd/meal-plan/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mcp-meal-plan/internal/config"
	"mcp-meal-plan/internal/logger"
	"mcp-meal-plan/internal/server"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file")
	transport  = flag.String("transport", "", "Transport mode: http")
	port       = flag.Int("port", 0, "Port for HTTP transport")
	host       = flag.String("host", "", "Host address")
	address    = flag.String("address", "", "Address (alias for host)")
	dbPath     = flag.String("db-path", "", "Database path")
	foodsCSV   = flag.String("foods-csv", "", "Foods CSV to import at startup")
	mode       = flag.String("mode", "", "Default planning mode: auto, greedy or opt")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("mcp-meal-plan version %s\n", server.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(&cfg)

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	srv, err := server.NewMealPlanServer(&cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to create server", "error", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		zlog.Info("received shutdown signal")
	case err := <-errCh:
		zlog.Error("server error", "error", err)
	}

	zlog.Info("shutting down")
	cancel()
	if err := srv.Stop(); err != nil {
		zlog.Error("error during shutdown", "error", err)
	}
}

// applyFlags lets explicitly set flags override file and environment values.
func applyFlags(cfg *config.Config) {
	if *transport != "" {
		cfg.Server.Transport = *transport
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	// Use address if provided, otherwise use host
	if *address != "" {
		cfg.Server.Host = *address
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *foodsCSV != "" {
		cfg.Server.FoodsCSV = *foodsCSV
	}
	if *mode != "" {
		cfg.Planner.Mode = *mode
	}
}
