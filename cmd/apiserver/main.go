// Package main runs the collection REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/api"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/gate"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/config"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
	"github.com/ramonehamilton/mtg-binder/internal/importer/resolver"
	"github.com/ramonehamilton/mtg-binder/internal/metrics"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/telemetry"
	"github.com/ramonehamilton/mtg-binder/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file path (default: $XDG_CONFIG_HOME/mtg-binder/config.toml)")
	port       = flag.Int("port", 0, "API server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
)

func main() {
	flag.Parse()

	fmt.Println("MTG Binder - REST API Server")
	fmt.Println("============================")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	fmt.Printf("Database: %s\n", cfg.Database.Path)

	dbConfig := storage.DefaultConfig(cfg.Database.Path)
	dbConfig.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	store := storage.NewService(db)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Tracing)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	if cfg.Tracing.Exporter == config.ExporterOTLP {
		fmt.Printf("Tracing: %s\n", cfg.Tracing.Endpoint)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Error flushing traces: %v", err)
		}
	}()

	catalogMetrics := metrics.NewCatalog()
	catalogGate := gate.New(gate.Options{
		MinSpacing: cfg.MinSpacing(),
		Timeout:    cfg.CatalogTimeout(),
		Metrics:    catalogMetrics,
	})
	defer catalogGate.Close()

	client := scryfall.NewClient(catalogGate, scryfall.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
	})
	res := resolver.New(client, cfg.InterChunkDelay())

	dispatcher := events.NewEventDispatcher()
	dispatcher.Register(events.NewLoggingObserver(cfg.App.DebugMode))

	importCfg := importer.DefaultConfig()
	importCfg.BatchSize = cfg.Import.MaxBulkEntries
	importCfg.MaxSuggestedItems = cfg.Import.MaxSuggestedItems
	importCfg.JobTTL = cfg.JobTTL()
	imports := importer.NewService(res, store.Entries, dispatcher, importCfg)
	defer imports.Close()

	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, &api.Services{
		Store:    store,
		Imports:  imports,
		Resolver: res,
		Catalog:  client,
		Queue:    catalogGate,
		Metrics:  catalogMetrics,
		Events:   dispatcher,
	})
	dispatcher.Register(server.NewWebSocketObserver(cfg.App.DebugMode))

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	fmt.Println()
	fmt.Printf("%s %s running at http://localhost:%d\n", version.Service, version.GetVersion(), cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("API server stopped.")
}
