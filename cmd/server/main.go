/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stream engine server: configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (and optional YAML config file)
  2. Open the chosen store backend (memory, sqlite or bolt)
  3. Wire bank, authorizer, event hub and engine
  4. Initialise the engine config if token/admin are provided and the
     store is fresh
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -store   Store backend: memory | sqlite | bolt (default: sqlite)
  -db      Database path (default: streams.db; ":memory:" for sqlite)
  -config  Optional YAML config file; flags override nothing set in it

CONFIG FILE (YAML):
  port: 8080
  store: sqlite
  db: ./data/streams.db
  token: FLUX            # streaming asset identifier
  admin: admin           # administrative principal
  escrow: escrow         # account holding deposited funds

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the store, exit.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/stream-engine/api"
	"github.com/warp/stream-engine/bank"
	"github.com/warp/stream-engine/store/bolt"
	"github.com/warp/stream-engine/store/sqlite"
	"github.com/warp/stream-engine/stream"
	memstore "github.com/warp/stream-engine/stream/store"
)

// Config is the server configuration, from flags and/or a YAML file.
type Config struct {
	Port   int    `yaml:"port"`
	Store  string `yaml:"store"`
	DB     string `yaml:"db"`
	Token  string `yaml:"token"`
	Admin  string `yaml:"admin"`
	Escrow string `yaml:"escrow"`
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:   8080,
		Store:  "sqlite",
		DB:     "streams.db",
		Escrow: "escrow",
	}

	port := flag.Int("port", 0, "HTTP server port")
	storeKind := flag.String("store", "", "store backend: memory | sqlite | bolt")
	dbPath := flag.String("db", "", "database path")
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	if *configPath != "" {
		bs, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(bs, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// Flags override the file.
	if *port != 0 {
		cfg.Port = *port
	}
	if *storeKind != "" {
		cfg.Store = *storeKind
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}
	return cfg, nil
}

func openStore(cfg Config) (stream.Store, func() error, error) {
	switch cfg.Store {
	case "memory":
		return memstore.NewMemory(), func() error { return nil }, nil
	case "sqlite":
		st, err := sqlite.New(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "bolt":
		st, err := bolt.New(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// Wiring
	ledger := bank.New()
	hub := api.NewHub()
	engine := stream.NewEngine(st, ledger, api.HeaderAuthorizer{}, stream.AccountID(cfg.Escrow))
	engine.Events = hub

	// Initialise once if the operator supplied token/admin and the store
	// has no config yet.
	if cfg.Token != "" && cfg.Admin != "" {
		err := engine.Init(context.Background(), stream.AssetID(cfg.Token), stream.AccountID(cfg.Admin))
		switch {
		case err == nil:
			log.Printf("Initialised engine: token=%s admin=%s", cfg.Token, cfg.Admin)
		case errors.Is(err, stream.ErrAlreadyInitialized):
			// Existing store; keep its config.
		default:
			log.Fatalf("Failed to initialise engine: %v", err)
		}
	}

	handler := api.NewHandler(engine, ledger)
	router := api.NewRouter(handler, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (store=%s)", cfg.Port, cfg.Store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
