// Command reifydb starts a standalone core engine process: it opens a
// store backend, assembles the transaction/catalog/CDC/flow stack via
// pkg/engine, and waits for a signal to shut down cleanly. There is no
// RQL surface and no network listener here — those are out of scope
// for the core this binary wires together; it exists so the engine can
// be exercised as a process rather than only as a library.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reifydb/reifydb/pkg/config"
	"github.com/reifydb/reifydb/pkg/engine"
	"github.com/reifydb/reifydb/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional, defaults applied otherwise)")
		backend    = flag.String("backend", "", "Store backend: memory, bolt or tiered (overrides config file)")
		boltPath   = flag.String("bolt-path", "", "Bolt database file path (overrides config file)")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config file)")
		logJSON    = flag.Bool("log-json", false, "Output logs in JSON format")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *backend != "" {
		cfg.Backend = config.Backend(*backend)
	}
	if *boltPath != "" {
		cfg.BoltPath = *boltPath
	}
	if *logLevel != "" {
		cfg.LogLevel = log.Level(*logLevel)
	}
	if *logJSON {
		cfg.LogJSONOutput = true
	}

	ctx := context.Background()
	e, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	fmt.Printf("reifydb engine started (backend=%s)\n", cfg.Backend)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	if err := e.Close(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Println("Shutdown complete")
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.Config{}, err
	}
	defer f.Close()
	return config.Load(f)
}
