package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/audioroute/internal/bluetooth"
	"github.com/petems/audioroute/internal/config"
	"github.com/petems/audioroute/internal/logging"
	"github.com/petems/audioroute/internal/platform"
	"github.com/petems/audioroute/internal/prefs"
	"github.com/petems/audioroute/internal/routing"
	"github.com/petems/audioroute/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick an audio backend by capability probing
	backend, err := platform.Open(cfg.Backend, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio backend")
	}
	defer backend.Close()
	log.Info().Str("backend", backend.Name()).Msg("Audio backend ready")

	// Durable selection preferences
	store, err := prefs.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open preference store")
	}

	session := routing.NewSession(routing.Config{
		Backend:        backend,
		Prefs:          store,
		Provider:       bluetooth.ProviderFor(backend, log),
		Logger:         log,
		DebounceWindow: cfg.DebounceWindow(),
		PollInterval:   cfg.PollInterval(),
	})

	if err := session.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize routing session")
	}
	defer session.Dispose()

	trayUI := tray.New(session, cfg, Version, Commit, log)

	log.Info().Msg("audioroute starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		session.Dispose()
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}
