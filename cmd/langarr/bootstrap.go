package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"langarr/internal/config"
	"langarr/internal/logging"
	"langarr/internal/store"
	"langarr/internal/syncer"
)

// app bundles the shared dependencies a command needs after bootstrap.
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
	hub     *logging.StreamHub
	store   *store.Store
	syncer  *syncer.Syncer
}

const streamCapacity = 4096

// newApp loads configuration and wires logger, stream hub, store, and
// syncer. The returned cleanup closes the store; callers defer it.
func newApp(configFlag string, withStore bool) (*app, func(), error) {
	cfg, cfgPath, _, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	hub := logging.NewStreamHub(streamCapacity)
	logger, err := logging.New(logging.Options{
		Level:       cfg.General.LogLevel,
		Format:      cfg.General.LogFormat,
		OutputPaths: []string{"stdout", filepath.Join(cfg.LogDir(), "langarr.log")},
		Stream:      hub,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}

	a := &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		hub:     hub,
	}
	cleanup := func() {}

	if withStore {
		st, err := store.Open(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		hub.AddSink(st.Sink())
		a.store = st
		cleanup = func() { _ = st.Close() }
	}

	a.syncer = syncer.New(cfg, a.store, logger)
	return a, cleanup, nil
}
