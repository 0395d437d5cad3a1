// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jeranaias/agentchat/internal/config"
)

// =============================================================================
// SETTINGS STORE SELECTION
// =============================================================================

// StoreHandle is an opened settings store plus what is needed to watch and
// close it.
type StoreHandle struct {
	Store *config.Store
	Kind  string // file, sqlite or memory
	Path  string // empty for memory

	overridden bool
	closer     io.Closer
}

// OpenStore opens the settings store selected by --store and --config and
// applies environment and command-line overrides. Persisted values are
// loaded eagerly so a broken file is reported before any UI starts.
func OpenStore(args Args, logger *slog.Logger) (*StoreHandle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []config.StoreOption{config.WithEnvOverrides(), config.WithLogger(logger)}
	h := &StoreHandle{Kind: args.Store}

	switch args.Store {
	case StoreMemory:
		h.Store = config.NewStore(config.NewMemoryBackend(), opts...)

	case StoreSQLite:
		path := args.ConfigPath
		if path == "" {
			p, err := config.DefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		backend, err := config.OpenSQLiteBackend(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open settings database: %w", err)
		}
		h.Store = config.NewStore(backend, opts...)
		h.Path = path
		h.closer = backend

	default:
		path := args.ConfigPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		backend, err := config.NewFileBackend(path)
		if err != nil {
			return nil, err
		}
		h.Store = config.NewStore(backend, opts...)
		h.Path = path
	}

	current := h.Store.Load()
	if args.HasOverrides() {
		if args.Endpoint != "" {
			current.EndpointURL = args.Endpoint
		}
		if args.Timeout > 0 {
			current.TimeoutSeconds = args.Timeout
		}
		if err := h.Store.Override(current); err != nil {
			h.Close()
			return nil, err
		}
		h.overridden = true
		logger.Debug("settings overridden from command line",
			"endpoint", current.EndpointURL, "timeout_seconds", current.TimeoutSeconds)
	}
	return h, nil
}

// Watch calls onChange when the settings file changes on disk. It returns
// nil (and no error) when there is nothing to watch: memory stores, and
// runs with command-line overrides, which a reload would discard.
func (h *StoreHandle) Watch(ctx context.Context, onChange func()) (*config.Watcher, error) {
	if h.Path == "" || h.overridden {
		return nil, nil
	}
	// The directory may not exist before the first save
	if err := os.MkdirAll(filepath.Dir(h.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	w, err := config.NewWatcher(h.Path, config.DefaultWatchDebounce, onChange)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return w, nil
}

// Close releases the backend.
func (h *StoreHandle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}
