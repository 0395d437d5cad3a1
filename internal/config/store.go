// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

// Store holds the running settings, validates changes and persists them
// through a Backend. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	current Settings
	loaded  bool

	envOverrides bool
	logger       *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEnvOverrides applies AGENTCHAT_* variables on every Load. Overrides
// affect the running settings only and are never written back.
func WithEnvOverrides() StoreOption {
	return func(s *Store) { s.envOverrides = true }
}

// WithLogger sets the logger used for load failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a store over backend. Nothing is read until Load.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		current: Default(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted settings, or defaults when nothing is stored.
// A failing backend is logged and defaults are used; Load never fails.
// Invalid persisted fields fall back to their defaults individually.
func (s *Store) Load() Settings {
	settings := Default()

	stored, found, err := s.backend.Read()
	switch {
	case err != nil:
		s.logger.Warn("settings load failed, using defaults", "error", err)
	case found:
		settings = stored
		if replaced := settings.sanitize(); len(replaced) > 0 {
			s.logger.Warn("invalid persisted settings replaced with defaults", "fields", replaced)
		}
	}

	if s.envOverrides {
		settings.ApplyEnvOverrides()
		settings.sanitize()
	}

	s.mu.Lock()
	s.current = settings
	s.loaded = true
	s.mu.Unlock()
	return settings
}

// Current returns the running settings, loading them on first use.
func (s *Store) Current() Settings {
	s.mu.RLock()
	if s.loaded {
		cur := s.current
		s.mu.RUnlock()
		return cur
	}
	s.mu.RUnlock()
	return s.Load()
}

// Timeout returns the running response timeout.
func (s *Store) Timeout() time.Duration {
	return s.Current().Timeout()
}

// Save validates candidate and, only if valid, persists it and makes it the
// running configuration. On a validation failure it returns ValidateErrors
// and changes nothing. A backend failure is returned wrapped and also leaves
// the running settings untouched. The returned value is what was persisted;
// with WithEnvOverrides the running settings keep the AGENTCHAT_* values on
// top of it, exactly as the next Load would.
func (s *Store) Save(candidate Candidate) (Settings, error) {
	settings, err := candidate.Validate()
	if err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Write(settings); err != nil {
		return Settings{}, fmt.Errorf("failed to persist settings: %w", err)
	}
	running := settings
	if s.envOverrides {
		running.ApplyEnvOverrides()
		running.sanitize()
	}
	s.current = running
	s.loaded = true
	s.logger.Info("settings saved",
		"endpoint", settings.EndpointURL,
		"file_upload", settings.FileUploadEnabled,
		"timeout_seconds", settings.TimeoutSeconds)
	return settings, nil
}

// Override replaces the running settings for this process without
// persisting, e.g. for --endpoint on the command line. The value must be
// valid.
func (s *Store) Override(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = settings
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Reload re-reads the backend, e.g. after the settings file changed on disk.
func (s *Store) Reload() Settings {
	return s.Load()
}
