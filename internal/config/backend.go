// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/agentchat/internal/util"
)

// Backend persists settings. Read reports found=false when nothing has been
// stored yet; that is not an error.
type Backend interface {
	Read() (s Settings, found bool, err error)
	Write(s Settings) error
}

// =============================================================================
// FILE BACKEND
// =============================================================================

// Format is the on-disk encoding of a FileBackend.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for settings files with an unrecognized extension.
var ErrUnknownFormat = errors.New("unknown settings file format")

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s (use .toml, .json or .yaml)", ErrUnknownFormat, filepath.Ext(path))
}

// FileBackend stores settings in a single file.
// SECURITY: files are written 0600, the endpoint URL may embed a token.
type FileBackend struct {
	path   string
	format Format
}

// NewFileBackend creates a backend for path; the extension selects the format.
func NewFileBackend(path string) (*FileBackend, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	return &FileBackend{path: path, format: format}, nil
}

// Path returns the settings file path.
func (b *FileBackend) Path() string { return b.path }

// Read decodes the settings file. Keys missing from the file keep their
// default values.
func (b *FileBackend) Read() (Settings, bool, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Default()
	switch b.format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &s)
	case FormatJSON:
		err = json.Unmarshal(data, &s)
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("failed to decode %s settings: %w", b.format, err)
	}
	return s, true, nil
}

// Write encodes and atomically replaces the settings file.
func (b *FileBackend) Write(s Settings) error {
	var buf bytes.Buffer
	switch b.format {
	case FormatTOML:
		buf.WriteString("# agentchat settings\n")
		buf.WriteString("# Written by agentchat; edits are picked up while it runs.\n\n")
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(b.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend keeps settings in process memory. Used for --store memory
// and tests.
type MemoryBackend struct {
	mu       sync.Mutex
	settings Settings
	found    bool

	// WriteErr, when set, is returned by Write.
	WriteErr error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Read() (Settings, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings, b.found, nil
}

func (b *MemoryBackend) Write(s Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	b.settings = s
	b.found = true
	return nil
}
