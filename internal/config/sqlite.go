// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Row keys in the settings table.
const (
	keyEndpointURL       = "endpointUrl"
	keyFileUploadEnabled = "fileUploadEnabled"
	keyTimeoutSeconds    = "timeoutSeconds"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores settings as key/value rows in a SQLite database.
type SQLiteBackend struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLiteBackend opens (creating if needed) the settings database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{db: db, timeout: 5 * time.Second}
	ctx, cancel := b.context()
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// Read loads all settings rows. Missing rows keep their defaults; found is
// true when at least one row exists.
func (b *SQLiteBackend) Read() (Settings, bool, error) {
	ctx, cancel := b.context()
	defer cancel()

	rows, err := b.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return Settings{}, false, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	s := Default()
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, false, fmt.Errorf("failed to scan settings row: %w", err)
		}
		found = true
		switch key {
		case keyEndpointURL:
			s.EndpointURL = value
		case keyFileUploadEnabled:
			s.FileUploadEnabled, _ = strconv.ParseBool(value)
		case keyTimeoutSeconds:
			// An unparseable row becomes 0 and is replaced by the default
			// when the store sanitizes it.
			s.TimeoutSeconds, _ = strconv.Atoi(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, false, fmt.Errorf("failed to read settings rows: %w", err)
	}
	return s, found, nil
}

// Write upserts every field in one transaction.
func (b *SQLiteBackend) Write(s Settings) error {
	ctx, cancel := b.context()
	defer cancel()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	rows := [][2]string{
		{keyEndpointURL, s.EndpointURL},
		{keyFileUploadEnabled, strconv.FormatBool(s.FileUploadEnabled)},
		{keyTimeoutSeconds, strconv.Itoa(s.TimeoutSeconds)},
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row[0], row[1], now); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", row[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
