// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the conversation identity for agentchat.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the opaque session token sent with every request. The agent
// uses it to correlate turns into one conversation.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time
	generation   int

	newID func() string
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the random source. Tests use it to force
// collisions.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager holding a fresh session id.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		newID: NewID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reset(m.newID())
	return m
}

// NewID returns a random version 4 UUID string (122 bits of entropy).
func NewID() string {
	return uuid.NewString()
}

// SessionID returns the current session token.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Generation counts regenerations since the manager was created.
// An in-flight exchange compares it to detect that its session was replaced.
func (m *Manager) Generation() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Regenerate replaces the session token and returns the new one.
// The new token never equals the one it replaces.
func (m *Manager) Regenerate() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for id == m.sessionID || id == "" {
		id = m.newID()
	}
	m.reset(id)
	m.generation++
	return id
}

func (m *Manager) reset(id string) {
	now := m.now()
	m.sessionID = id
	m.startTime = now
	m.lastActivity = now
}

// RecordActivity marks the session as active now.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
}

// StartTime returns when the current session began.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// Duration returns how long the current session has existed.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.startTime)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a point-in-time view of the session for display.
type Status struct {
	SessionID  string
	StartTime  time.Time
	Duration   time.Duration
	IdleTime   time.Duration
	Generation int
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	return Status{
		SessionID:  m.sessionID,
		StartTime:  m.startTime,
		Duration:   now.Sub(m.startTime),
		IdleTime:   now.Sub(m.lastActivity),
		Generation: m.generation,
	}
}

// FormatDuration formats a duration for display (e.g. "45s", "3m", "2m 5s", "1h 4m").
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d >= time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins == 0 {
			return strconv.Itoa(hours) + "h"
		}
		return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
