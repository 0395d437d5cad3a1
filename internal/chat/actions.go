// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/agentchat/internal/agent"

// ActionPhase is the state of the suggested-action chips.
type ActionPhase int

const (
	// ActionsEmpty hides the chips while a request is in flight.
	ActionsEmpty ActionPhase = iota

	// ActionsPopulated shows a non-empty list.
	ActionsPopulated
)

// ActionState holds the suggested actions. Lists are always replaced,
// never merged.
type ActionState struct {
	phase  ActionPhase
	labels []string
}

// NewActionState returns the session-start state: the default actions.
func NewActionState() ActionState {
	var s ActionState
	s.Reset()
	return s
}

// Clear enters the Empty phase.
func (s *ActionState) Clear() {
	s.phase = ActionsEmpty
	s.labels = nil
}

// Reset shows the default actions.
func (s *ActionState) Reset() {
	s.Populate(nil)
}

// Populate replaces the list. An empty list means the defaults.
func (s *ActionState) Populate(labels []string) {
	if len(labels) == 0 {
		labels = agent.DefaultActions()
	}
	s.phase = ActionsPopulated
	s.labels = append([]string(nil), labels...)
}

// Phase returns the current phase.
func (s ActionState) Phase() ActionPhase {
	return s.phase
}

// Labels returns a copy of the current list (nil when Empty).
func (s ActionState) Labels() []string {
	if s.phase == ActionsEmpty {
		return nil
	}
	return append([]string(nil), s.labels...)
}
