// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for a chat transcript.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/agentchat/internal/util"
)

// =============================================================================
// SENDER
// =============================================================================

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAgent:
		return "Agent"
	default:
		return string(s)
	}
}

// =============================================================================
// TURN STATE
// =============================================================================

// TurnState tracks whether a turn is final.
//
// A user turn is shown as soon as it is typed (Pending) and becomes
// Committed once its request is issued. If the send is aborted before
// anything reaches the network, the pending turn is discarded instead.
type TurnState int

const (
	TurnPending TurnState = iota
	TurnCommitted
)

func (s TurnState) String() string {
	switch s {
	case TurnPending:
		return "pending"
	case TurnCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// =============================================================================
// TURN
// =============================================================================

// Turn is one entry in the transcript.
type Turn struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	State     TurnState `json:"-"`

	// AttachmentName is set on user turns sent with a file.
	AttachmentName string `json:"attachment,omitempty"`

	// Failed marks agent turns produced by an error path (timeout,
	// transport failure, cancellation) rather than by the agent.
	Failed bool `json:"failed,omitempty"`
}

// NewTurn creates a committed turn with a generated ID.
func NewTurn(sender Sender, text string) *Turn {
	return &Turn{
		ID:        generateID(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
		State:     TurnCommitted,
	}
}

// IsPending reports whether the turn is still provisional.
func (t *Turn) IsPending() bool {
	return t.State == TurnPending
}

// Preview returns the first line of the turn, truncated to maxLen runes.
func (t *Turn) Preview(maxLen int) string {
	return util.TruncateRunes(util.FirstLine(t.Text), maxLen)
}

func generateID() string {
	return "turn_" + uuid.NewString()
}
