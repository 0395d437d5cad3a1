// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the ordered, append-only transcript of one session.
// It is not safe for concurrent use; the chat controller serializes access.
type Conversation struct {
	turns     []*Turn
	createdAt time.Time
}

// NewConversation creates an empty transcript.
func NewConversation() *Conversation {
	return &Conversation{
		turns:     make([]*Turn, 0),
		createdAt: time.Now(),
	}
}

// Append adds a committed turn.
func (c *Conversation) Append(sender Sender, text string) *Turn {
	t := NewTurn(sender, text)
	c.turns = append(c.turns, t)
	return t
}

// Begin adds a pending turn. The caller must later Commit or Discard it.
func (c *Conversation) Begin(sender Sender, text string) *Turn {
	t := NewTurn(sender, text)
	t.State = TurnPending
	c.turns = append(c.turns, t)
	return t
}

// Commit marks a pending turn as final.
func (c *Conversation) Commit(id string) error {
	t := c.find(id)
	if t == nil {
		return fmt.Errorf("turn %s not found", id)
	}
	t.State = TurnCommitted
	return nil
}

// Discard removes a pending turn. Committed turns cannot be discarded.
func (c *Conversation) Discard(id string) error {
	for i, t := range c.turns {
		if t.ID != id {
			continue
		}
		if t.State != TurnPending {
			return fmt.Errorf("turn %s is committed", id)
		}
		c.turns = append(c.turns[:i], c.turns[i+1:]...)
		return nil
	}
	return fmt.Errorf("turn %s not found", id)
}

// Clear removes every turn.
func (c *Conversation) Clear() {
	c.turns = make([]*Turn, 0)
	c.createdAt = time.Now()
}

// Turns returns a copy of the transcript in order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		out[i] = *t
	}
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// IsEmpty reports whether no turns have been added.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// Last returns a copy of the most recent turn.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return *c.turns[len(c.turns)-1], true
}

// CreatedAt returns when the transcript was started or last cleared.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Conversation) find(id string) *Turn {
	for _, t := range c.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}
