// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/agentchat/internal/chat"
)

// =============================================================================
// MESSAGES
// =============================================================================

// stateChangedMsg means the controller state changed; redraw from a fresh
// snapshot.
type stateChangedMsg struct{}

// noticeMsg carries a controller notice to the toast stack.
type noticeMsg struct {
	notice chat.Notice
}

// exchangeDoneMsg is returned by the command running an exchange.
type exchangeDoneMsg struct {
	outcome chat.Outcome
}

// greetDoneMsg is returned by the initial-actions fetch.
type greetDoneMsg struct {
	err error
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge carries controller callbacks into the Bubble Tea event loop.
// Pass its methods to chat.WithNoticeHandler and chat.WithChangeHandler.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
}

// NewBridge creates a bridge. Close it when the program exits.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, 64),
		done:   make(chan struct{}),
	}
}

// Notice queues a notice. It blocks while the queue is full, until the
// bridge is closed.
func (b *Bridge) Notice(n chat.Notice) {
	select {
	case b.events <- noticeMsg{notice: n}:
	case <-b.done:
	}
}

// Changed queues a redraw. Redraws coalesce: any queued event already
// causes one.
func (b *Bridge) Changed() {
	select {
	case b.events <- stateChangedMsg{}:
	default:
	}
}

// Close releases blocked senders.
func (b *Bridge) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

// listen waits for the next bridged event.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}
