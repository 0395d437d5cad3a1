// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/agentchat/internal/chat"
)

// Run opens the chat window and blocks until the user quits or ctx is
// cancelled. It closes the bridge on return.
func Run(ctx context.Context, ctrl *chat.Controller, bridge *Bridge, opts Options) error {
	defer bridge.Close()

	p := tea.NewProgram(
		New(ctx, ctrl, bridge, opts),
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse wheel scrolling
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	ctrl.Cancel()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("chat window: %w", err)
	}
	return nil
}
