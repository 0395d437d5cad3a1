// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the agentchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection; Theme records the termenv color profile so a plain terminal
still gets readable output.

# Colors (colors.go)

  - Cyan - brand, prompt, info notices
  - Purple - agent turns and the selected suggested action
  - Emerald - success notices, upload indicator
  - Amber - warnings and timeouts
  - Rose - errors and failed agent turns

StatusIndicators pair every notice kind with an ASCII shape ([OK], [X], [!],
[i]) so state never depends on color alone.

# Theme (theme.go)

	theme := styles.NewTheme()
	theme.SetSize(width, height)
	theme.AgentTurn.Width(width - 4).Render(text)

Layout modes (narrow, medium, wide) let views drop detail on small
terminals.
*/
package styles
