// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/agentchat/internal/ui/styles"
	"github.com/jeranaias/agentchat/internal/util"
)

// MaxChipWidth caps the label width of one suggested action.
const MaxChipWidth = 32

// RenderChips renders suggested actions as numbered chips, wrapping onto
// more rows when the width runs out. selected < 0 highlights nothing.
// An empty list renders as an empty string.
func RenderChips(theme *styles.Theme, labels []string, selected, width int) string {
	if len(labels) == 0 {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	var rows []string
	var row []string
	rowWidth := 0
	for i, label := range labels {
		style := theme.Chip
		if i == selected {
			style = theme.ChipSelected
		}
		text := theme.ChipIndex.Render(strconv.Itoa(i+1)) + " " +
			util.TruncateWidth(util.FirstLine(label), MaxChipWidth)
		chip := style.Render(text)

		w := lipgloss.Width(chip)
		if rowWidth > 0 && rowWidth+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		row = append(row, chip)
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n")
}
