// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/chat"
	"github.com/jeranaias/agentchat/internal/model"
	"github.com/jeranaias/agentchat/internal/ui/components"
	"github.com/jeranaias/agentchat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) render() string {
	sections := []string{m.renderHeader(), m.viewport.View()}
	if s := m.renderToasts(); s != "" {
		sections = append(sections, s)
	}
	if s := m.renderActions(); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("agentchat")
	meta := fmt.Sprintf("session %s  %s", shortID(m.snap.SessionID), endpointHost(m.snap.Settings.EndpointURL))

	avail := m.width - lipgloss.Width(title) - 4
	if avail < 0 {
		avail = 0
	}
	meta = m.theme.HeaderMeta.Render(util.TruncateWidth(meta, avail))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(meta) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + meta)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	if len(m.snap.Turns) == 0 {
		return m.theme.EmptyState.Width(m.viewport.Width).Render(
			"Say hello, or pick a suggested action below.")
	}

	width := m.viewport.Width
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for i := range m.snap.Turns {
		t := &m.snap.Turns[i]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(t, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTurn(t *model.Turn, width int) string {
	label := m.theme.TurnLabel.Render(t.Sender.DisplayName()) + " " +
		m.theme.Timestamp.Render(t.Timestamp.Format("15:04"))

	style := m.theme.AgentTurn
	switch {
	case t.Sender == model.SenderUser:
		style = m.theme.UserTurn
	case t.Failed:
		style = m.theme.FailedTurn
	}
	inner := width - style.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	body := t.Text
	if t.Sender == model.SenderAgent && !t.Failed {
		body = m.markdown(body, inner)
	} else {
		body = lipgloss.NewStyle().Width(inner).Render(body)
	}
	if t.AttachmentName != "" && t.Sender == model.SenderUser && !strings.Contains(t.Text, t.AttachmentName) {
		body += "\n" + m.theme.Attachment.Render("[file] "+t.AttachmentName)
	}
	return label + "\n" + style.Render(body)
}

// markdown renders agent text, falling back to plain wrapped text.
func (m *Model) markdown(text string, width int) string {
	if m.renderer == nil || m.rendererWidth != width {
		opt := glamour.WithAutoStyle()
		if m.opts.GlamourStyle != "" {
			opt = glamour.WithStandardStyle(m.opts.GlamourStyle)
		}
		r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
		if err != nil {
			m.logger.Debug("markdown renderer unavailable", "error", err)
			return lipgloss.NewStyle().Width(width).Render(text)
		}
		m.renderer = r
		m.rendererWidth = width
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(text)
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// FOOTER
// =============================================================================

func (m Model) renderToasts() string {
	toasts := m.toasts.Toasts()
	if len(toasts) == 0 {
		return ""
	}
	width := m.width - 4
	if width > 60 {
		width = 60
	}
	return components.RenderToastStack(toasts, width)
}

// renderActions shows the chips, or the spinner while a reply is pending.
func (m Model) renderActions() string {
	if m.snap.Pending {
		return m.theme.PendingTurn.Render(m.spinner.View() + " " +
			m.theme.ThinkingText.Render("Waiting for the agent... (esc to cancel)"))
	}
	if m.snap.ActionPhase != chat.ActionsPopulated {
		return ""
	}
	return components.RenderChips(m.theme, m.snap.Actions, m.selected, m.width)
}

func (m Model) renderInput() string {
	lines := []string{}
	if m.attached != nil {
		lines = append(lines, m.theme.Attachment.Render(fmt.Sprintf("[file] %s (%s)  ctrl+x to remove",
			m.attached.FileName, attachment.FormatSize(m.attached.Size))))
	}
	lines = append(lines, m.input.View())
	width := m.width - m.theme.InputContainer.GetHorizontalFrameSize()
	if width < 10 {
		width = 10
	}
	return m.theme.InputContainer.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	left := strings.Join(parts, "  ")

	upload := m.theme.UploadOff.Render("upload off")
	if m.snap.Settings.FileUploadEnabled {
		upload = m.theme.UploadOn.Render("upload on")
	}
	right := upload + "  " + m.theme.ShortcutDesc.Render(fmt.Sprintf("timeout %ds", m.snap.Settings.TimeoutSeconds))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Narrow terminals keep only the settings summary.
		return m.theme.StatusBar.Width(m.width).Render(right)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELPERS
// =============================================================================

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func endpointHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
