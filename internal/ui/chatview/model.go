// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/chat"
	"github.com/jeranaias/agentchat/internal/ui/components"
	"github.com/jeranaias/agentchat/internal/ui/styles"
)

const (
	messagePrompt = "> "
	attachPrompt  = "Attach file: "
)

// Options configures the chat window.
type Options struct {
	// Greet fetches starting actions from the endpoint on open.
	Greet bool

	// GlamourStyle names a glamour standard style ("dark", "light",
	// "notty"). Empty selects one from the terminal background.
	GlamourStyle string

	Theme  *styles.Theme
	Logger *slog.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat window. It holds no chat state
// of its own: every frame is drawn from a controller Snapshot.
type Model struct {
	ctx    context.Context
	ctrl   *chat.Controller
	bridge *Bridge
	opts   Options
	theme  *styles.Theme
	keys   KeyMap
	logger *slog.Logger

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	toasts   *components.ToastManager

	snap      chat.Snapshot
	turnCount int
	selected  int // suggested action under the cursor, -1 for none

	attaching bool
	draft     string // message text parked while the attach prompt is open
	attached  *attachment.Attachment

	renderer      *glamour.TermRenderer
	rendererWidth int
}

// New creates the chat window for ctrl. The controller must have been
// built with bridge's Notice and Changed methods as its handlers.
func New(ctx context.Context, ctrl *chat.Controller, bridge *Bridge, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = messagePrompt
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	// ASCII frames render on every terminal
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	sp.Style = theme.Spinner

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		bridge:   bridge,
		opts:     opts,
		theme:    theme,
		keys:     DefaultKeyMap(),
		logger:   logger,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		toasts:   components.NewToastManager(),
		selected: -1,
	}
	m.refresh()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the event listeners and, if enabled, the greeting fetch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		m.bridge.listen(),
		components.ToastTickCmd(),
	}
	if m.opts.Greet {
		ctx, ctrl := m.ctx, m.ctrl
		cmds = append(cmds, func() tea.Msg {
			return greetDoneMsg{err: ctrl.Greet(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case stateChangedMsg:
		m.refresh()
		return m, m.bridge.listen()

	case noticeMsg:
		m.toasts.Add(toastFromNotice(msg.notice))
		m.layout()
		return m, m.bridge.listen()

	case exchangeDoneMsg:
		m.logger.Debug("exchange finished", "status", msg.outcome.Status.String())
		m.refresh()
		return m, nil

	case greetDoneMsg:
		if msg.err != nil {
			m.logger.Debug("greeting failed", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case components.ToastTickMsg:
		before := len(m.toasts.Toasts())
		if len(m.toasts.Tick()) != before {
			m.layout()
		}
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the window.
func (m Model) View() string {
	if !m.ready {
		return "Starting agentchat..."
	}
	return m.render()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.theme.SetSize(m.width, m.height)

	inputWidth := m.width - 4 - len(attachPrompt)
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keys.Cancel):
		return m.cancel()

	case key.Matches(msg, m.keys.Attach):
		return m.startAttach()

	case key.Matches(msg, m.keys.Detach):
		if m.attached != nil {
			m.toasts.Add(components.NewToast(components.ToastKindStatus, "", "Removed "+m.attached.FileName+"."))
			m.attached = nil
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextChip) && !m.attaching:
		m.cycleChip(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevChip) && !m.attaching:
		m.cycleChip(-1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		switch {
		case m.attaching:
			return m.finishAttach()
		case m.selected >= 0:
			return m.pickChip()
		default:
			return m.send()
		}
	}

	// Typing leaves the chip row.
	if m.selected >= 0 {
		m.selected = -1
		m.layout()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) send() (tea.Model, tea.Cmd) {
	ex, err := m.ctrl.Begin(m.input.Value(), m.attached)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return m, nil
	case errors.Is(err, chat.ErrRequestPending):
		m.toasts.Add(components.NewToast(components.ToastKindStatus, "",
			"Still waiting for the agent. Press Esc to cancel."))
		m.layout()
		return m, nil
	case errors.Is(err, chat.ErrUploadDisabled):
		m.toasts.Add(components.NewToast(components.ToastKindWarning, "File upload disabled",
			"Enable file upload in settings to send attachments."))
		m.attached = nil
		m.layout()
		return m, nil
	case err != nil:
		m.toasts.Add(components.NewToast(components.ToastKindError, "Error", err.Error()))
		m.layout()
		return m, nil
	}

	m.input.Reset()
	m.attached = nil
	m.selected = -1
	m.refresh()

	ctx := m.ctx
	return m, func() tea.Msg {
		return exchangeDoneMsg{outcome: ex.Run(ctx)}
	}
}

func (m Model) cancel() (tea.Model, tea.Cmd) {
	switch {
	case m.attaching:
		m.endAttach()
	case m.selected >= 0:
		m.selected = -1
	case m.snap.Pending:
		m.ctrl.Cancel()
	default:
		m.toasts.DismissNewest()
	}
	m.layout()
	return m, nil
}

func (m Model) newChat() (tea.Model, tea.Cmd) {
	m.ctrl.NewChat()
	m.attached = nil
	m.selected = -1
	if m.attaching {
		m.endAttach()
	}
	m.input.Reset()
	m.toasts.Add(components.NewToast(components.ToastKindStatus, "", "Started a new chat."))
	m.refresh()
	return m, nil
}

func (m *Model) cycleChip(step int) {
	n := len(m.snap.Actions)
	if n == 0 {
		m.selected = -1
		return
	}
	switch {
	case m.selected < 0 && step > 0:
		m.selected = 0
	case m.selected < 0:
		m.selected = n - 1
	default:
		m.selected = (m.selected + step + n) % n
	}
	m.layout()
}

// pickChip fills the input with the selected action. It never sends.
func (m Model) pickChip() (tea.Model, tea.Cmd) {
	value, err := m.ctrl.ChooseAction(m.selected)
	m.selected = -1
	if err == nil {
		m.input.SetValue(value)
		m.input.CursorEnd()
	}
	m.layout()
	return m, nil
}

func (m Model) startAttach() (tea.Model, tea.Cmd) {
	if m.attaching {
		return m, nil
	}
	if !m.snap.Settings.FileUploadEnabled {
		m.toasts.Add(components.NewToast(components.ToastKindWarning, "File upload disabled",
			"Enable file upload in settings to attach files."))
		m.layout()
		return m, nil
	}
	m.attaching = true
	m.selected = -1
	m.draft = m.input.Value()
	m.input.Reset()
	m.input.Prompt = attachPrompt
	m.input.Placeholder = "path to .txt, .pdf, .doc or .docx"
	m.layout()
	return m, nil
}

func (m Model) finishAttach() (tea.Model, tea.Cmd) {
	path := expandHome(strings.TrimSpace(m.input.Value()))
	m.endAttach()
	if path != "" {
		// Rejections arrive as notices through the bridge.
		if att, err := m.ctrl.Attach(path); err == nil {
			m.attached = att
		}
	}
	m.layout()
	return m, nil
}

func (m *Model) endAttach() {
	m.attaching = false
	m.input.Prompt = messagePrompt
	m.input.Placeholder = "Type a message..."
	m.input.SetValue(m.draft)
	m.input.CursorEnd()
	m.draft = ""
}

// =============================================================================
// STATE SYNC
// =============================================================================

// refresh pulls a new snapshot and redraws the transcript. The view
// follows new turns but leaves a scrolled-up reader alone otherwise.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()
	if m.selected >= len(m.snap.Actions) {
		m.selected = -1
	}

	follow := m.viewport.AtBottom() || len(m.snap.Turns) != m.turnCount
	m.turnCount = len(m.snap.Turns)

	m.layout()
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// layout sizes the viewport to what the fixed sections leave over.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	reserved := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatusBar())
	if s := m.renderToasts(); s != "" {
		reserved += lipgloss.Height(s)
	}
	if s := m.renderActions(); s != "" {
		reserved += lipgloss.Height(s)
	}

	h := m.height - reserved
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// =============================================================================
// HELPERS
// =============================================================================

func toastFromNotice(n chat.Notice) components.Toast {
	kind := components.ToastKindStatus
	switch n.Kind {
	case chat.NoticeSuccess:
		kind = components.ToastKindSuccess
	case chat.NoticeWarning, chat.NoticeTimeout:
		kind = components.ToastKindWarning
	case chat.NoticeError:
		kind = components.ToastKindError
	}
	return components.NewToast(kind, n.Title, n.Message)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
