// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/agentchat/internal/agent"
	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/model"
	"github.com/jeranaias/agentchat/internal/session"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Transport sends requests to the agent endpoint. *agent.Client implements it.
type Transport interface {
	Send(ctx context.Context, endpoint string, req agent.Request) ([]byte, error)
	FetchActions(ctx context.Context, endpoint, sessionID string) ([]byte, error)
}

// SettingsStore provides and persists settings. *config.Store implements it.
type SettingsStore interface {
	Current() config.Settings
	Save(candidate config.Candidate) (config.Settings, error)
	Reload() config.Settings
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one chat session: its transcript, suggested actions,
// identity and the single in-flight request. Safe for concurrent use; the
// network call runs without the lock held.
type Controller struct {
	mu sync.Mutex

	store    SettingsStore
	client   Transport
	sessions *session.Manager

	conv     *model.Conversation
	actions  ActionState
	pending  bool
	exchange *Exchange

	onNotice func(Notice)
	onChange func()
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithTransport replaces the default agent client.
func WithTransport(t Transport) Option {
	return func(c *Controller) { c.client = t }
}

// WithSessionManager replaces the default session manager.
func WithSessionManager(m *session.Manager) Option {
	return func(c *Controller) { c.sessions = m }
}

// WithNoticeHandler receives every notice. Called without the controller
// lock held, possibly from the goroutine running an exchange.
func WithNoticeHandler(fn func(Notice)) Option {
	return func(c *Controller) { c.onNotice = fn }
}

// WithChangeHandler is called after any state change, without the lock held.
func WithChangeHandler(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a controller with a fresh session and the default actions.
func New(store SettingsStore, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		conv:    model.NewConversation(),
		actions: NewActionState(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = agent.NewClient(agent.WithLogger(c.logger))
	}
	if c.sessions == nil {
		c.sessions = session.NewManager()
	}
	c.logger.Info("chat session started", "session", c.sessions.SessionID())
	return c
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	SessionID   string
	Turns       []model.Turn
	Actions     []string
	ActionPhase ActionPhase
	Pending     bool
	Settings    config.Settings
	Started     time.Time
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SessionID:   c.sessions.SessionID(),
		Turns:       c.conv.Turns(),
		Actions:     c.actions.Labels(),
		ActionPhase: c.actions.Phase(),
		Pending:     c.pending,
		Settings:    c.store.Current(),
		Started:     c.sessions.StartTime(),
	}
}

// SessionID returns the current session token.
func (c *Controller) SessionID() string {
	return c.sessions.SessionID()
}

// SessionStatus returns identity details for display.
func (c *Controller) SessionStatus() session.Status {
	return c.sessions.GetStatus()
}

// Pending reports whether a request is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Settings returns the running settings.
func (c *Controller) Settings() config.Settings {
	return c.store.Current()
}

// ChooseAction returns the value of suggested action i for the input field.
// It never sends anything.
func (c *Controller) ChooseAction(i int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	labels := c.actions.Labels()
	if i < 0 || i >= len(labels) {
		return "", fmt.Errorf("%w: %d", ErrNoSuchAction, i+1)
	}
	return labels[i], nil
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewChat starts a fresh session: new identity, empty transcript, default
// actions. An in-flight request is cancelled and its reply discarded.
func (c *Controller) NewChat() string {
	c.mu.Lock()
	if ex := c.exchange; ex != nil {
		ex.cancelMgr.cancel()
		c.exchange = nil
		c.pending = false
	}
	old := c.sessions.SessionID()
	id := c.sessions.Regenerate()
	c.conv.Clear()
	c.actions.Reset()
	c.mu.Unlock()

	c.logger.Info("new chat", "session", id, "previous", old)
	c.dispatch()
	return id
}

// Greet asks the endpoint for starting actions. They replace the defaults
// only if the chat is still untouched when the reply arrives. Failures keep
// the defaults and are returned for logging only.
func (c *Controller) Greet(ctx context.Context) error {
	c.mu.Lock()
	if c.pending || !c.conv.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	gen := c.sessions.Generation()
	id := c.sessions.SessionID()
	settings := c.store.Current()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout())
	defer cancel()

	body, err := c.client.FetchActions(ctx, settings.EndpointURL, id)
	if err != nil {
		c.logger.Debug("initial actions unavailable", "error", err)
		return err
	}
	r, err := agent.Decode(body)
	if err != nil {
		c.logger.Debug("initial actions unreadable", "error", err)
		return err
	}

	var actions []string
	for _, env := range []*agent.Envelope{r.Top, r.Output} {
		if env != nil && len(env.Actions) > 0 {
			actions = env.Actions
			break
		}
	}
	if len(actions) == 0 {
		return nil
	}

	c.mu.Lock()
	applied := gen == c.sessions.Generation() && c.conv.IsEmpty() && !c.pending
	if applied {
		c.actions.Populate(actions)
	}
	c.mu.Unlock()

	if applied {
		c.dispatch()
	}
	return nil
}

// Cancel aborts the in-flight request. Returns false if none is pending.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	ex := c.exchange
	c.mu.Unlock()
	if ex == nil {
		return false
	}
	ex.cancelMgr.cancel()
	return true
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attach selects a file for the next message. Rejections emit a notice and
// change nothing. Non-text files are accepted with a warning that only
// their name and type are sent.
func (c *Controller) Attach(path string) (*attachment.Attachment, error) {
	if !c.store.Current().FileUploadEnabled {
		c.dispatch(newNotice(NoticeWarning, "File upload disabled", "Enable file upload in settings to attach files."))
		return nil, ErrUploadDisabled
	}

	att, err := attachment.Open(path)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, attachment.ErrUnsupportedType) {
			msg = "Unsupported file type. Please select a .txt, .pdf, .doc or .docx file."
		}
		c.dispatch(newNotice(NoticeError, "Cannot attach file", msg))
		return nil, err
	}

	if !att.IsText() {
		c.dispatch(newNotice(NoticeWarning, "Attached "+att.FileName,
			"Only text files are read locally. This file is sent by name and type and parsed by the agent."))
	}
	return att, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveSettings validates and persists candidate. Invalid input is reported
// as a notice and returned; nothing changes. Requests already in flight
// keep the settings they started with.
func (c *Controller) SaveSettings(candidate config.Candidate) error {
	settings, err := c.store.Save(candidate)
	if err != nil {
		var verrs config.ValidateErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, v := range verrs {
				msgs = append(msgs, v.Message)
			}
			c.dispatch(newNotice(NoticeError, "Invalid settings", strings.Join(msgs, "; ")))
		} else {
			c.dispatch(newNotice(NoticeError, "Settings not saved", err.Error()))
		}
		return err
	}

	c.logger.Info("settings updated", "endpoint", settings.EndpointURL, "timeout_seconds", settings.TimeoutSeconds)
	c.dispatch(newNotice(NoticeSuccess, "Settings", "Settings saved successfully."))
	return nil
}

// ReloadSettings re-reads persisted settings after an external edit. A
// reload that changes nothing (e.g. our own save) is silent.
func (c *Controller) ReloadSettings() {
	before := c.store.Current()
	s := c.store.Reload()
	if s == before {
		c.logger.Debug("settings file touched, nothing changed")
		return
	}
	c.logger.Info("settings reloaded", "endpoint", s.EndpointURL, "timeout_seconds", s.TimeoutSeconds)
	c.dispatch(newNotice(NoticeInfo, "Settings", "Settings reloaded from disk."))
}

// =============================================================================
// HELPERS
// =============================================================================

// dispatch delivers notices then a change signal. Must not hold c.mu.
func (c *Controller) dispatch(notices ...Notice) {
	if c.onNotice != nil {
		for _, n := range notices {
			c.onNotice(n)
		}
	}
	if c.onChange != nil {
		c.onChange()
	}
}

// userTurnText is what the transcript shows for an outgoing message.
func userTurnText(text string, att *attachment.Attachment) string {
	if att == nil {
		return text
	}
	suffix := "[Attached: " + att.FileName + "]"
	if text == "" {
		return suffix
	}
	return text + "\n" + suffix
}
