// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/agentchat/internal/agent"
	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/model"
	"github.com/jeranaias/agentchat/internal/session"
	"github.com/jeranaias/agentchat/internal/util"
)

// errTimedOut is the cancellation cause set by the response timer, which
// separates a timeout from a user cancel on the same context chain.
var errTimedOut = errors.New("response timeout elapsed")

// =============================================================================
// OUTCOME
// =============================================================================

// Status is how an exchange ended.
type Status int

const (
	StatusSucceeded Status = iota
	StatusTimedOut
	StatusFailed
	StatusReadFailed
	StatusCancelled
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusTimedOut:
		return "timed out"
	case StatusFailed:
		return "failed"
	case StatusReadFailed:
		return "attachment read failed"
	case StatusCancelled:
		return "cancelled"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Outcome reports how an exchange ended. Err is nil on success and is one
// of *TimeoutError, *NetworkError, *ParseError, ErrCancelled or
// ErrSuperseded otherwise. Every failure has already been recorded in the
// transcript and surfaced as a notice.
type Outcome struct {
	Status Status
	Err    error
	Reply  agent.Result
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Exchange is one message on its way to the agent. It is created by Begin,
// which has already shown the user turn and set the pending flag, and is
// finished by Run.
type Exchange struct {
	c *Controller

	text       string
	att        *attachment.Attachment
	turnID     string
	sessionID  string
	generation int
	settings   config.Settings

	cancelMgr *cancelManager
	once      sync.Once
	outcome   Outcome
}

// Send delivers one message and waits for the reply. It is Begin followed
// by Run; the returned error is only a rejected precondition.
func (c *Controller) Send(ctx context.Context, text string, att *attachment.Attachment) (Outcome, error) {
	ex, err := c.Begin(text, att)
	if err != nil {
		return Outcome{}, err
	}
	return ex.Run(ctx), nil
}

// Begin checks the send preconditions and, if they hold, appends the user
// turn, clears the suggested actions and marks the session pending. It does
// no I/O, so a UI can render the optimistic turn before calling Run.
func (c *Controller) Begin(text string, att *attachment.Attachment) (*Exchange, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" && att == nil {
		c.mu.Unlock()
		return nil, ErrEmptyInput
	}
	if c.pending {
		c.mu.Unlock()
		return nil, ErrRequestPending
	}
	settings := c.store.Current()
	if att != nil && !settings.FileUploadEnabled {
		c.mu.Unlock()
		return nil, ErrUploadDisabled
	}

	turn := c.conv.Begin(model.SenderUser, userTurnText(text, att))
	if att != nil {
		turn.AttachmentName = att.FileName
	}
	c.actions.Clear()
	c.pending = true

	ex := &Exchange{
		c:          c,
		text:       text,
		att:        att,
		turnID:     turn.ID,
		sessionID:  c.sessions.SessionID(),
		generation: c.sessions.Generation(),
		settings:   settings,
		cancelMgr:  newCancelManager(),
	}
	c.exchange = ex
	c.sessions.RecordActivity()
	c.mu.Unlock()

	c.dispatch()
	return ex, nil
}

// Run builds the request, sends it under the response timeout and records
// the result. The pending flag is cleared on every path. Calling Run again
// returns the first outcome.
func (ex *Exchange) Run(ctx context.Context) Outcome {
	ex.once.Do(func() {
		defer ex.c.finish(ex)
		ex.outcome = ex.run(ctx)
	})
	return ex.outcome
}

func (ex *Exchange) run(ctx context.Context) Outcome {
	c := ex.c
	log := c.logger.With("session", ex.sessionID)

	req, err := ex.buildRequest()
	if err != nil {
		return c.abortBeforeSend(ex, err)
	}
	if !c.commitUserTurn(ex) {
		return Outcome{Status: StatusStale, Err: ErrSuperseded}
	}

	userCtx, userCancel := context.WithCancel(ctx)
	ex.cancelMgr.setCancelFunc(userCancel)
	reqCtx, cancel := context.WithTimeoutCause(userCtx, ex.settings.Timeout(), errTimedOut)
	defer cancel()

	log.Debug("sending message", "endpoint", ex.settings.EndpointURL, "attachment", ex.att != nil)
	body, err := c.client.Send(reqCtx, ex.settings.EndpointURL, req)
	if err != nil {
		switch {
		case context.Cause(reqCtx) == errTimedOut:
			log.Warn("agent request timed out", "timeout", ex.settings.Timeout())
			return c.recoverFailure(ex, StatusTimedOut, &TimeoutError{Timeout: ex.settings.Timeout()})
		case ex.cancelMgr.wasCancelled():
			log.Info("agent request cancelled")
			return c.recoverFailure(ex, StatusCancelled, ErrCancelled)
		case userCtx.Err() != nil:
			// The caller's context ended (shutdown), not a user cancel.
			log.Info("agent request abandoned", "cause", context.Cause(ctx))
			return c.recoverFailure(ex, StatusCancelled, ErrCancelled)
		default:
			log.Warn("agent request failed", "error", err)
			return c.recoverFailure(ex, StatusFailed, &NetworkError{Err: err})
		}
	}

	res, err := agent.NormalizeJSON(body)
	if err != nil {
		log.Warn("agent reply unreadable", "error", err)
		return c.recoverFailure(ex, StatusFailed, &NetworkError{Err: err})
	}
	if res.Defaulted {
		log.Debug("agent reply had no message, using default")
	}
	return c.complete(ex, res)
}

// buildRequest reads a text attachment now, at send time.
func (ex *Exchange) buildRequest() (agent.Request, error) {
	var file *agent.File
	if ex.att != nil {
		file = &agent.File{Name: ex.att.FileName, Type: ex.att.MIMEType}
		if ex.att.IsText() {
			content, err := ex.att.ReadText()
			if err != nil {
				return agent.Request{}, &ParseError{FileName: ex.att.FileName, Err: err}
			}
			file.Content = content
		}
	}
	return agent.NewMessageRequest(ex.sessionID, ex.text, file), nil
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// current reports whether ex still belongs to the live session. Caller
// holds c.mu.
func (c *Controller) current(ex *Exchange) bool {
	return c.exchange == ex && c.sessions.Generation() == ex.generation
}

func (c *Controller) commitUserTurn(ex *Exchange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(ex) {
		return false
	}
	if err := c.conv.Commit(ex.turnID); err != nil {
		c.logger.Warn("user turn missing at commit", "error", err)
	}
	return true
}

// abortBeforeSend rolls back the optimistic user turn after an attachment
// read failure. Nothing reached the network.
func (c *Controller) abortBeforeSend(ex *Exchange, err error) Outcome {
	c.mu.Lock()
	if !c.current(ex) {
		c.mu.Unlock()
		return Outcome{Status: StatusStale, Err: ErrSuperseded}
	}
	if derr := c.conv.Discard(ex.turnID); derr != nil {
		c.logger.Warn("could not roll back user turn", "error", derr)
	}
	c.actions.Reset()
	c.pending = false
	c.mu.Unlock()

	c.logger.Warn("attachment read failed", "session", ex.sessionID, "error", err)
	c.dispatch(newNotice(NoticeError, "Attachment error", err.Error()))
	return Outcome{Status: StatusReadFailed, Err: err}
}

// recoverFailure records a failed request. Timeouts and errors leave a fixed
// agent turn; a cancel leaves only the notice.
func (c *Controller) recoverFailure(ex *Exchange, status Status, err error) Outcome {
	c.mu.Lock()
	if !c.current(ex) {
		c.mu.Unlock()
		return Outcome{Status: StatusStale, Err: ErrSuperseded}
	}

	var notice Notice
	switch status {
	case StatusTimedOut:
		c.appendFailedTurn(TimeoutReply)
		notice = newNotice(NoticeTimeout, "Request timed out",
			fmt.Sprintf("The agent did not respond within %s.", session.FormatDuration(ex.settings.Timeout())))
	case StatusCancelled:
		notice = newNotice(NoticeInfo, "Cancelled", "Request cancelled.")
	default:
		c.appendFailedTurn(ErrorReply)
		notice = newNotice(NoticeError, "Error", "Error sending message: "+util.TruncateRunes(err.Error(), 200))
	}
	c.actions.Reset()
	c.mu.Unlock()

	c.dispatch(notice)
	return Outcome{Status: status, Err: err}
}

func (c *Controller) appendFailedTurn(text string) {
	t := c.conv.Append(model.SenderAgent, text)
	t.Failed = true
}

func (c *Controller) complete(ex *Exchange, res agent.Result) Outcome {
	c.mu.Lock()
	if !c.current(ex) {
		c.mu.Unlock()
		return Outcome{Status: StatusStale, Err: ErrSuperseded, Reply: res}
	}
	c.conv.Append(model.SenderAgent, res.Message)
	c.actions.Populate(res.Actions)
	c.mu.Unlock()

	c.dispatch()
	return Outcome{Status: StatusSucceeded, Reply: res}
}

// finish clears the pending flag if ex is still the live exchange.
func (c *Controller) finish(ex *Exchange) {
	ex.cancelMgr.clear()

	c.mu.Lock()
	cleared := c.exchange == ex
	if cleared {
		c.exchange = nil
		c.pending = false
	}
	c.mu.Unlock()

	if cleared {
		c.dispatch()
	}
}
