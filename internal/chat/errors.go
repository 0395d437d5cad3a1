// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/agentchat/internal/session"
)

// Send preconditions. A rejected send changes no state.
var (
	// ErrEmptyInput is returned when the text is blank and nothing is attached.
	ErrEmptyInput = errors.New("nothing to send")

	// ErrRequestPending is returned while a previous request is in flight.
	ErrRequestPending = errors.New("a request is already pending")

	// ErrUploadDisabled is returned when a file is attached with uploads off.
	ErrUploadDisabled = errors.New("file upload is disabled")

	// ErrCancelled is the outcome error of a user-cancelled request.
	ErrCancelled = errors.New("request cancelled")

	// ErrSuperseded is the outcome error of a request whose chat was
	// replaced by a new one before it finished.
	ErrSuperseded = errors.New("chat was replaced before the reply arrived")

	// ErrNoSuchAction is returned by ChooseAction for an out-of-range index.
	ErrNoSuchAction = errors.New("no such suggested action")
)

// TimeoutError reports that the agent did not answer within the configured
// response timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response from the agent within %s", session.FormatDuration(e.Timeout))
}

// Unwrap lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// NetworkError wraps a transport failure, a non-2xx status or an unreadable
// reply body.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports that an attachment could not be read before sending.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
