// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/jeranaias/agentchat/internal/agent"
	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/chat"
	"github.com/jeranaias/agentchat/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates an invalid setting or unusable settings store
	ExitConfigError = 3
	// ExitAuthError indicates the endpoint rejected the request
	ExitAuthError = 4
	// ExitNetworkError indicates the endpoint could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a missing file or endpoint
	ExitNotFoundError = 7
	// ExitTimeoutError indicates the agent did not answer in time
	ExitTimeoutError = 8
	// ExitCancelled indicates the user interrupted the command
	ExitCancelled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a usage error.
func NewUsageError(msg string) error {
	return &UsageError{Message: msg}
}

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "config")
	Action  string // Action being performed (e.g., "set")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// ReportedError marks an error whose JSON response was already written to
// stdout, so the caller must not print it again.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err already produced JSON output.
func IsReported(err error) bool {
	var r *ReportedError
	return errors.As(err, &r)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var verrs config.ValidateErrors
	var verr config.ValidationError
	var timeoutErr *chat.TimeoutError
	var netErr *chat.NetworkError

	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &verrs), errors.As(err, &verr), errors.Is(err, config.ErrUnknownFormat):
		return ExitConfigError
	case errors.As(err, &timeoutErr):
		return ExitTimeoutError
	case errors.Is(err, chat.ErrCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, agent.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, agent.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExitNotFoundError
	case errors.As(err, &netErr):
		return ExitNetworkError
	case errors.Is(err, chat.ErrUploadDisabled), errors.Is(err, attachment.ErrUnsupportedType):
		return ExitUsageError
	}
	return ExitGeneralError
}

// PrintError writes err to w in the CLI's error style. Usage errors get a
// pointer to help.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(w, DimStyle.Render("Run 'agentchat help' for usage."))
	}
}
