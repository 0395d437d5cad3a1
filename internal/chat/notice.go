// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// NoticeKind classifies a transient notification.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
	NoticeTimeout
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	case NoticeTimeout:
		return "timeout"
	default:
		return "info"
	}
}

// Notice is a transient message for the user (a toast in the TUI, a status
// line in the REPL).
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
	At      time.Time
}

func newNotice(kind NoticeKind, title, message string) Notice {
	return Notice{Kind: kind, Title: title, Message: message, At: time.Now()}
}

// Fixed agent turn texts for failed requests.
const (
	TimeoutReply = "Sorry, the agent took too long to respond. Please try again."
	ErrorReply   = "Sorry, I couldn't get a response from the agent. Please try again."
)
