// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot message command.
//
// Command: ask "message" [--file PATH]
//
// Examples:
//   agentchat ask "What can you do?"
//   agentchat ask "Summarize this" --file notes.txt
//   agentchat ask "Hello" --json
//
// The reply is rendered as markdown on a terminal and printed plain when
// piped. Suggested actions follow, numbered, unless --quiet is given.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/agentchat/internal/agent"
	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/chat"
)

// AskData is the --json payload of the ask command.
type AskData struct {
	SessionID  string   `json:"session_id"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Actions    []string `json:"actions"`
	Shape      string   `json:"shape,omitempty"`
	Defaulted  bool     `json:"defaulted,omitempty"`
	Attachment string   `json:"attachment,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// HandleAsk sends one message and prints the reply.
func HandleAsk(ctx context.Context, env Env, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" && args.File == "" {
		return NewUsageError("ask requires a message or --file")
	}

	h, err := OpenStore(args, env.logger())
	if err != nil {
		return err
	}
	defer h.Close()

	ctrl := NewController(env, args, h, nil)
	return runAsk(ctx, env, args, ctrl, query)
}

// NewController builds a controller with the agent client and logger used
// by every command. onNotice may be nil.
func NewController(env Env, args Args, h *StoreHandle, onNotice func(chat.Notice), opts ...chat.Option) *chat.Controller {
	client := agent.NewClient(
		agent.WithUserAgent(UserAgent()),
		agent.WithLogger(env.logger()),
	)
	base := []chat.Option{
		chat.WithTransport(client),
		chat.WithLogger(env.logger()),
	}
	if onNotice != nil {
		base = append(base, chat.WithNoticeHandler(onNotice))
	}
	return chat.New(h.Store, append(base, opts...)...)
}

func runAsk(ctx context.Context, env Env, args Args, ctrl *chat.Controller, query string) error {
	var att *attachment.Attachment
	if args.File != "" {
		a, err := attachment.Open(expandHome(args.File))
		if err != nil {
			return err
		}
		if !ctrl.Settings().FileUploadEnabled {
			return fmt.Errorf("%w: enable it with 'agentchat config set upload on'", chat.ErrUploadDisabled)
		}
		if !a.IsText() && !args.Quiet && !args.JSON {
			fmt.Fprintln(env.Stderr, WarningStyle.Render(fmt.Sprintf(
				"[!] %s is sent by name and type only; the agent parses it.", a.FileName)))
		}
		att = a
	}

	start := time.Now()
	outcome, err := ctrl.Send(ctx, query, att)
	if err != nil {
		return err
	}

	data := AskData{
		SessionID:  ctrl.SessionID(),
		Status:     outcome.Status.String(),
		Message:    outcome.Reply.Message,
		Actions:    outcome.Reply.Actions,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if att != nil {
		data.Attachment = att.FileName
	}

	if outcome.Status != chat.StatusSucceeded {
		// The transcript holds the apology turn; surface it as the message.
		if turns := ctrl.Snapshot().Turns; len(turns) > 0 {
			if last := turns[len(turns)-1]; last.Failed {
				data.Message = last.Text
			}
		}
		if args.JSON {
			NewJSONErrorResponse("ask", outcome.Err, data).Print(env.Stdout)
			return &ReportedError{Err: outcome.Err}
		}
		return outcome.Err
	}

	data.Shape = outcome.Reply.Source.String()
	data.Defaulted = outcome.Reply.Defaulted

	if args.JSON {
		return NewJSONResponse("ask", data).Print(env.Stdout)
	}
	printReply(env.Stdout, data.Message)
	if !args.Quiet {
		printActions(env.Stdout, data.Actions)
	}
	return nil
}

// printReply writes an agent reply, rendered when stdout is a terminal.
func printReply(w io.Writer, message string) {
	fmt.Fprintln(w, renderMarkdown(message))
}

// printActions writes the suggested actions as a numbered list.
func printActions(w io.Writer, actions []string) {
	if len(actions) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Suggested:"))
	for i, a := range actions {
		fmt.Fprintf(w, "  %s %s\n", DimStyle.Render(fmt.Sprintf("%d.", i+1)), actionStyle.Render(a))
	}
}
