// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat command.
//
// Command: chat
//
// Interactive Commands:
//   /new                Start a new chat (new session id)
//   /attach PATH        Attach a file to the next message
//   /detach             Remove the attached file
//   /actions            List the suggested actions
//   /pick N             Put action N into the next prompt for editing
//   /settings           Show settings
//   /set KEY VALUE      Change a setting (endpoint, upload, timeout)
//   /status             Show session information
//   /history            Show the transcript
//   /help               Show available commands
//   /quit, /q           Exit
//   Ctrl+C              Cancel the request in flight, or exit at the prompt
//   Ctrl+D              Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/chat"
	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/model"
	"github.com/jeranaias/agentchat/internal/session"
	"github.com/jeranaias/agentchat/internal/ui/styles"
	"github.com/jeranaias/agentchat/internal/util"
)

// historyFileName is the REPL input history, kept in the config directory.
const historyFileName = "chat_history"

// =============================================================================
// INPUT
// =============================================================================

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
	AppendHistory(item string)
}

// ChatCLI provides input history and line editing for line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from disk.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, historyFileName)}

	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// Prompt reads a line.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// PromptWithSuggestion reads a line with text pre-filled for editing.
func (c *ChatCLI) PromptWithSuggestion(prompt, text string, pos int) (string, error) {
	return c.line.PromptWithSuggestion(prompt, text, pos)
}

// AppendHistory records a line for arrow-key recall.
func (c *ChatCLI) AppendHistory(item string) {
	c.line.AppendHistory(item)
}

// Close saves history (owner read/write only) and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs line-mode chat until the user quits.
func HandleChat(ctx context.Context, env Env, args Args) error {
	h, err := OpenStore(args, env.logger())
	if err != nil {
		return err
	}
	defer h.Close()

	r := &repl{env: env, args: args}
	r.ctrl = NewController(env, args, h, r.printNotice)

	if w, err := h.Watch(ctx, r.ctrl.ReloadSettings); err != nil {
		env.logger().Warn("settings watcher unavailable", "error", err)
	} else if w != nil {
		defer w.Close()
	}

	input := NewChatCLI()
	defer input.Close()
	r.input = input

	// Ctrl+C outside the prompt cancels the request in flight. At the
	// prompt liner reports it as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			r.ctrl.Cancel()
		}
	}()

	return r.run(ctx)
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	env   Env
	args  Args
	ctrl  *chat.Controller
	input lineReader

	attached   *attachment.Attachment
	suggestion string // pre-filled text for the next prompt
}

func (r *repl) run(ctx context.Context) error {
	if !r.args.Quiet {
		r.printWelcome()
	}
	if r.args.Greet {
		if err := r.ctrl.Greet(ctx); err == nil && !r.args.Quiet {
			r.printActions()
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.readLine()
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or closed input
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.env.Stdout)
				r.printSummary()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.input.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				r.printSummary()
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			r.printSummary()
			return nil
		}

		r.send(ctx, line)
	}
}

func (r *repl) readLine() (string, error) {
	prompt := promptStyle.Render("you> ")
	if r.attached != nil {
		prompt = promptStyle.Render("you [" + r.attached.FileName + "]> ")
	}
	if r.suggestion != "" {
		text := r.suggestion
		r.suggestion = ""
		return r.input.PromptWithSuggestion(prompt, text, -1)
	}
	return r.input.Prompt(prompt)
}

// send runs one exchange and prints its result.
func (r *repl) send(ctx context.Context, text string) {
	if !r.args.Quiet {
		fmt.Fprintln(r.env.Stderr, DimStyle.Render("Waiting for the agent... (Ctrl+C to cancel)"))
	}

	outcome, err := r.ctrl.Send(ctx, text, r.attached)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case errors.Is(err, chat.ErrUploadDisabled):
		r.printError(fmt.Errorf("%w; /detach or '/set upload on'", err))
		return
	case err != nil:
		r.printError(err)
		return
	}

	switch outcome.Status {
	case chat.StatusSucceeded:
		r.attached = nil
		fmt.Fprintln(r.env.Stdout, agentLabelStyle.Render("agent>"))
		printReply(r.env.Stdout, outcome.Reply.Message)
		if !r.args.Quiet {
			r.printActions()
		}
	case chat.StatusCancelled:
		r.attached = nil
		fmt.Fprintln(r.env.Stderr, WarningStyle.Render("[Cancelled]"))
	case chat.StatusReadFailed:
		// The message was never sent; keep the text for another try.
		r.suggestion = text
	case chat.StatusStale:
	default:
		r.attached = nil
		if last, ok := r.lastTurn(); ok && last.Failed {
			fmt.Fprintln(r.env.Stdout, agentLabelStyle.Render("agent>")+" "+WarningStyle.Render(last.Text))
		}
	}
}

func (r *repl) lastTurn() (model.Turn, bool) {
	turns := r.ctrl.Snapshot().Turns
	if len(turns) == 0 {
		return model.Turn{}, false
	}
	return turns[len(turns)-1], true
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command and reports whether to quit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		r.printHelp()

	case "/new", "/clear":
		id := r.ctrl.NewChat()
		r.attached = nil
		r.suggestion = ""
		fmt.Fprintln(r.env.Stdout, InfoStyle.Render("Started a new chat ("+shortSessionID(id)+")."))

	case "/attach":
		if rest == "" {
			r.printError(errors.New("usage: /attach PATH"))
			return false
		}
		// Rejections are reported through notices.
		if att, err := r.ctrl.Attach(expandHome(rest)); err == nil {
			r.attached = att
			fmt.Fprintln(r.env.Stdout, InfoStyle.Render(fmt.Sprintf("Attached %s (%s).", att.FileName, attachment.FormatSize(att.Size))))
		}

	case "/detach":
		if r.attached == nil {
			fmt.Fprintln(r.env.Stdout, DimStyle.Render("No file attached."))
			return false
		}
		fmt.Fprintln(r.env.Stdout, InfoStyle.Render("Removed "+r.attached.FileName+"."))
		r.attached = nil

	case "/actions":
		r.printActions()

	case "/pick":
		n, err := strconv.Atoi(rest)
		if err != nil {
			r.printError(errors.New("usage: /pick N"))
			return false
		}
		value, err := r.ctrl.ChooseAction(n - 1)
		if err != nil {
			r.printError(fmt.Errorf("no suggested action %d", n))
			return false
		}
		r.suggestion = value

	case "/settings", "/config":
		r.printSettings()

	case "/set":
		r.set(fields[1:])

	case "/status", "/s":
		r.printStatus()

	case "/history":
		r.printHistory()

	default:
		r.printError(fmt.Errorf("unknown command %s (try /help)", name))
	}
	return false
}

func (r *repl) set(args []string) {
	if len(args) < 2 {
		r.printError(errors.New("usage: /set endpoint|upload|timeout VALUE"))
		return
	}
	candidate := config.CandidateFrom(r.ctrl.Settings())
	if err := candidate.Set(args[0], strings.Join(args[1:], " ")); err != nil {
		r.printError(err)
		return
	}
	// Success and validation failures arrive as notices.
	_ = r.ctrl.SaveSettings(candidate)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printNotice(n chat.Notice) {
	var line string
	switch n.Kind {
	case chat.NoticeSuccess:
		if r.args.Quiet {
			return
		}
		line = SuccessStyle.Render(styles.StatusIndicators.Success)
	case chat.NoticeError:
		line = ErrorStyle.Render(styles.StatusIndicators.Error)
	case chat.NoticeWarning, chat.NoticeTimeout:
		line = WarningStyle.Render(styles.StatusIndicators.Warning)
	default:
		if r.args.Quiet {
			return
		}
		line = InfoStyle.Render(styles.StatusIndicators.Info)
	}
	if n.Title != "" {
		line += " " + n.Title + ":"
	}
	fmt.Fprintln(r.env.Stderr, line+" "+n.Message)
}

func (r *repl) printError(err error) {
	fmt.Fprintln(r.env.Stderr, ErrorStyle.Render("[Error]")+" "+err.Error())
}

func (r *repl) printWelcome() {
	s := r.ctrl.Settings()
	fmt.Fprintln(r.env.Stdout, TitleStyle.Render("agentchat")+" "+DimStyle.Render(Version))
	fmt.Fprintln(r.env.Stdout, DimStyle.Render("Endpoint: "+s.EndpointURL))
	fmt.Fprintln(r.env.Stdout, DimStyle.Render("Type a message, /help for commands, Ctrl+D to exit."))
	r.printActions()
}

func (r *repl) printActions() {
	snap := r.ctrl.Snapshot()
	if snap.ActionPhase != chat.ActionsPopulated {
		return
	}
	fmt.Fprintln(r.env.Stdout)
	fmt.Fprintln(r.env.Stdout, DimStyle.Render("Suggested (/pick N):"))
	for i, a := range snap.Actions {
		fmt.Fprintf(r.env.Stdout, "  %s %s\n", DimStyle.Render(fmt.Sprintf("%d.", i+1)), actionStyle.Render(a))
	}
	fmt.Fprintln(r.env.Stdout)
}

func (r *repl) printSettings() {
	s := r.ctrl.Settings()
	for _, key := range config.Keys() {
		val, _ := s.Get(key)
		fmt.Fprintf(r.env.Stdout, "  %s%s\n", LabelStyle.Render(key), ValueStyle.Render(val))
	}
}

func (r *repl) printStatus() {
	st := r.ctrl.SessionStatus()
	snap := r.ctrl.Snapshot()
	rows := [][2]string{
		{"session", st.SessionID},
		{"duration", session.FormatDuration(st.Duration)},
		{"idle", session.FormatDuration(st.IdleTime)},
		{"turns", strconv.Itoa(len(snap.Turns))},
		{"endpoint", snap.Settings.EndpointURL},
	}
	if r.attached != nil {
		rows = append(rows, [2]string{"attached", r.attached.String()})
	}
	for _, row := range rows {
		fmt.Fprintf(r.env.Stdout, "  %s%s\n", LabelStyle.Render(row[0]), ValueStyle.Render(row[1]))
	}
}

func (r *repl) printHistory() {
	turns := r.ctrl.Snapshot().Turns
	if len(turns) == 0 {
		fmt.Fprintln(r.env.Stdout, DimStyle.Render("No messages yet."))
		return
	}
	width := GetTerminalWidth() - 20
	for i := range turns {
		t := &turns[i]
		label := util.TruncateWidth(t.Sender.DisplayName(), 6)
		fmt.Fprintf(r.env.Stdout, "  %-6s %s  %s\n", label,
			DimStyle.Render(t.Timestamp.Format("15:04")),
			util.TruncateWidth(util.FirstLine(t.Text), width))
	}
}

func (r *repl) printSummary() {
	if r.args.Quiet {
		return
	}
	st := r.ctrl.SessionStatus()
	fmt.Fprintln(r.env.Stdout, DimStyle.Render(fmt.Sprintf("Session %s ended after %s.",
		shortSessionID(st.SessionID), session.FormatDuration(st.Duration))))
}

func (r *repl) printHelp() {
	fmt.Fprint(r.env.Stdout, `Commands:
  /new                Start a new chat
  /attach PATH        Attach a file to the next message
  /detach             Remove the attached file
  /actions            List the suggested actions
  /pick N             Edit suggested action N before sending
  /settings           Show settings
  /set KEY VALUE      Change a setting (endpoint, upload, timeout)
  /status             Show session information
  /history            Show the transcript
  /quit               Exit
Ctrl+C cancels a request in flight.
`)
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
