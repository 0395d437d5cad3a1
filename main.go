// agentchat - a terminal chat client for AI agents behind a webhook.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jeranaias/agentchat/internal/chat"
	"github.com/jeranaias/agentchat/internal/cli"
	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/ui/chatview"
)

// logFileName is the structured log inside the config directory.
const logFileName = "agentchat.log"

func main() {
	// A missing .env is normal
	_ = godotenv.Load()

	os.Exit(execute(os.Args[1:]))
}

// execute parses argv, runs the command and returns the exit code. It
// returns instead of exiting so the log file is closed on every path.
func execute(argv []string) int {
	cmd, args, err := cli.ParseArgs(argv)
	if err != nil {
		cli.PrintError(os.Stderr, err)
		return cli.ExitCode(err)
	}

	logger, closeLog := setupLogging(args.Verbose)
	defer closeLog()
	slog.SetDefault(logger)

	return run(cmd, args, logger)
}

// run executes cmd and returns the process exit code.
func run(cmd cli.Command, args cli.Args, logger *slog.Logger) int {
	// Line-mode chat handles Ctrl+C itself (it cancels the request in
	// flight), so only SIGTERM ends it.
	signals := []os.Signal{os.Interrupt, syscall.SIGTERM}
	if cmd == cli.CmdChat {
		signals = []os.Signal{syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	env := cli.DefaultEnv(logger)
	logger.Debug("command started", "command", cmd.String(), "store", args.Store)

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI(ctx, env, args)
	case cli.CmdChat:
		err = cli.HandleChat(ctx, env, args)
	case cli.CmdAsk:
		err = cli.HandleAsk(ctx, env, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(env, args)
	case cli.CmdVersion:
		err = cli.HandleVersion(env, args)
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd.String(), "error", err)
		switch {
		case !args.JSON:
			cli.PrintError(os.Stderr, err)
		case !cli.IsReported(err):
			cli.NewJSONErrorResponse(cmd.String(), err, nil).Print(os.Stdout)
		}
		return cli.ExitCode(err)
	}
	return cli.ExitSuccess
}

// =============================================================================
// CHAT WINDOW
// =============================================================================

func runTUI(ctx context.Context, env cli.Env, args cli.Args) error {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return cli.NewUsageError("the chat window needs a terminal; use 'agentchat chat' or 'agentchat ask'")
	}

	h, err := cli.OpenStore(args, env.Logger)
	if err != nil {
		return err
	}
	defer h.Close()

	bridge := chatview.NewBridge()
	ctrl := cli.NewController(env, args, h, bridge.Notice, chat.WithChangeHandler(bridge.Changed))

	watcher, err := h.Watch(ctx, ctrl.ReloadSettings)
	if err != nil {
		env.Logger.Warn("settings watcher unavailable", "error", err)
	} else if watcher != nil {
		defer watcher.Close()
	}

	return chatview.Run(ctx, ctrl, bridge, chatview.Options{
		Greet:  args.Greet,
		Logger: env.Logger,
	})
}

// =============================================================================
// LOGGING
// =============================================================================

// setupLogging sends JSON logs to ~/.agentchat/agentchat.log. The terminal
// belongs to the UI, so logs never go to stdout or stderr.
func setupLogging(verbose bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	closeFn := func() {}

	if dir, err := config.Dir(); err == nil {
		if err := os.MkdirAll(dir, 0700); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err == nil {
				w = f
				closeFn = func() { f.Close() }
			} else {
				fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
			}
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return logger.With("pid", os.Getpid()), closeFn
}
