// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands for
// agentchat.
//
// # Key Types
//
//   - Command: the command selected on the command line
//   - Args: parsed global and command-specific flags
//   - ArgParser: long/short flag parser shared by every command
//   - Env: output writers and logger handed to command handlers
//
// # Usage
//
//	cmd, args, err := cli.ParseArgs(os.Args[1:])
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(ctx, env, args)
//	case cli.CmdChat:
//	    err = cli.HandleChat(ctx, env, args)
//	}
//
// # Commands
//
//   - (none) / tui: full-screen chat window
//   - chat: line-mode chat with history
//   - ask: one message, reply printed to stdout
//   - config: show and change persisted settings
//   - version, help
//
// ask, config and version support --json.
package cli
