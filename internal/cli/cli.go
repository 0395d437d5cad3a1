// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (overridden at build time with -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// UserAgent is sent with every request to the agent endpoint.
func UserAgent() string {
	return "agentchat/" + Version
}

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Store kinds accepted by --store.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: settings file or database path
	Store      string // --store: file, sqlite or memory
	Endpoint   string // --endpoint: one-run endpoint override
	Timeout    int    // --timeout: one-run timeout override, 0 when unset
	Verbose    bool
	Quiet      bool
	JSON       bool
	Greet      bool // fetch starting actions from the endpoint

	// Command-specific
	Query      string // ask: message text
	File       string // ask: attachment path
	Subcommand string // config: show, set or path
	ConfigKey  string
	ConfigVal  string

	// Positional arguments after the command name
	Raw []string
}

// HasOverrides reports whether the command line overrides persisted
// settings for this run.
func (a Args) HasOverrides() bool {
	return a.Endpoint != "" || a.Timeout > 0
}

// boolFlags are the flags that take no value.
var boolFlags = []string{"verbose", "v", "quiet", "q", "json", "greet", "help", "h", "version"}

const usageText = `agentchat - chat with an AI agent behind a webhook

Usage:
  agentchat                          Start the chat window (default)
  agentchat tui                      Start the chat window
  agentchat chat                     Line-mode chat with history
  agentchat ask "message"            Send one message and print the reply
  agentchat config [show|set|path]   View or change settings
  agentchat version                  Show version information
  agentchat help                     Show this help

Ask Flags:
  -f, --file PATH      Attach a .txt, .pdf, .doc or .docx file

Config Commands:
  agentchat config show              Show current settings
  agentchat config set KEY VALUE     Change a setting
  agentchat config path              Show where settings are stored

  Keys: endpoint_url (endpoint), file_upload_enabled (upload),
        timeout_seconds (timeout)

Global Flags:
  --config PATH        Settings file (.toml, .yaml, .json) or database
  --store KIND         Settings storage: file (default), sqlite, memory
  --endpoint URL       Use this endpoint for this run only
  --timeout SECONDS    Use this response timeout for this run only
  --greet              Ask the endpoint for starting actions
  --json               Output in JSON format (ask, config, version)
  -q, --quiet          Minimal output
  -v, --verbose        Debug logging

Environment:
  AGENTCHAT_ENDPOINT_URL, AGENTCHAT_FILE_UPLOAD, AGENTCHAT_TIMEOUT_SECONDS
  override persisted settings. A .env file in the working directory is
  loaded first.

Examples:
  agentchat --endpoint http://localhost:5678/webhook/chat
  agentchat ask "What can you do?"
  agentchat ask "Summarize this" --file notes.txt --json
  agentchat config set upload on
  agentchat --store sqlite chat

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "agentchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// ParseArgs parses argv (without the program name). Global flags may appear
// anywhere on the line.
func ParseArgs(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		ConfigPath: p.Flag("config", "c"),
		Store:      strings.ToLower(p.Flag("store")),
		Endpoint:   strings.TrimSpace(p.Flag("endpoint")),
		Verbose:    p.BoolFlag("verbose", "v"),
		Quiet:      p.BoolFlag("quiet", "q"),
		JSON:       p.BoolFlag("json"),
		Greet:      p.BoolFlag("greet"),
		File:       p.Flag("file", "f"),
	}

	switch args.Store {
	case "":
		args.Store = StoreFile
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown store %q (use file, sqlite or memory)", args.Store))
	}

	if p.HasFlag("timeout") {
		n, err := ParseIntWithValidation(p.Flag("timeout"), "--timeout")
		if err != nil {
			return CmdHelp, args, NewUsageError(err.Error())
		}
		args.Timeout = n
	}
	if p.HasFlag("endpoint") && args.Endpoint == "" {
		return CmdHelp, args, NewUsageError("--endpoint requires a URL")
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}

	if p.PositionalCount() == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(p.Subcommand())
	args.Raw = p.PositionalFrom(1)

	switch name {
	case "tui":
		return CmdTUI, args, nil

	case "chat":
		return CmdChat, args, nil

	case "ask":
		args.Query = strings.Join(args.Raw, " ")
		if p.HasFlag("file", "f") && args.File == "" {
			return CmdAsk, args, NewUsageError("--file requires a path")
		}
		return CmdAsk, args, nil

	case "config":
		args.Subcommand = "show"
		if len(args.Raw) > 0 {
			args.Subcommand = strings.ToLower(args.Raw[0])
		}
		if len(args.Raw) > 1 {
			args.ConfigKey = args.Raw[1]
		}
		if len(args.Raw) > 2 {
			args.ConfigVal = strings.Join(args.Raw[2:], " ")
		}
		return CmdConfig, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil

	default:
		return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown command %q", name))
	}
}

// =============================================================================
// VERSION
// =============================================================================

// VersionData is the --json payload of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion prints version information.
func HandleVersion(env Env, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(env.Stdout)
	}
	PrintVersion(env.Stdout)
	return nil
}
