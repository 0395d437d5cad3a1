// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display current settings
//   get <key>           Print one setting
//   set <key> <value>   Validate and save one setting
//   path                Show where settings are stored
//
// Examples:
//   agentchat config
//   agentchat config set endpoint https://n8n.example.com/webhook/chat
//   agentchat config set upload on
//   agentchat config set timeout 60
//   agentchat --store sqlite config path
//
// Keys: endpoint_url, file_upload_enabled, timeout_seconds (short forms
// endpoint, upload, timeout).

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/util"
)

// ConfigData is the --json payload of config show and config set.
type ConfigData struct {
	Store    string          `json:"store"`
	Path     string          `json:"path,omitempty"`
	Settings config.Settings `json:"settings"`
}

// HandleConfig handles the "config" command.
func HandleConfig(env Env, args Args) error {
	h, err := OpenStore(args, env.logger())
	if err != nil {
		return err
	}
	defer h.Close()

	switch args.Subcommand {
	case "", "show", "list":
		return showConfig(env, args, h)
	case "get":
		return getConfig(env, args, h)
	case "set":
		return setConfig(env, args, h)
	case "path":
		return configPath(env, args, h)
	default:
		return NewUsageError(fmt.Sprintf("unknown config subcommand %q (use show, get, set or path)", args.Subcommand))
	}
}

func showConfig(env Env, args Args, h *StoreHandle) error {
	settings := h.Store.Current()
	if args.JSON {
		return NewJSONResponse("config show", ConfigData{Store: h.Kind, Path: h.Path, Settings: settings}).Print(env.Stdout)
	}

	fmt.Fprintln(env.Stdout, TitleStyle.Render("agentchat settings"))
	for _, key := range config.Keys() {
		val, _ := settings.Get(key)
		fmt.Fprintf(env.Stdout, "  %s%s\n", LabelStyle.Render(key), ValueStyle.Render(val))
	}
	fmt.Fprintln(env.Stdout)
	fmt.Fprintf(env.Stdout, "  %s%s\n", LabelStyle.Render("store"), ValueStyle.Render(storeDescription(h)))
	if h.overridden {
		fmt.Fprintln(env.Stdout, DimStyle.Render("  (command-line overrides in effect for this run)"))
	}
	return nil
}

func getConfig(env Env, args Args, h *StoreHandle) error {
	if args.ConfigKey == "" {
		return NewUsageError("config get requires a key")
	}
	val, err := h.Store.Current().Get(args.ConfigKey)
	if err != nil {
		return NewUsageError(err.Error())
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]string{"key": args.ConfigKey, "value": val}).Print(env.Stdout)
	}
	fmt.Fprintln(env.Stdout, val)
	return nil
}

func setConfig(env Env, args Args, h *StoreHandle) error {
	if args.ConfigKey == "" || util.IsBlank(args.ConfigVal) {
		return NewUsageError("config set requires a key and a value")
	}

	// Start from what is persisted, not from one-run overrides.
	base := h.Store.Current()
	if h.overridden {
		base = h.Store.Reload()
	}

	candidate := config.CandidateFrom(base)
	if err := candidate.Set(args.ConfigKey, strings.TrimSpace(args.ConfigVal)); err != nil {
		return NewCommandError("config", "set", err)
	}
	saved, err := h.Store.Save(candidate)
	if err != nil {
		return NewCommandError("config", "set", err)
	}

	if args.JSON {
		return NewJSONResponse("config set", ConfigData{Store: h.Kind, Path: h.Path, Settings: saved}).Print(env.Stdout)
	}
	if !args.Quiet {
		fmt.Fprintln(env.Stdout, SuccessStyle.Render("[OK]")+" Settings saved successfully.")
	}
	return nil
}

func configPath(env Env, args Args, h *StoreHandle) error {
	if args.JSON {
		return NewJSONResponse("config path", map[string]string{"store": h.Kind, "path": h.Path}).Print(env.Stdout)
	}
	fmt.Fprintln(env.Stdout, storeDescription(h))
	return nil
}

func storeDescription(h *StoreHandle) string {
	if h.Path == "" {
		return "(in memory, not persisted)"
	}
	if h.Kind == StoreSQLite {
		return h.Path + " (sqlite)"
	}
	return h.Path
}
