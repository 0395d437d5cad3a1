// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides settings persistence and validation for agentchat.
//
// Settings are small: the agent endpoint URL, whether file uploads are
// enabled, and the response timeout. A Store validates every change before
// committing it and persists through a pluggable Backend.
//
// # Backends
//
//   - FileBackend: TOML (default, ~/.agentchat/settings.toml), JSON or YAML
//     chosen by file extension, written atomically with 0600 permissions
//   - SQLiteBackend: key/value rows in a SQLite database
//   - MemoryBackend: process memory only
//
// # Environment Variables
//
//   - AGENTCHAT_ENDPOINT_URL: endpoint override
//   - AGENTCHAT_FILE_UPLOAD: 1/true/0/false
//   - AGENTCHAT_TIMEOUT_SECONDS: positive integer
//
// # Usage
//
//	backend, _ := config.NewFileBackend(path)
//	store := config.NewStore(backend, config.WithEnvOverrides())
//	settings := store.Load()
//
//	_, err := store.Save(config.Candidate{
//	    EndpointURL:    "https://agent.example.com/webhook/chat",
//	    TimeoutSeconds: "45",
//	})
//	var verrs config.ValidateErrors
//	if errors.As(err, &verrs) {
//	    // show verrs to the user, nothing was changed
//	}
package config
