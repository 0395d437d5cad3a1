// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the conversation identity for agentchat.
//
// Each chat carries an opaque session token that the agent endpoint uses to
// group turns into one conversation. Starting a new chat regenerates it.
//
// # Key Types
//
//   - Manager: holds the current token, its start time and generation
//   - Status: snapshot for /status output
//
// # Usage
//
//	mgr := session.NewManager()
//	id := mgr.SessionID()
//
//	// New chat: the previous token is never reused
//	id = mgr.Regenerate()
package session
