// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for a chat transcript.
//
// # Key Types
//
//   - Turn: one user or agent entry with its pending/committed state
//   - Conversation: the ordered transcript of the current session
//   - Sender: SenderUser or SenderAgent
//
// # Usage
//
//	conv := model.NewConversation()
//	turn := conv.Begin(model.SenderUser, "hello")
//	// ...request issued
//	conv.Commit(turn.ID)
//	conv.Append(model.SenderAgent, "hi there")
package model
