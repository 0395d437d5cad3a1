// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatview is the full-screen chat window.
//
// The window is a Bubble Tea program drawn entirely from chat.Controller
// snapshots. Controller callbacks reach the event loop through a Bridge:
//
//	bridge := chatview.NewBridge()
//	ctrl := chat.New(store,
//		chat.WithNoticeHandler(bridge.Notice),
//		chat.WithChangeHandler(bridge.Changed),
//	)
//	err := chatview.Run(ctx, ctrl, bridge, chatview.Options{Greet: true})
//
// Enter sends, Tab cycles the suggested actions and Enter on a selected
// action copies it into the input. Ctrl+O attaches a file, Esc cancels a
// pending request and Ctrl+N starts a new chat.
package chatview
