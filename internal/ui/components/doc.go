// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI pieces for the agentchat TUI.
//
//   - Toast, ToastManager: auto-dismissing notices shown above the input
//   - RenderChips: the suggested-action row
package components
