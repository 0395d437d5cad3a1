// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat session controller.
//
// The Controller owns the transcript, the suggested actions, the session
// identity and the single in-flight request. Presentation layers call into
// it and draw Snapshot results; they never mutate state directly.
//
// # Sending
//
// Send is split in two so a UI can show the user's message immediately:
//
//	ex, err := ctrl.Begin(text, att) // preconditions, optimistic turn, pending=true
//	if err != nil {
//	    return // ErrEmptyInput, ErrRequestPending or ErrUploadDisabled; nothing changed
//	}
//	out := ex.Run(ctx) // request, timeout, normalize; pending=false on every path
//
// Failures never escape Run as errors. A timeout or transport failure leaves
// a fixed apology turn, resets the suggested actions and raises a Notice;
// Outcome.Err carries the typed cause for callers that care.
//
// # Key Types
//
//   - Controller: session state and operations
//   - Exchange: one message in flight
//   - Outcome, Status: how an exchange ended
//   - Notice: transient user-facing notification
//   - ActionState: suggested-action chips (Empty or Populated)
package chat
