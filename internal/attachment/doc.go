// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment validates and reads files attached to chat messages.
//
// Four types are accepted: plain text, PDF, DOC and DOCX. Only plain text is
// read and inlined into the request; the other types are sent as metadata
// and parsed by the agent.
//
// # Usage
//
//	att, err := attachment.Open("notes.txt")
//	if errors.Is(err, attachment.ErrUnsupportedType) {
//	    // reject at selection time
//	}
//	text, err := att.ReadText()
package attachment
