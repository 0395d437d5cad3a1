// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent talks to the chat agent endpoint and normalizes its replies.
//
// The endpoint is an opaque HTTP webhook. Every message is one POST of a
// JSON Request; replies come back in one of three layouts, which Decode
// classifies and Normalize reduces to a single message and action list.
//
// # Key Types
//
//   - Client: single-attempt HTTP transport with a size-limited read
//   - Request, File: the outbound JSON body
//   - Response, Envelope, Shape: the decoded reply
//   - Result: the normalized reply
//
// # Reply Layouts
//
//	{"message": "...", "suggestedActions": ["..."]}
//	{"output": {"message": "...", "suggestedActions": ["..."]}}
//	[{"output": {"message": "...", "suggestedActions": ["..."]}}]
//
// # Usage
//
//	client := agent.NewClient(agent.WithUserAgent("agentchat/1.0"))
//	body, err := client.Send(ctx, endpoint, agent.NewMessageRequest(id, text, nil))
//	if err != nil {
//	    return err
//	}
//	res, err := agent.NormalizeJSON(body)
package agent
