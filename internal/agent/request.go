// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

// ActionSendMessage is the only action the client issues.
const ActionSendMessage = "sendMessage"

// Request is the JSON body POSTed for every message.
type Request struct {
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
	ChatInput string `json:"chatInput"`
	File      *File  `json:"file,omitempty"`
}

// File describes an attachment. Content is only present for text/plain;
// other types are parsed by the agent from the metadata it receives.
type File struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// NewMessageRequest builds a sendMessage request.
func NewMessageRequest(sessionID, text string, file *File) Request {
	return Request{
		SessionID: sessionID,
		Action:    ActionSendMessage,
		ChatInput: text,
		File:      file,
	}
}
