// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeranaias/agentchat/internal/util"
)

// =============================================================================
// RESPONSE SHAPES
// =============================================================================

// Shape identifies which of the accepted reply layouts a body used.
type Shape int

const (
	// ShapeOther is any JSON value that matches no accepted layout.
	ShapeOther Shape = iota

	// ShapeBare is {"message": ..., "suggestedActions": [...]}.
	ShapeBare

	// ShapeWrapped is {"output": {"message": ..., "suggestedActions": [...]}}.
	ShapeWrapped

	// ShapeList is [{"output": {...}}, ...]; only the first element is read.
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeWrapped:
		return "wrapped"
	case ShapeList:
		return "list"
	default:
		return "other"
	}
}

// Envelope is one location in a reply where a message may live.
type Envelope struct {
	// Message is the "message" field when it is a non-blank string.
	Message string

	// Actions is "suggestedActions" when it is a non-empty array made only
	// of strings; nil otherwise.
	Actions []string
}

// HasMessage reports whether the envelope carries a usable message.
func (e *Envelope) HasMessage() bool {
	return e != nil && e.Message != ""
}

// Response is a decoded reply.
//
// Top is set for object replies (ShapeBare and ShapeWrapped). Output is set
// for ShapeWrapped (the object's "output") and ShapeList (the first
// element's "output").
type Response struct {
	Shape  Shape
	Top    *Envelope
	Output *Envelope
}

// ErrInvalidJSON is returned by Decode for bodies that are not JSON.
var ErrInvalidJSON = errors.New("response is not valid JSON")

// Decode parses a reply body into a Response. Any valid JSON decodes; values
// matching no accepted layout yield ShapeOther.
func Decode(data []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return Response{}, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidJSON)
	}

	switch v := raw.(type) {
	case map[string]any:
		resp := Response{Shape: ShapeBare, Top: envelopeFrom(v)}
		if out, ok := v["output"].(map[string]any); ok {
			resp.Shape = ShapeWrapped
			resp.Output = envelopeFrom(out)
		}
		return resp, nil

	case []any:
		if len(v) == 0 {
			return Response{Shape: ShapeOther}, nil
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return Response{Shape: ShapeOther}, nil
		}
		out, ok := first["output"].(map[string]any)
		if !ok {
			return Response{Shape: ShapeOther}, nil
		}
		return Response{Shape: ShapeList, Output: envelopeFrom(out)}, nil
	}

	return Response{Shape: ShapeOther}, nil
}

func envelopeFrom(obj map[string]any) *Envelope {
	env := &Envelope{}
	if msg, ok := obj["message"].(string); ok && !util.IsBlank(msg) {
		env.Message = msg
	}
	env.Actions = stringList(obj["suggestedActions"])
	return env
}

// stringList returns v as []string if it is a non-empty array whose every
// element is a string.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
