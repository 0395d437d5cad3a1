// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

// Fallbacks used when a reply carries no usable message.
const (
	DefaultMessage = "No response from AI."
	DefaultAction  = "What can you do?"
)

// DefaultActions returns a fresh copy of the default suggested actions.
func DefaultActions() []string {
	return []string{DefaultAction}
}

// Result is a normalized reply: always a message and a non-empty action list.
type Result struct {
	Message string
	Actions []string

	// Source is the shape the message was taken from; ShapeOther when the
	// defaults were used.
	Source Shape

	// Defaulted is true when no candidate held a message.
	Defaulted bool
}

// Normalize picks the message and actions out of a decoded reply.
//
// Candidates are tried in order: the top-level object, then the "output"
// object (of the top-level object or of the first array element). The first
// candidate with a non-blank message wins and also supplies the actions;
// its actions default when absent or malformed. Normalize never fails.
func Normalize(r Response) Result {
	candidates := []*Envelope{r.Top, r.Output}
	for _, env := range candidates {
		if !env.HasMessage() {
			continue
		}
		res := Result{Message: env.Message, Actions: DefaultActions(), Source: r.Shape}
		if len(env.Actions) > 0 {
			res.Actions = append([]string(nil), env.Actions...)
		}
		if env == r.Top {
			res.Source = ShapeBare
		}
		return res
	}
	return Result{
		Message:   DefaultMessage,
		Actions:   DefaultActions(),
		Source:    ShapeOther,
		Defaulted: true,
	}
}

// NormalizeJSON decodes and normalizes a reply body. The only error is
// ErrInvalidJSON.
func NormalizeJSON(data []byte) (Result, error) {
	r, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return Normalize(r), nil
}
