// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"ask", "--file", "notes.txt"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("file") != "notes.txt" {
					t.Errorf("Flag(file) = %q, want %q", p.Flag("file"), "notes.txt")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"ask", "--timeout=45"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("timeout") != "45" {
					t.Errorf("Flag(timeout) = %q, want %q", p.Flag("timeout"), "45")
				}
			},
		},
		{
			name:    "declared boolean does not eat the next word",
			args:    []string{"ask", "--json", "hello", "world"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
				if got := strings.Join(p.PositionalFrom(1), " "); got != "hello world" {
					t.Errorf("PositionalFrom(1) = %q, want %q", got, "hello world")
				}
			},
		},
		{
			name:    "explicit boolean value",
			args:    []string{"--json=false", "config"},
			wantSub: "config",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be false")
				}
				if !p.HasFlag("json") {
					t.Error("HasFlag(json) should be true")
				}
			},
		},
		{
			name:    "short flag aliases",
			args:    []string{"ask", "-f", "a.txt", "-q"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("file", "f") != "a.txt" {
					t.Errorf("Flag(file, f) = %q", p.Flag("file", "f"))
				}
				if !p.BoolFlag("quiet", "q") {
					t.Error("BoolFlag(quiet, q) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"ask", "--", "--not-a-flag"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--not-a-flag" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name:    "trailing value flag",
			args:    []string{"ask", "--file"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.HasFlag("file") || p.Flag("file") != "" {
					t.Error("trailing --file should be present and empty")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, "json", "quiet", "q")
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_OutOfRange(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" || p.Positional(3) != "" || p.Positional(-1) != "" {
		t.Error("empty parser should return empty strings")
	}
	if len(p.PositionalFrom(1)) != 0 {
		t.Error("PositionalFrom past the end should be empty")
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"30", 30, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.in, "timeout")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseBoolString(t *testing.T) {
	for _, in := range []string{"true", "YES", "y", "1", "on"} {
		if v, err := ParseBoolString(in); err != nil || !v {
			t.Errorf("ParseBoolString(%q) = %v, %v", in, v, err)
		}
	}
	for _, in := range []string{"false", "No", "n", "0", "off"} {
		if v, err := ParseBoolString(in); err != nil || v {
			t.Errorf("ParseBoolString(%q) = %v, %v", in, v, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should fail")
	}
}
