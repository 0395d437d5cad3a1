// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides settings persistence and validation for agentchat.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the user-editable configuration of the chat client.
type Settings struct {
	// EndpointURL is the agent webhook every message is POSTed to.
	EndpointURL string `toml:"endpoint_url" json:"endpointUrl" yaml:"endpoint_url"`

	// FileUploadEnabled gates attachment selection.
	FileUploadEnabled bool `toml:"file_upload_enabled" json:"fileUploadEnabled" yaml:"file_upload_enabled"`

	// TimeoutSeconds bounds each request to the agent.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeoutSeconds" yaml:"timeout_seconds"`
}

// Defaults used when nothing is persisted.
const (
	DefaultEndpointURL    = "http://localhost:5678/webhook/chat"
	DefaultTimeoutSeconds = 30

	// MaxTimeoutSeconds caps the response timeout at one day.
	MaxTimeoutSeconds = 86400
)

// Default returns the settings used before anything has been saved.
func Default() Settings {
	return Settings{
		EndpointURL:       DefaultEndpointURL,
		FileUploadEnabled: false,
		TimeoutSeconds:    DefaultTimeoutSeconds,
	}
}

// Timeout returns TimeoutSeconds as a duration.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Validate checks already-typed settings, e.g. values read from a file that
// may have been edited by hand.
func (s Settings) Validate() error {
	var errs ValidateErrors
	if err := validateEndpoint(s.EndpointURL); err != nil {
		errs = append(errs, *err)
	}
	if err := validateTimeout(s.TimeoutSeconds); err != nil {
		errs = append(errs, *err)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// sanitize replaces invalid fields with their defaults, leaving valid ones
// alone. Returns the fields that were replaced.
func (s *Settings) sanitize() []string {
	def := Default()
	var replaced []string
	if validateEndpoint(s.EndpointURL) != nil {
		s.EndpointURL = def.EndpointURL
		replaced = append(replaced, FieldEndpointURL)
	}
	if validateTimeout(s.TimeoutSeconds) != nil {
		s.TimeoutSeconds = def.TimeoutSeconds
		replaced = append(replaced, FieldTimeoutSeconds)
	}
	return replaced
}

// =============================================================================
// CANDIDATE (RAW USER INPUT)
// =============================================================================

// Candidate holds settings as the user typed them. The timeout stays a
// string until validation so "abc" and "-5" can be reported, not silently
// coerced.
type Candidate struct {
	EndpointURL       string
	FileUploadEnabled bool
	TimeoutSeconds    string
}

// CandidateFrom returns a candidate pre-filled from s, as a settings form
// would show it.
func CandidateFrom(s Settings) Candidate {
	return Candidate{
		EndpointURL:       s.EndpointURL,
		FileUploadEnabled: s.FileUploadEnabled,
		TimeoutSeconds:    strconv.Itoa(s.TimeoutSeconds),
	}
}

// Validate parses the candidate into Settings. On failure it returns
// ValidateErrors listing every invalid field.
func (c Candidate) Validate() (Settings, error) {
	var errs ValidateErrors

	endpoint := strings.TrimSpace(c.EndpointURL)
	if err := validateEndpoint(endpoint); err != nil {
		errs = append(errs, *err)
	}

	timeout, err := strconv.Atoi(strings.TrimSpace(c.TimeoutSeconds))
	if err != nil {
		errs = append(errs, ValidationError{Field: FieldTimeoutSeconds, Message: msgTimeoutPositive})
	} else if verr := validateTimeout(timeout); verr != nil {
		errs = append(errs, *verr)
	}

	if len(errs) > 0 {
		return Settings{}, errs
	}
	return Settings{
		EndpointURL:       endpoint,
		FileUploadEnabled: c.FileUploadEnabled,
		TimeoutSeconds:    timeout,
	}, nil
}

// Set assigns one field by key. Accepted keys are the TOML names and the
// short aliases "endpoint", "upload" and "timeout". Values are not validated
// here; Validate does that for the whole candidate.
func (c *Candidate) Set(key, value string) error {
	switch normalizeKey(key) {
	case FieldEndpointURL:
		c.EndpointURL = value
	case FieldFileUploadEnabled:
		enabled, ok := parseBool(value)
		if !ok {
			return ValidationError{Field: FieldFileUploadEnabled, Message: fmt.Sprintf("invalid boolean '%s', use on/off or true/false", value)}
		}
		c.FileUploadEnabled = enabled
	case FieldTimeoutSeconds:
		c.TimeoutSeconds = value
	default:
		return fmt.Errorf("unknown setting: %s (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Keys returns the canonical setting keys in display order.
func Keys() []string {
	return []string{FieldEndpointURL, FieldFileUploadEnabled, FieldTimeoutSeconds}
}

// Get returns the display value of one field by key.
func (s Settings) Get(key string) (string, error) {
	switch normalizeKey(key) {
	case FieldEndpointURL:
		return s.EndpointURL, nil
	case FieldFileUploadEnabled:
		return strconv.FormatBool(s.FileUploadEnabled), nil
	case FieldTimeoutSeconds:
		return strconv.Itoa(s.TimeoutSeconds), nil
	}
	return "", fmt.Errorf("unknown setting: %s (valid: %s)", key, strings.Join(Keys(), ", "))
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	switch k {
	case "endpoint", "endpoint_url", "endpointurl", "url":
		return FieldEndpointURL
	case "upload", "file_upload", "file_upload_enabled", "fileuploadenabled":
		return FieldFileUploadEnabled
	case "timeout", "timeout_seconds", "timeoutseconds":
		return FieldTimeoutSeconds
	}
	return k
}

func parseBool(v string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// =============================================================================
// VALIDATION
// =============================================================================

// Field names reported in ValidationError.
const (
	FieldEndpointURL       = "endpoint_url"
	FieldFileUploadEnabled = "file_upload_enabled"
	FieldTimeoutSeconds    = "timeout_seconds"
)

const (
	msgEndpointEmpty   = "endpoint URL cannot be empty"
	msgEndpointInvalid = "please enter a valid URL (e.g. http://localhost:5678/webhook/chat)"
	msgTimeoutPositive = "response timeout must be a positive number of seconds"
	msgTimeoutRange    = "response timeout cannot exceed 86400 seconds (one day)"
)

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether a field failed validation.
func (e ValidateErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

func validateEndpoint(raw string) *ValidationError {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: FieldEndpointURL, Message: msgEndpointEmpty}
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: FieldEndpointURL, Message: msgEndpointInvalid}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: FieldEndpointURL, Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme)}
	}
	return nil
}

func validateTimeout(seconds int) *ValidationError {
	switch {
	case seconds <= 0:
		return &ValidationError{Field: FieldTimeoutSeconds, Message: msgTimeoutPositive}
	case seconds > MaxTimeoutSeconds:
		return &ValidationError{Field: FieldTimeoutSeconds, Message: msgTimeoutRange}
	}
	return nil
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the agentchat configuration directory (~/.agentchat).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".agentchat"), nil
}

// DefaultPath returns the default settings file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// DefaultDBPath returns the default SQLite settings database path.
func DefaultDBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.db"), nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnvOverrides.
const (
	EnvEndpointURL    = "AGENTCHAT_ENDPOINT_URL"
	EnvFileUpload     = "AGENTCHAT_FILE_UPLOAD"
	EnvTimeoutSeconds = "AGENTCHAT_TIMEOUT_SECONDS"
)

// ApplyEnvOverrides overlays AGENTCHAT_* variables onto s. Unparseable
// values are ignored.
func (s *Settings) ApplyEnvOverrides() {
	if endpoint := os.Getenv(EnvEndpointURL); endpoint != "" {
		s.EndpointURL = endpoint
	}

	if upload := os.Getenv(EnvFileUpload); upload != "" {
		if enabled, ok := parseBool(upload); ok {
			s.FileUploadEnabled = enabled
		}
	}

	if timeout := os.Getenv(EnvTimeoutSeconds); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && validateTimeout(n) == nil {
			s.TimeoutSeconds = n
		}
	}
}
