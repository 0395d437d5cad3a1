// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agentchat/internal/util"
)

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, "http://localhost:5678/webhook/chat", s.EndpointURL)
	assert.False(t, s.FileUploadEnabled)
	assert.Equal(t, 30, s.TimeoutSeconds)
	assert.Equal(t, 30*time.Second, s.Timeout())
	assert.NoError(t, s.Validate())
}

func TestCandidateValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		badFields []string
	}{
		{"valid", Candidate{EndpointURL: "https://agent.example.com/hook", TimeoutSeconds: "45"}, nil},
		{"valid with whitespace", Candidate{EndpointURL: " http://localhost:5678/webhook/chat ", TimeoutSeconds: " 10 "}, nil},
		{"empty endpoint", Candidate{EndpointURL: "", TimeoutSeconds: "30"}, []string{FieldEndpointURL}},
		{"blank endpoint", Candidate{EndpointURL: "   ", TimeoutSeconds: "30"}, []string{FieldEndpointURL}},
		{"relative endpoint", Candidate{EndpointURL: "webhook/chat", TimeoutSeconds: "30"}, []string{FieldEndpointURL}},
		{"no host", Candidate{EndpointURL: "http://", TimeoutSeconds: "30"}, []string{FieldEndpointURL}},
		{"wrong scheme", Candidate{EndpointURL: "ftp://example.com/x", TimeoutSeconds: "30"}, []string{FieldEndpointURL}},
		{"non-numeric timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "abc"}, []string{FieldTimeoutSeconds}},
		{"negative timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "-5"}, []string{FieldTimeoutSeconds}},
		{"zero timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "0"}, []string{FieldTimeoutSeconds}},
		{"one day timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "86400"}, nil},
		{"timeout over one day", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "86401"}, []string{FieldTimeoutSeconds}},
		{"duration overflow timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "10000000000"}, []string{FieldTimeoutSeconds}},
		{"fractional timeout", Candidate{EndpointURL: "http://x.test", TimeoutSeconds: "1.5"}, []string{FieldTimeoutSeconds}},
		{"both invalid", Candidate{EndpointURL: "", TimeoutSeconds: ""}, []string{FieldEndpointURL, FieldTimeoutSeconds}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := tt.candidate.Validate()
			if len(tt.badFields) == 0 {
				require.NoError(t, err)
				assert.NoError(t, settings.Validate())
				return
			}
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %v", err)
			assert.Len(t, verrs, len(tt.badFields))
			for _, f := range tt.badFields {
				assert.True(t, verrs.Has(f), "expected error for %s", f)
			}
		})
	}
}

func TestCandidateValidate_TrimsValues(t *testing.T) {
	s, err := Candidate{EndpointURL: " http://a.test/x ", FileUploadEnabled: true, TimeoutSeconds: " 12 "}.Validate()
	require.NoError(t, err)
	assert.Equal(t, Settings{EndpointURL: "http://a.test/x", FileUploadEnabled: true, TimeoutSeconds: 12}, s)
}

func TestCandidateSetAndGet(t *testing.T) {
	c := CandidateFrom(Default())
	require.NoError(t, c.Set("endpoint", "https://a.test/hook"))
	require.NoError(t, c.Set("file-upload-enabled", "on"))
	require.NoError(t, c.Set("timeout_seconds", "90"))
	assert.Error(t, c.Set("upload", "maybe"))
	assert.Error(t, c.Set("colour", "blue"))

	s, err := c.Validate()
	require.NoError(t, err)
	v, err := s.Get("timeout")
	require.NoError(t, err)
	assert.Equal(t, "90", v)
	v, _ = s.Get("upload")
	assert.Equal(t, "true", v)
	_, err = s.Get("nope")
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]Format{
		"settings.toml": FormatTOML,
		"settings.JSON": FormatJSON,
		"settings.yml":  FormatYAML,
		"settings.yaml": FormatYAML,
	}
	for path, want := range cases {
		got, err := FormatForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatForPath("settings.ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

// =============================================================================
// STORE ROUND TRIP
// =============================================================================

func backendsForTest(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	backends := map[string]Backend{"memory": NewMemoryBackend()}
	for _, name := range []string{"settings.toml", "settings.json", "settings.yaml"} {
		b, err := NewFileBackend(filepath.Join(dir, name))
		require.NoError(t, err)
		backends[name] = b
	}
	db, err := OpenSQLiteBackend(filepath.Join(dir, "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	backends["sqlite"] = db
	return backends
}

func TestStore_SaveThenLoadRoundTrip(t *testing.T) {
	for name, backend := range backendsForTest(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend)
			assert.Equal(t, Default(), store.Load(), "empty backend yields defaults")

			want := Settings{EndpointURL: "https://agent.example.com/webhook/abc", FileUploadEnabled: true, TimeoutSeconds: 7}
			saved, err := store.Save(CandidateFrom(want))
			require.NoError(t, err)
			assert.Equal(t, want, saved)
			assert.Equal(t, want, store.Current(), "running settings updated immediately")

			// A fresh store over the same backend sees the persisted values
			assert.Equal(t, want, NewStore(backend).Load())
		})
	}
}

func TestStore_InvalidSaveChangesNothing(t *testing.T) {
	for name, backend := range backendsForTest(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend)
			valid := Settings{EndpointURL: "http://a.test/hook", TimeoutSeconds: 15}
			_, err := store.Save(CandidateFrom(valid))
			require.NoError(t, err)

			_, err = store.Save(Candidate{EndpointURL: "http://b.test/hook", TimeoutSeconds: "abc"})
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.True(t, verrs.Has(FieldTimeoutSeconds))

			assert.Equal(t, valid, store.Current())
			assert.Equal(t, valid, NewStore(backend).Load())
		})
	}
}

func TestStore_BackendWriteFailureKeepsRunningSettings(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend)
	before := store.Load()

	backend.WriteErr = errors.New("disk full")
	_, err := store.Save(Candidate{EndpointURL: "http://a.test", TimeoutSeconds: "5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, before, store.Current())
}

func TestStore_LoadCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint_url = [not toml"), 0600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), NewStore(backend).Load())
}

func TestStore_LoadSanitizesInvalidFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	data := "endpoint_url = \"https://agent.test/hook\"\nfile_upload_enabled = true\ntimeout_seconds = -3\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	s := NewStore(backend).Load()
	assert.Equal(t, "https://agent.test/hook", s.EndpointURL)
	assert.True(t, s.FileUploadEnabled)
	assert.Equal(t, DefaultTimeoutSeconds, s.TimeoutSeconds)
}

func TestStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("file_upload_enabled: true\n"), 0600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	s := NewStore(backend).Load()
	assert.Equal(t, DefaultEndpointURL, s.EndpointURL)
	assert.True(t, s.FileUploadEnabled)
	assert.Equal(t, DefaultTimeoutSeconds, s.TimeoutSeconds)
}

func TestStore_EnvOverrides(t *testing.T) {
	t.Setenv(EnvEndpointURL, "https://env.test/hook")
	t.Setenv(EnvFileUpload, "1")
	t.Setenv(EnvTimeoutSeconds, "not-a-number")

	backend := NewMemoryBackend()
	s := NewStore(backend, WithEnvOverrides()).Load()
	assert.Equal(t, "https://env.test/hook", s.EndpointURL)
	assert.True(t, s.FileUploadEnabled)
	assert.Equal(t, DefaultTimeoutSeconds, s.TimeoutSeconds)

	// Overrides are never persisted
	_, found, _ := backend.Read()
	assert.False(t, found)

	// Without the option the environment is ignored
	assert.Equal(t, Default(), NewStore(backend).Load())
}

func TestStore_SaveKeepsEnvOverrides(t *testing.T) {
	t.Setenv(EnvTimeoutSeconds, "99")

	backend := NewMemoryBackend()
	store := NewStore(backend, WithEnvOverrides())
	store.Load()

	saved, err := store.Save(Candidate{EndpointURL: "http://saved.test/hook", TimeoutSeconds: "10"})
	require.NoError(t, err)
	assert.Equal(t, 10, saved.TimeoutSeconds)

	persisted, found, err := backend.Read()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 10, persisted.TimeoutSeconds)

	// Running settings match what a reload would produce
	assert.Equal(t, 99, store.Current().TimeoutSeconds)
	assert.Equal(t, "http://saved.test/hook", store.Current().EndpointURL)
	assert.Equal(t, store.Current(), store.Load())
}

func TestStore_OversizedTimeoutNeverOverflows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	data := "endpoint_url = \"https://agent.test/hook\"\ntimeout_seconds = 10000000000\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	s := NewStore(backend).Load()
	assert.Equal(t, DefaultTimeoutSeconds, s.TimeoutSeconds)
	assert.Positive(t, s.Timeout())

	t.Setenv(EnvTimeoutSeconds, "10000000000")
	s = NewStore(backend, WithEnvOverrides()).Load()
	assert.Equal(t, DefaultTimeoutSeconds, s.TimeoutSeconds)

	store := NewStore(NewMemoryBackend())
	assert.Error(t, store.Override(Settings{EndpointURL: "http://cli.test", TimeoutSeconds: math.MaxInt}))

	limit := Settings{EndpointURL: "http://cli.test", TimeoutSeconds: MaxTimeoutSeconds}
	require.NoError(t, limit.Validate())
	assert.Equal(t, 24*time.Hour, limit.Timeout())
}

func TestStore_Override(t *testing.T) {
	store := NewStore(NewMemoryBackend())
	store.Load()

	assert.Error(t, store.Override(Settings{EndpointURL: "", TimeoutSeconds: 1}))
	assert.Equal(t, Default(), store.Current())

	o := Settings{EndpointURL: "http://cli.test", TimeoutSeconds: 3}
	require.NoError(t, store.Override(o))
	assert.Equal(t, o, store.Current())
	assert.Equal(t, 3*time.Second, store.Timeout())
}

func TestFileBackend_WritesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, backend.Write(Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# agentchat settings")
	assert.Contains(t, string(data), "endpoint_url")
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_ReloadsOnExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	store := NewStore(backend)
	require.NoError(t, backend.Write(Default()))
	store.Load()

	changed := make(chan struct{}, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func() {
		store.Reload()
		changed <- struct{}{}
	})
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Close()

	edited := "endpoint_url = \"http://edited.test/hook\"\ntimeout_seconds = 9\n"
	require.NoError(t, util.AtomicWriteFile(path, []byte(edited), 0600))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
	assert.Equal(t, "http://edited.test/hook", store.Current().EndpointURL)
	assert.Equal(t, 9, store.Current().TimeoutSeconds)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, 10*time.Millisecond, func() { changed <- struct{}{} })
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "history"), []byte("x"), 0600))

	select {
	case <-changed:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
