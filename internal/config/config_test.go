// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://chat.example.com/api"
token = "tok-123"
rate_limit = 5.0
rate_burst = 10

[chat]
default_model = "m1"
tool_selection = "keyword"

[log]
level = "debug"
format = "json"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.BaseURL != "https://chat.example.com/api" {
		t.Errorf("base_url: got %q", cfg.API.BaseURL)
	}
	if cfg.API.RateLimit != 5.0 || cfg.API.RateBurst != 10 {
		t.Errorf("rate: got %v/%d", cfg.API.RateLimit, cfg.API.RateBurst)
	}
	if cfg.Chat.ToolSelection != ToolSelectionKeyword {
		t.Errorf("tool_selection: got %q", cfg.Chat.ToolSelection)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://chat.example.com"
token = "tok"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults not applied: %+v", cfg.Log)
	}
	if cfg.Chat.ToolSelection != ToolSelectionAuto {
		t.Errorf("tool_selection default not applied: %q", cfg.Chat.ToolSelection)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://file.example.com"
token = "file-token"
`)

	t.Setenv("STRANDS_CHAT_BASE_URL", "https://env.example.com")
	t.Setenv("STRANDS_CHAT_TOKEN", "env-token")
	t.Setenv("STRANDS_CHAT_LOG_LEVEL", "warn")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("env base_url not applied: %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("env token not applied")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env log level not applied: %q", cfg.Log.Level)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "not a url"
	cfg.Log.Level = "loud"
	cfg.Chat.ToolSelection = "psychic"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	verrs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("got %T, want ValidateErrors", err)
	}
	if len(verrs) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(verrs), verrs)
	}

	msg := err.Error()
	for _, field := range []string{"api.base_url", "api.token", "chat.tool_selection", "log.level"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message missing %q: %s", field, msg)
		}
	}
}

func TestValidateRateLimit(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://chat.example.com"
	cfg.API.Token = "tok"
	cfg.API.RateLimit = 2.0
	cfg.API.RateBurst = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected burst validation error")
	}

	cfg.API.RateBurst = 5
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromPathInvalidConfigFails(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://chat.example.com"
`)

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected failure for missing token")
	}
}

func TestSessionFilePath(t *testing.T) {
	cfg := Default()
	cfg.Session.File = "/tmp/custom-session.json"

	path, err := cfg.SessionFilePath()
	if err != nil {
		t.Fatalf("SessionFilePath failed: %v", err)
	}
	if path != "/tmp/custom-session.json" {
		t.Errorf("got %q", path)
	}

	cfg.Session.File = ""
	path, err = cfg.SessionFilePath()
	if err != nil {
		t.Fatalf("SessionFilePath failed: %v", err)
	}
	if filepath.Base(path) != "session.json" {
		t.Errorf("got %q", path)
	}
}

func TestInsecurePermissionsFixedOnLoad(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://chat.example.com"
token = "tok"
`)
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions not tightened: %o", info.Mode().Perm())
	}
}
