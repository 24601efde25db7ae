// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/strands-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete strands-chat configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Chat    ChatConfig    `toml:"chat"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	// BaseURL is the backend base URL, e.g. "https://chat.example.com/api".
	BaseURL string `toml:"base_url"`
	// Token is the bearer token. Prefer the STRANDS_CHAT_TOKEN environment
	// variable over storing it here.
	Token string `toml:"token"`
	// RateLimit is the outgoing request rate in requests per second.
	// Zero disables client-side throttling.
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the burst size when RateLimit is set.
	RateBurst int `toml:"rate_burst"`
}

// ChatConfig configures conversation behavior.
type ChatConfig struct {
	// DefaultModel is the preferred model ID. The first model the backend
	// advertises is used when empty or unknown.
	DefaultModel string `toml:"default_model"`
	// ToolSelection picks how tool modes are chosen per turn:
	// "auto" (backend selector), "keyword" (local heuristics),
	// "manual" (only explicitly enabled tools).
	ToolSelection string `toml:"tool_selection"`
}

// SessionConfig configures local session persistence.
type SessionConfig struct {
	// File is the session snapshot path. Empty means
	// ~/.strands-chat/session.json.
	File string `toml:"file"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Tool selection modes.
const (
	ToolSelectionAuto    = "auto"
	ToolSelectionKeyword = "keyword"
	ToolSelectionManual  = "manual"
)

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			RateLimit: 0,
			RateBurst: 1,
		},
		Chat: ChatConfig{
			ToolSelection: ToolSelectionAuto,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.strands-chat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".strands-chat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SessionFilePath resolves the session snapshot path, falling back to the
// default location inside the config directory.
func (c *Config) SessionFilePath() (string, error) {
	if c.Session.File != "" {
		return c.Session.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// ensureSecurePermissions tightens config file permissions to 0600. The
// file may hold a bearer token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads the config file, applies environment overrides, and validates
// the result. A missing config file is not an error; defaults plus
// environment are used instead. An invalid config is.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath reads and validates a config file at an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// Save writes the configuration to the default path atomically.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies STRANDS_CHAT_* environment variables on top of
// file values. Environment always wins.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STRANDS_CHAT_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STRANDS_CHAT_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("STRANDS_CHAT_RATE_LIMIT"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.RateLimit = limit
		}
	}
	if v := os.Getenv("STRANDS_CHAT_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
	if v := os.Getenv("STRANDS_CHAT_TOOL_SELECTION"); v != "" {
		c.Chat.ToolSelection = v
	}
	if v := os.Getenv("STRANDS_CHAT_SESSION_FILE"); v != "" {
		c.Session.File = v
	}
	if v := os.Getenv("STRANDS_CHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STRANDS_CHAT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

// Error implements the error interface.
func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL == "" {
		errs = append(errs, ValidationError{"api.base_url", "is required"})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", "must be an http(s) URL"})
	}

	if c.API.Token == "" {
		errs = append(errs, ValidationError{"api.token", "is required (set STRANDS_CHAT_TOKEN)"})
	}

	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{"api.rate_limit", "must not be negative"})
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		errs = append(errs, ValidationError{"api.rate_burst", "must be at least 1 when rate_limit is set"})
	}

	switch c.Chat.ToolSelection {
	case ToolSelectionAuto, ToolSelectionKeyword, ToolSelectionManual:
	default:
		errs = append(errs, ValidationError{"chat.tool_selection", `must be "auto", "keyword", or "manual"`})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", `must be "debug", "info", "warn", or "error"`})
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{"log.format", `must be "text" or "json"`})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
