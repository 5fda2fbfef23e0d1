// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/aspire/internal/util"
)

// Provider names.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// placeholderKeys are sample values shipped in templates and docs.
var placeholderKeys = map[string]bool{
	"your-gemini-api-key":     true,
	"your-openrouter-api-key": true,
	"your-api-key":            true,
	"changeme":                true,
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aspire configuration.
type Config struct {
	Provider   ProviderConfig   `toml:"provider" json:"provider"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Server     ServerConfig     `toml:"server" json:"server"`
}

// ProviderConfig selects and authenticates the generative-AI backend.
type ProviderConfig struct {
	Name        string  `toml:"name" json:"name"`
	APIKey      string  `toml:"api_key" json:"api_key"`
	Model       string  `toml:"model" json:"model"`
	BaseURL     string  `toml:"base_url" json:"base_url"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	TimeoutSecs int     `toml:"timeout_secs" json:"timeout_secs"`
}

// GenerationConfig holds sampling settings for strategy generation.
type GenerationConfig struct {
	TopP      float64 `toml:"top_p" json:"top_p"`
	TopK      int     `toml:"top_k" json:"top_k"`
	MaxTokens int     `toml:"max_tokens" json:"max_tokens"`
	JSON      bool    `toml:"json" json:"json"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `toml:"path" json:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host               string   `toml:"host" json:"host"`
	Port               int      `toml:"port" json:"port"`
	AuthToken          string   `toml:"auth_token" json:"auth_token"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	AllowedOrigins     []string `toml:"allowed_origins" json:"allowed_origins"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
// The API key is left empty; Validate rejects it until one is supplied.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        ProviderGemini,
			Model:       "gemini-1.5-pro",
			Temperature: 0.7,
			TimeoutSecs: 60,
		},
		Generation: GenerationConfig{
			TopP:      0.95,
			TopK:      40,
			MaxTokens: 2048,
			JSON:      true,
		},
		Storage: StorageConfig{
			Path: defaultDBPath(),
		},
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               8000,
			RateLimitPerMinute: 0,
		},
	}
}

func defaultDBPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "aspire.db"
	}
	return filepath.Join(dir, "aspire.db")
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the aspire configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aspire"), nil
}

// ConfigPath returns the default TOML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions forces config files to 0600.
// SECURITY: config files hold API keys and the server token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file if it exists, otherwise starts from
// defaults. Environment overrides are applied last, then the result is
// validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full validation.
// Files ending in .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// finish applies env overrides, fills zero values and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
// SECURITY: checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
// SECURITY: checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# aspire configuration file\n")
	buf.WriteString("# Environment variables (GEMINI_API_KEY, ASPIRE_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ConfigurationError is a fatal configuration problem surfaced before any
// request is served, such as a missing or placeholder API key.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ValidationError represents a configuration validation error.
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

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration.
// Key problems are reported as *ConfigurationError so callers can fail fast;
// everything else is collected into ValidateErrors.
func (c *Config) Validate() error {
	if err := c.ValidateKey(); err != nil {
		return err
	}

	var errs ValidateErrors

	switch strings.ToLower(c.Provider.Name) {
	case ProviderGemini, ProviderOpenRouter:
	default:
		errs = append(errs, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: gemini, openrouter", c.Provider.Name),
		})
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "provider.temperature", Message: "must be between 0 and 2"})
	}
	if c.Provider.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "provider.timeout_secs", Message: "must not be negative"})
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		errs = append(errs, ValidationError{Field: "generation.top_p", Message: "must be between 0 and 1"})
	}
	if c.Generation.TopK < 0 {
		errs = append(errs, ValidationError{Field: "generation.top_k", Message: "must not be negative"})
	}
	if c.Generation.MaxTokens < 0 {
		errs = append(errs, ValidationError{Field: "generation.max_tokens", Message: "must not be negative"})
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, ValidationError{Field: "storage.path", Message: "must not be empty"})
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit_per_minute", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateKey reports a missing or placeholder provider API key.
func (c *Config) ValidateKey() error {
	key := strings.TrimSpace(c.Provider.APIKey)
	if key == "" {
		return &ConfigurationError{
			Field:   "provider.api_key",
			Message: "API key not configured (set GEMINI_API_KEY or provider.api_key)",
		}
	}
	if placeholderKeys[strings.ToLower(key)] {
		return &ConfigurationError{
			Field:   "provider.api_key",
			Message: "API key is still the placeholder value",
		}
	}
	return nil
}

// SetDefaults fills zero values that would make the config unusable.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Provider.Name == "" {
		c.Provider.Name = d.Provider.Name
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = d.Provider.Temperature
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}
	if c.Storage.Path == "" {
		c.Storage.Path = d.Storage.Path
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides overlays environment variables onto the config.
func (c *Config) ApplyEnvOverrides() {
	if name := os.Getenv("ASPIRE_PROVIDER"); name != "" {
		c.Provider.Name = name
	}

	// Provider-specific keys only apply to their own provider.
	switch strings.ToLower(c.Provider.Name) {
	case ProviderOpenRouter:
		if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
	default:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			c.Provider.Model = model
		}
	}

	if model := os.Getenv("ASPIRE_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if path := os.Getenv("ASPIRE_DB_PATH"); path != "" {
		c.Storage.Path = path
	}
	if port := os.Getenv("ASPIRE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if token := os.Getenv("ASPIRE_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
}

// =============================================================================
// GET (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using its file key, e.g. "provider.model".
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds a struct field by its toml tag.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// =============================================================================
// REDACTION
// =============================================================================

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() *Config {
	safe := *c
	safe.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	return &safe
}

// String returns a JSON rendering with secrets redacted.
// SECURITY: keys must never appear in logs or CLI output.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
