// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GEMINI_MODEL", "OPENROUTER_API_KEY",
		"ASPIRE_PROVIDER", "ASPIRE_MODEL", "ASPIRE_DB_PATH", "ASPIRE_PORT", "ASPIRE_AUTH_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ProviderGemini, cfg.Provider.Name)
	assert.Equal(t, "gemini-1.5-pro", cfg.Provider.Model)
	assert.InDelta(t, 0.7, cfg.Provider.Temperature, 1e-9)
	assert.InDelta(t, 0.95, cfg.Generation.TopP, 1e-9)
	assert.Equal(t, 40, cfg.Generation.TopK)
	assert.Equal(t, 2048, cfg.Generation.MaxTokens)
	assert.True(t, cfg.Generation.JSON)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Zero(t, cfg.Server.RateLimitPerMinute)
	assert.Empty(t, cfg.Provider.APIKey)
}

func TestLoadFromPath_TOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
[provider]
api_key = "real-key-123"
model = "gemini-1.5-flash"

[generation]
max_tokens = 1024

[storage]
path = "/tmp/aspire-test.db"

[server]
port = 9000
allowed_origins = ["https://app.example.com"]
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "real-key-123", cfg.Provider.APIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.Provider.Model)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, 40, cfg.Generation.TopK, "unset values keep defaults")
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"provider":{"name":"openrouter","api_key":"sk-or-abc"}}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, cfg.Provider.Name)
	assert.Equal(t, "sk-or-abc", cfg.Provider.APIKey)
}

func TestLoadFromPath_MissingKeyIsConfigurationError(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", "[server]\nport = 8080\n")

	_, err := LoadFromPath(path)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "provider.api_key", ce.Field)
}

func TestValidateKey_Placeholders(t *testing.T) {
	for _, key := range []string{"your-gemini-api-key", "YOUR-OPENROUTER-API-KEY", "changeme", "  "} {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			cfg.Provider.APIKey = key
			var ce *ConfigurationError
			assert.True(t, errors.As(cfg.Validate(), &ce))
		})
	}
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "k"
	cfg.Provider.Name = "bard"
	cfg.Generation.TopP = 1.5
	cfg.Server.Port = 70000

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"provider.name", "generation.top_p", "server.port"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("ASPIRE_DB_PATH", "/var/lib/aspire.db")
	t.Setenv("ASPIRE_PORT", "9100")
	t.Setenv("ASPIRE_AUTH_TOKEN", "tok")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider.Model)
	assert.Equal(t, "/var/lib/aspire.db", cfg.Storage.Path)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "tok", cfg.Server.AuthToken)
}

func TestApplyEnvOverrides_OpenRouterKeyOnlyForOpenRouter(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-env")
	t.Setenv("GEMINI_API_KEY", "gem-env")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "gem-env", cfg.Provider.APIKey)

	t.Setenv("ASPIRE_PROVIDER", "openrouter")
	cfg = Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-or-env", cfg.Provider.APIKey)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Provider.APIKey = "saved-key"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider, loaded.Provider)
	assert.Equal(t, cfg.Server.AllowedOrigins, loaded.Server.AllowedOrigins)
}

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("provider.model")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", v)

	v, err = cfg.Get("server.port")
	require.NoError(t, err)
	assert.Equal(t, 8000, v)

	_, err = cfg.Get("provider.nope")
	assert.Error(t, err)
	_, err = cfg.Get("server.port.x")
	assert.Error(t, err)
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "super-secret"
	cfg.Server.AuthToken = "bearer-secret"

	s := cfg.String()
	assert.NotContains(t, s, "super-secret")
	assert.NotContains(t, s, "bearer-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "super-secret", cfg.Provider.APIKey, "original untouched")
}
