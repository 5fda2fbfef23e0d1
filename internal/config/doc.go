// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves aspire configuration.
//
// Supports TOML and JSON files, with defaults, environment variable overrides
// and validation. The validated *Config is built once at startup and passed
// down explicitly; there is no global instance.
//
// # Configuration Precedence
//
//   - Environment variables (GEMINI_API_KEY, OPENROUTER_API_KEY, ASPIRE_*)
//   - --config <path>, or ~/.aspire/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.LoadFromPath(path)
//	var ce *config.ConfigurationError
//	if errors.As(err, &ce) {
//	    log.Fatal(err)
//	}
package config
