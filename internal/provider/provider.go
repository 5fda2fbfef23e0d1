// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/aspire/internal/config"
)

const (
	// DefaultTemperature is used when Options.Temperature is zero.
	DefaultTemperature = 0.7

	// DefaultTimeout bounds a single upstream call when the config sets none.
	DefaultTimeout = 60 * time.Second
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse indicates the provider answered without any text.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the sampling configuration of one call.
// Zero values mean "provider default", except Temperature which falls back to
// DefaultTemperature.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int

	// JSON asks the provider to emit a JSON document (response MIME type).
	JSON bool
}

// OptionsFromConfig builds call options from the provider and generation sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
		TopP:        cfg.Generation.TopP,
		TopK:        cfg.Generation.TopK,
		MaxTokens:   cfg.Generation.MaxTokens,
		JSON:        cfg.Generation.JSON,
	}
}

// temperature returns the effective temperature for the call.
func (o Options) temperature() float64 {
	if o.Temperature <= 0 {
		return DefaultTemperature
	}
	return o.Temperature
}

// Provider is a generative-AI backend.
type Provider interface {
	// Complete sends a single prompt and returns the raw text.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// Chat sends an ordered message list and returns the assistant reply.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Name identifies the backend in logs.
	Name() string
}

// =============================================================================
// ERRORS
// =============================================================================

// Error is an upstream failure normalized across backends.
// Status is the HTTP/RPC status when known, Code the provider's symbolic code
// (for example "RESOURCE_EXHAUSTED" or "rate_limit_exceeded").
type Error struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Provider)
	sb.WriteString(" error")
	if e.Code != "" {
		sb.WriteString(" [" + e.Code + "]")
	}
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.Status)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New builds the provider named by cfg.Name.
// cfg must already be validated; New does not re-check the API key beyond
// refusing an empty one.
func New(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &config.ConfigurationError{Field: "provider.api_key", Message: "API key not configured"}
	}

	switch strings.ToLower(cfg.Name) {
	case config.ProviderGemini, "":
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOpenRouter:
		return NewOpenRouterClient(cfg), nil
	default:
		return nil, &config.ConfigurationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("unknown provider %q", cfg.Name),
		}
	}
}

// KeyFingerprint returns a short SHA-256 fingerprint of an API key for logs.
// SECURITY: never exposes any fragment of the key itself.
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:4])
}

// timeoutFor converts the configured seconds into a duration.
func timeoutFor(cfg config.ProviderConfig) time.Duration {
	if cfg.TimeoutSecs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(cfg.TimeoutSecs) * time.Second
}
