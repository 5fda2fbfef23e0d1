// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aspire/internal/config"
)

const testKey = "sk-or-test-abcdefghijklmnopqrstuvwxyz0123456789"

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenRouterClient(config.ProviderConfig{
		Name:    config.ProviderOpenRouter,
		APIKey:  testKey,
		BaseURL: server.URL + "/",
	}).WithHTTPClient(server.Client())
}

func TestOpenRouter_ChatSendsSamplingAndJSONMode(t *testing.T) {
	var got chatRequest
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"{\"title\":\"T\"}"},"finish_reason":"stop"}]}`))
	})

	out, err := client.Complete(context.Background(), "plan please", Options{
		TopP: 0.95, TopK: 40, MaxTokens: 2048, JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"T"}`, out)

	assert.Equal(t, DefaultOpenRouterModel, got.Model)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-9)
	assert.InDelta(t, 0.95, got.TopP, 1e-9)
	assert.Equal(t, 40, got.TopK)
	assert.Equal(t, 2048, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestOpenRouter_ChatPreservesMessageOrder(t *testing.T) {
	var got chatRequest
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	})

	msgs := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
		{Role: RoleUser, Content: "three"},
	}
	out, err := client.Chat(context.Background(), msgs, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, msgs, got.Messages)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenRouter_ErrorEnvelope(t *testing.T) {
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Rate limit exceeded: free-models-per-day"}}`))
	})

	_, err := client.Complete(context.Background(), "x", Options{})
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, "429", pe.Code)
	assert.Contains(t, pe.Message, "Rate limit exceeded")
}

func TestOpenRouter_UnparseableErrorBody(t *testing.T) {
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.Complete(context.Background(), "x", Options{})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.Status)
	assert.Equal(t, "upstream exploded", pe.Message)
}

func TestOpenRouter_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Complete(context.Background(), "x", Options{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "x", Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenRouter_ContentFilterIsBlock(t *testing.T) {
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`))
	})

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})
	assert.NotErrorIs(t, err, ErrEmptyResponse)
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "openrouter", pe.Provider)
	assert.Equal(t, "BLOCKED", pe.Code)
	assert.Equal(t, "response blocked due to content_filter", pe.Message)
}

func TestOpenRouter_DefaultConfigSendsOpenRouterModel(t *testing.T) {
	var models []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Provider.Name = config.ProviderOpenRouter
	cfg.Provider.APIKey = testKey
	cfg.Provider.BaseURL = server.URL

	p, err := New(context.Background(), cfg.Provider)
	require.NoError(t, err)
	client, ok := p.(*OpenRouterClient)
	require.True(t, ok)
	client.WithHTTPClient(server.Client())

	_, err = client.Complete(context.Background(), "x", OptionsFromConfig(cfg))
	require.NoError(t, err)
	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{Model: "anthropic/claude-3.5-sonnet"})
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultOpenRouterModel, "anthropic/claude-3.5-sonnet"}, models)
}

func TestOpenRouter_APIKeyMaskedNeverLeaksKey(t *testing.T) {
	c := NewOpenRouterClient(config.ProviderConfig{APIKey: testKey})
	masked := c.APIKeyMasked()
	assert.NotContains(t, masked, "sk-or")
	assert.True(t, strings.Contains(masked, KeyFingerprint(testKey)))

	empty := NewOpenRouterClient(config.ProviderConfig{})
	assert.Equal(t, "[not set]", empty.APIKeyMasked())
}

func TestNew_SelectsBackend(t *testing.T) {
	p, err := New(context.Background(), config.ProviderConfig{Name: config.ProviderOpenRouter, APIKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())

	_, err = New(context.Background(), config.ProviderConfig{Name: "bard", APIKey: testKey})
	var ce *config.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "provider.name", ce.Field)

	_, err = New(context.Background(), config.ProviderConfig{Name: config.ProviderGemini})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "provider.api_key", ce.Field)
}

func TestError_Format(t *testing.T) {
	e := &Error{Provider: "gemini", Status: 429, Code: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}
	assert.Equal(t, "gemini error [RESOURCE_EXHAUSTED] (HTTP 429): Quota exceeded", e.Error())

	e = &Error{Provider: "gemini", Code: "BLOCKED", Message: "blocked"}
	assert.Equal(t, "gemini error [BLOCKED]: blocked", e.Error())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.JSON = false

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.Provider.Model, opts.Model)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 0.95, opts.TopP)
	assert.Equal(t, 40, opts.TopK)
	assert.Equal(t, 2048, opts.MaxTokens)
	assert.False(t, opts.JSON)
}
