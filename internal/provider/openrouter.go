// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/aspire/internal/config"
)

const (
	// DefaultOpenRouterURL is the base URL for the OpenRouter API.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultOpenRouterModel is used when the config names no model.
	DefaultOpenRouterModel = "google/gemini-pro-1.5"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: prevents memory exhaustion from a misbehaving upstream.
	MaxResponseSize = 10 * 1024 * 1024

	// finishContentFilter is the finish_reason of a moderated completion.
	finishContentFilter = "content_filter"
)

// sharedHTTPClient pools connections across all OpenRouter requests.
// The per-request deadline comes from the context, not the client.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
	TopP           float64         `json:"top_p,omitempty"`
	TopK           int             `json:"top_k,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the completion response we read.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// apiErrorResponse is the error envelope returned by OpenRouter.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// OpenRouterClient is a Provider backed by the OpenRouter chat completions API.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	siteName   string
	httpClient *http.Client
}

// NewOpenRouterClient creates a client from provider configuration.
func NewOpenRouterClient(cfg config.ProviderConfig) *OpenRouterClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	model := openRouterModel(cfg.Model)

	return &OpenRouterClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		model:      model,
		timeout:    timeoutFor(cfg),
		siteName:   "aspire",
		httpClient: sharedHTTPClient,
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *OpenRouterClient) WithHTTPClient(hc *http.Client) *OpenRouterClient {
	c.httpClient = hc
	return c
}

// Name implements Provider.
func (c *OpenRouterClient) Name() string {
	return "openrouter"
}

// Model returns the default model identifier.
func (c *OpenRouterClient) Model() string {
	return c.model
}

// APIKeyMasked returns a display-safe description of the API key.
func (c *OpenRouterClient) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), KeyFingerprint(c.apiKey))
}

// Complete implements Provider.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts)
}

// Chat implements Provider. Exactly one HTTP request is made; failures are
// returned to the caller unretried.
func (c *OpenRouterClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	model := c.model
	if opts.Model != "" {
		model = openRouterModel(opts.Model)
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.temperature(),
		TopP:        opts.TopP,
		TopK:        opts.TopK,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.doRequest(ctx, c.baseURL+"/chat/completions", reqBody)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 && resp.Choices[0].FinishReason == finishContentFilter {
		return "", &Error{Provider: "openrouter", Code: "BLOCKED", Message: "response blocked due to " + finishContentFilter}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// openRouterModel maps the Gemini default, which config.Default sets, to the
// OpenRouter id of the same model family.
func openRouterModel(model string) string {
	if model == "" || model == DefaultGeminiModel {
		return DefaultOpenRouterModel
	}
	return model
}

// setHeaders sets the required headers for OpenRouter API requests.
func (c *OpenRouterClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "aspire/1.0")
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// doRequest performs a single HTTP request to the chat completions endpoint.
func (c *OpenRouterClient) doRequest(ctx context.Context, requestURL string, reqBody chatRequest) (*chatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: drop the credential before anything can log the request.
	req.Header.Del("Authorization")

	if err != nil {
		log.Printf("PROVIDER_CALL | provider=openrouter model=%s key=%s status=error duration=%v", reqBody.Model, KeyFingerprint(c.apiKey), time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("PROVIDER_CALL | provider=openrouter model=%s key=%s status=%d duration=%v", reqBody.Model, KeyFingerprint(c.apiKey), resp.StatusCode, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an HTTP error response into *Error.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &Error{
			Provider: "openrouter",
			Status:   statusCode,
			Code:     rawCode(apiErr.Error.Code),
			Message:  apiErr.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &Error{Provider: "openrouter", Status: statusCode, Message: msg}
}

// rawCode renders an error code that may arrive as a string or a number.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
