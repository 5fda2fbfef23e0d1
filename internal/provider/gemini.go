// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jeranaias/aspire/internal/config"
)

// DefaultGeminiModel is used when the config names no model.
const DefaultGeminiModel = "gemini-1.5-pro"

// permissiveSafety disables category-level blocking. Business strategy
// prompts routinely mention competitors, layoffs, pricing wars and similar
// language that the default thresholds flag.
var permissiveSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
}

// contentGenerator is the slice of *genai.Models used by the client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient is a Provider backed by the Gemini API.
type GeminiClient struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	safety  []*genai.SafetySetting
	keyID   string
}

// NewGeminiClient creates a Gemini client from provider configuration.
func NewGeminiClient(ctx context.Context, cfg config.ProviderConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{
		models:  client.Models,
		model:   model,
		timeout: timeoutFor(cfg),
		safety:  permissiveSafety,
		keyID:   KeyFingerprint(cfg.APIKey),
	}, nil
}

// Name implements Provider.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Model returns the default model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete implements Provider.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	contents := []*genai.Content{
		{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: prompt}}},
	}
	return c.generate(ctx, contents, c.generationConfig(opts, nil), opts.Model)
}

// Chat implements Provider.
// System messages become the system instruction; assistant turns are sent
// with the "model" role Gemini expects.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	opts.JSON = false
	return c.generate(ctx, contents, c.generationConfig(opts, instruction), opts.Model)
}

// generationConfig maps Options onto the Gemini request configuration.
func (c *GeminiClient) generationConfig(opts Options, instruction *genai.Content) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:       float32Ptr(opts.temperature()),
		SafetySettings:    c.safety,
		SystemInstruction: instruction,
	}
	if opts.TopP > 0 {
		gc.TopP = float32Ptr(opts.TopP)
	}
	if opts.TopK > 0 {
		gc.TopK = float32Ptr(float64(opts.TopK))
	}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSON {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

// generate performs exactly one GenerateContent call.
func (c *GeminiClient) generate(ctx context.Context, contents []*genai.Content, gc *genai.GenerateContentConfig, model string) (string, error) {
	if model == "" {
		model = c.model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		log.Printf("PROVIDER_CALL | provider=gemini model=%s key=%s status=error duration=%v", model, c.keyID, time.Since(start))
		return "", wrapGeminiError(err)
	}
	log.Printf("PROVIDER_CALL | provider=gemini model=%s key=%s status=ok duration=%v", model, c.keyID, time.Since(start))

	return responseText(resp)
}

// wrapGeminiError normalizes SDK errors into *Error when the SDK exposes a code.
func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: "gemini", Status: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &Error{Provider: "gemini", Status: apiErrPtr.Code, Code: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

// responseText extracts the reply or reports a safety block as an error.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", blockedError(string(fb.BlockReason), fb.SafetyRatings)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	if blockedFinish[cand.FinishReason] {
		return "", blockedError(string(cand.FinishReason), cand.SafetyRatings)
	}
	if cand.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// blockedFinish lists the finish reasons that mean the candidate was withheld
// by a content policy.
var blockedFinish = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonSPII:              true,
	genai.FinishReasonImageSafety:       true,
}

// blockedError renders a safety block as "response blocked due to REASON: categories".
func blockedError(reason string, ratings []*genai.SafetyRating) error {
	var categories []string
	for _, r := range ratings {
		if r == nil {
			continue
		}
		if r.Blocked || r.Probability == genai.HarmProbabilityHigh || r.Probability == genai.HarmProbabilityMedium {
			categories = append(categories, humanizeCategory(string(r.Category)))
		}
	}

	msg := "response blocked due to " + reason
	if len(categories) > 0 {
		msg += ": " + strings.Join(categories, ", ")
	}
	return &Error{Provider: "gemini", Code: "BLOCKED", Message: msg}
}

// humanizeCategory turns HARM_CATEGORY_HATE_SPEECH into "hate speech".
func humanizeCategory(category string) string {
	c := strings.TrimPrefix(category, "HARM_CATEGORY_")
	return strings.ToLower(strings.ReplaceAll(c, "_", " "))
}

func float32Ptr(v float64) *float32 {
	f := float32(v)
	return &f
}
