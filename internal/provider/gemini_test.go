// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels records the last request and replays a canned response.
type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	calls    int

	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = cfg
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func newTestGemini(f *fakeModels) *GeminiClient {
	return &GeminiClient{
		models:  f,
		model:   DefaultGeminiModel,
		timeout: time.Second,
		safety:  permissiveSafety,
		keyID:   "test",
	}
}

func TestGemini_CompleteConfiguresSampling(t *testing.T) {
	f := &fakeModels{resp: textResponse(`{"title":"x"}`)}
	c := newTestGemini(f)

	out, err := c.Complete(context.Background(), "prompt", Options{TopP: 0.95, TopK: 40, MaxTokens: 2048, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, out)

	assert.Equal(t, DefaultGeminiModel, f.model)
	require.NotNil(t, f.config.Temperature)
	assert.InDelta(t, 0.7, *f.config.Temperature, 1e-6)
	require.NotNil(t, f.config.TopP)
	assert.InDelta(t, 0.95, *f.config.TopP, 1e-6)
	require.NotNil(t, f.config.TopK)
	assert.InDelta(t, 40, *f.config.TopK, 1e-6)
	assert.Equal(t, int32(2048), f.config.MaxOutputTokens)
	assert.Equal(t, "application/json", f.config.ResponseMIMEType)
	assert.Len(t, f.config.SafetySettings, 4)
	for _, s := range f.config.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
	}
}

func TestGemini_ChatMapsRoles(t *testing.T) {
	f := &fakeModels{resp: textResponse("sure")}
	c := newTestGemini(f)

	out, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a coach."},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "help"},
	}, Options{JSON: true, Model: "gemini-custom"})
	require.NoError(t, err)
	assert.Equal(t, "sure", out)

	assert.Equal(t, "gemini-custom", f.model)
	require.NotNil(t, f.config.SystemInstruction)
	assert.Equal(t, "You are a coach.", f.config.SystemInstruction.Parts[0].Text)
	assert.Empty(t, f.config.ResponseMIMEType, "chat replies are plain text")

	require.Len(t, f.contents, 3)
	assert.Equal(t, string(genai.RoleUser), f.contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), f.contents[1].Role)
	assert.Equal(t, "help", f.contents[2].Parts[0].Text)
}

func TestGemini_SkipsThoughtParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "answer"},
			}},
		}},
	}
	c := newTestGemini(&fakeModels{resp: resp})

	out, err := c.Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestGemini_PromptBlocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReasonSafety,
			SafetyRatings: []*genai.SafetyRating{
				{Category: genai.HarmCategoryDangerousContent, Probability: genai.HarmProbabilityHigh, Blocked: true},
				{Category: genai.HarmCategoryHarassment, Probability: genai.HarmProbabilityNegligible},
			},
		},
	}
	c := newTestGemini(&fakeModels{resp: resp})

	_, err := c.Complete(context.Background(), "p", Options{})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "BLOCKED", pe.Code)
	assert.Equal(t, "response blocked due to SAFETY: dangerous content", pe.Message)
}

func TestGemini_CandidateFinishedForSafety(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
			SafetyRatings: []*genai.SafetyRating{
				{Category: genai.HarmCategorySexuallyExplicit, Probability: genai.HarmProbabilityMedium},
			},
		}},
	}
	c := newTestGemini(&fakeModels{resp: resp})

	_, err := c.Complete(context.Background(), "p", Options{})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "sexually explicit")
}

func TestGemini_PolicyFinishReasonsAreBlocks(t *testing.T) {
	reasons := []genai.FinishReason{
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist,
		genai.FinishReasonSPII,
		genai.FinishReasonImageSafety,
	}
	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: reason}},
			}
			c := newTestGemini(&fakeModels{resp: resp})

			_, err := c.Complete(context.Background(), "p", Options{})
			assert.NotErrorIs(t, err, ErrEmptyResponse)
			var pe *Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "BLOCKED", pe.Code)
			assert.Equal(t, "response blocked due to "+string(reason), pe.Message)
		})
	}
}

func TestGemini_WrapsAPIError(t *testing.T) {
	f := &fakeModels{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for metric"}}
	c := newTestGemini(f)

	_, err := c.Complete(context.Background(), "p", Options{})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 429, pe.Status)
	assert.Equal(t, "RESOURCE_EXHAUSTED", pe.Code)
	assert.Equal(t, 1, f.calls)
}

func TestGemini_PassesThroughTransportError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	c := newTestGemini(&fakeModels{err: boom})

	_, err := c.Complete(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, boom)
}

func TestGemini_EmptyResponse(t *testing.T) {
	c := newTestGemini(&fakeModels{resp: &genai.GenerateContentResponse{}})
	_, err := c.Complete(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestHumanizeCategory(t *testing.T) {
	assert.Equal(t, "hate speech", humanizeCategory("HARM_CATEGORY_HATE_SPEECH"))
	assert.Equal(t, "harassment", humanizeCategory("HARM_CATEGORY_HARASSMENT"))
}
