// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aspire/internal/model"
	"github.com/jeranaias/aspire/internal/provider"
)

func TestBuildStrategyPrompt_EmbedsFields(t *testing.T) {
	p := BuildStrategyPrompt(model.StrategyRequest{
		BusinessName:   "Rosa's Bakery",
		Industry:       "Food & Beverage",
		Goals:          "Open a second location",
		TargetAudience: "Commuters",
	})

	assert.Contains(t, p, "Business Name: Rosa's Bakery\n")
	assert.Contains(t, p, "Industry: Food & Beverage\n")
	assert.Contains(t, p, "Goals: Open a second location\n")
	assert.Contains(t, p, "Target Audience: Commuters\n")
	assert.Contains(t, p, "Challenges: Not specified\n")
	assert.Contains(t, p, "Timeframe: Not specified\n")
	assert.Contains(t, p, "Budget Considerations: Not specified\n")
}

func TestBuildStrategyPrompt_Instructions(t *testing.T) {
	p := BuildStrategyPrompt(model.StrategyRequest{BusinessName: "A", Industry: "B"})

	for _, k := range StrategyKeys {
		assert.Contains(t, p, "- "+k)
	}
	assert.Contains(t, p, "3-5 key strategic recommendations")
	assert.Contains(t, p, "Return ONLY the JSON object")
	assert.Contains(t, p, "markdown formatting")
}

func TestBuildStrategyPrompt_Deterministic(t *testing.T) {
	req := model.StrategyRequest{BusinessName: "A", Industry: "B", Budget: "$10k"}
	assert.Equal(t, BuildStrategyPrompt(req), BuildStrategyPrompt(req))
}

func TestBuildChatMessages_FirstTurnGetsPersona(t *testing.T) {
	msgs := BuildChatMessages("How do I price cupcakes?", nil)

	require.Len(t, msgs, 2)
	assert.Equal(t, provider.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "You are an expert business consultant"))
	assert.Contains(t, msgs[0].Content, "concise, actionable, and evidence-based")
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "How do I price cupcakes?"}, msgs[1])
}

func TestBuildChatMessages_HistoryInOrderWithoutPersona(t *testing.T) {
	history := []model.Turn{
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
	}
	msgs := BuildChatMessages("q2", history)

	assert.Equal(t, []provider.Message{
		{Role: provider.RoleUser, Content: "q1"},
		{Role: provider.RoleAssistant, Content: "a1"},
		{Role: provider.RoleUser, Content: "q2"},
	}, msgs)
}
