// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationTitle_Truncates45CharMessage(t *testing.T) {
	msg := strings.Repeat("a", 45)

	title := ConversationTitle(msg)

	assert.Equal(t, strings.Repeat("a", 30)+"...", title)
	assert.Equal(t, 33, utf8.RuneCountInString(title))
}

func TestConversationTitle_ShortMessageUnchanged(t *testing.T) {
	assert.Equal(t, "Pricing advice", ConversationTitle("Pricing advice"))
}

func TestMessagePreview(t *testing.T) {
	long := strings.Repeat("x", 150)
	assert.Equal(t, strings.Repeat("x", 100)+"...", MessagePreview(long))
	assert.Equal(t, "hi", MessagePreview("hi"))
}

func TestStrategyRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  StrategyRequest
		want []string
	}{
		{"complete", StrategyRequest{BusinessName: "Acme", Industry: "Retail"}, nil},
		{"missing name", StrategyRequest{Industry: "Retail"}, []string{"business_name"}},
		{"blank both", StrategyRequest{BusinessName: "  ", Industry: ""}, []string{"business_name", "industry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Validate())
		})
	}
}

func TestOrNotSpecified(t *testing.T) {
	assert.Equal(t, NotSpecified, OrNotSpecified(""))
	assert.Equal(t, NotSpecified, OrNotSpecified("   "))
	assert.Equal(t, "$10k", OrNotSpecified("$10k"))
}

func TestNewTurn(t *testing.T) {
	turn := NewTurn(RoleUser, "hello")

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, RoleUser, turn.Role)
	assert.False(t, turn.CreatedAt.IsZero())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
}

func TestConversation_BelongsTo(t *testing.T) {
	conv := &Conversation{ID: "c1", OwnerID: "owner-a"}

	assert.True(t, conv.BelongsTo("owner-a"))
	assert.False(t, conv.BelongsTo("owner-b"))
	assert.False(t, conv.BelongsTo(""))

	var missing *Conversation
	assert.False(t, missing.BelongsTo("owner-a"))
}

func TestStrategyResult_JSONShape(t *testing.T) {
	res := StrategyResult{
		Title:      "T",
		Summary:    "S",
		Strategies: []string{"a"},
		ActionPlan: []string{"b"},
		Resources:  []Resource{{Name: "Budget", Purpose: "Purpose for Budget", Items: []string{}}},
		Degraded:   true,
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "T",
		"summary": "S",
		"strategies": ["a"],
		"action_plan": ["b"],
		"resources": [{"name": "Budget", "purpose": "Purpose for Budget", "items": []}]
	}`, string(data))
}
