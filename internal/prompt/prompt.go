// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt renders strategy requests and chat history into provider input.
// Every function here is pure.
package prompt

import (
	"strings"

	"github.com/jeranaias/aspire/internal/model"
	"github.com/jeranaias/aspire/internal/provider"
)

// StrategyKeys are the JSON keys the provider is asked to return.
var StrategyKeys = []string{"title", "summary", "strategies", "action_plan", "resources"}

// ChatPersona is sent as the system message at the start of a conversation.
const ChatPersona = `You are an expert business consultant for Aspire, providing practical advice and strategies for small and medium-sized businesses.
Keep your responses concise, actionable, and evidence-based. When appropriate, use examples and case studies to illustrate your points.
Your goal is to help businesses grow and overcome challenges with practical, implementable advice.`

// BuildStrategyPrompt renders req into the strategy-generation prompt.
func BuildStrategyPrompt(req model.StrategyRequest) string {
	var sb strings.Builder

	sb.WriteString("You are an expert business strategist. Generate a comprehensive business strategy for the following business:\n\n")

	field(&sb, "Business Name", req.BusinessName)
	field(&sb, "Industry", req.Industry)
	field(&sb, "Challenges", model.OrNotSpecified(req.Challenges))
	field(&sb, "Goals", model.OrNotSpecified(req.Goals))
	field(&sb, "Target Audience", model.OrNotSpecified(req.TargetAudience))
	field(&sb, "Timeframe", model.OrNotSpecified(req.Timeframe))
	field(&sb, "Budget Considerations", model.OrNotSpecified(req.Budget))

	sb.WriteString("\nPlease provide:\n")
	sb.WriteString("1. A catchy title for this strategy\n")
	sb.WriteString("2. An executive summary\n")
	sb.WriteString("3. 3-5 key strategic recommendations\n")
	sb.WriteString("4. A specific action plan with steps\n")
	sb.WriteString("5. Resource recommendations\n\n")

	sb.WriteString("Format your response as a valid JSON object with exactly these keys:\n")
	for _, k := range StrategyKeys {
		sb.WriteString("- ")
		sb.WriteString(k)
		switch k {
		case "strategies", "action_plan", "resources":
			sb.WriteString(" (array)")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nVery important: Return ONLY the JSON object with no additional text, markdown formatting, or code block syntax.\n")
	return sb.String()
}

func field(sb *strings.Builder, label, value string) {
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(strings.TrimSpace(value))
	sb.WriteString("\n")
}

// BuildChatMessages renders history plus the new message into a provider
// message list. The persona is prepended only when history is empty.
func BuildChatMessages(message string, history []model.Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(history)+2)

	if len(history) == 0 {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: ChatPersona})
	}

	for _, t := range history {
		role := provider.RoleUser
		if t.Role == model.RoleAssistant {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: t.Content})
	}

	return append(msgs, provider.Message{Role: provider.RoleUser, Content: message})
}
