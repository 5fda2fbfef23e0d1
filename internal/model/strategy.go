// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// NotSpecified is rendered in place of optional request fields that were left empty.
const NotSpecified = "Not specified"

// =============================================================================
// STRATEGY REQUEST
// =============================================================================

// StrategyRequest carries the business parameters a strategy is generated for.
// BusinessName and Industry are required; every other field is optional.
type StrategyRequest struct {
	BusinessName   string `json:"business_name"`
	Industry       string `json:"industry"`
	Challenges     string `json:"challenges,omitempty"`
	Goals          string `json:"goals,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
	Timeframe      string `json:"timeframe,omitempty"`
	Budget         string `json:"budget,omitempty"`
}

// Validate returns the names of required fields that are missing.
func (r StrategyRequest) Validate() []string {
	var missing []string
	if strings.TrimSpace(r.BusinessName) == "" {
		missing = append(missing, "business_name")
	}
	if strings.TrimSpace(r.Industry) == "" {
		missing = append(missing, "industry")
	}
	return missing
}

// OrNotSpecified returns v, or NotSpecified when v is blank.
func OrNotSpecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotSpecified
	}
	return v
}

// =============================================================================
// STRATEGY RESULT
// =============================================================================

// Resource is a recommended resource in a strategy.
type Resource struct {
	Name    string   `json:"name"`
	Purpose string   `json:"purpose"`
	Items   []string `json:"items"`
}

// StrategyResult is the normalized strategy document.
// Title, Summary, Strategies, ActionPlan and Resources are always populated with
// well-typed values, even when the provider output could not be parsed.
type StrategyResult struct {
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Strategies []string   `json:"strategies"`
	ActionPlan []string   `json:"action_plan"`
	Resources  []Resource `json:"resources"`

	// Degraded is set when the fallback document was substituted.
	Degraded bool `json:"-"`
}

// =============================================================================
// SAVED STRATEGY
// =============================================================================

// SavedStrategy is a strategy document stored in a user's library.
type SavedStrategy struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	Title        string    `json:"title"`
	BusinessName string    `json:"business_name,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
