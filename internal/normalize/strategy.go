// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/jeranaias/aspire/internal/model"
)

// Fallback document text.
const (
	FallbackSummary    = "The AI generated a response but it couldn't be parsed as JSON. Please try again."
	FallbackStrategy   = "Please try again with more specific details about your business."
	FallbackActionStep = "Contact support if this issue persists."

	// missingValue is rendered for absent fields inside an action-plan step.
	missingValue = "TBD"

	unknownResource = "Unknown Resource"
)

// errNotObject is returned when the text parses but is not a JSON object.
var errNotObject = errors.New("top-level JSON value is not an object")

// NormalizeStrategy parses raw provider output into a StrategyResult.
// businessName is only used for the fallback title.
func NormalizeStrategy(raw, businessName string) model.StrategyResult {
	obj, err := parseObject(StripFences(raw))
	if err != nil {
		span, ok := FirstObjectSpan(raw)
		if !ok {
			return Fallback(businessName)
		}
		if obj, err = parseObject(span); err != nil {
			return Fallback(businessName)
		}
	}
	return fromObject(obj, businessName)
}

// NormalizeChatReply passes chat text through unchanged.
func NormalizeChatReply(raw string) string {
	return raw
}

// Fallback returns the deterministic placeholder document.
func Fallback(businessName string) model.StrategyResult {
	return model.StrategyResult{
		Title:      fallbackTitle(businessName),
		Summary:    FallbackSummary,
		Strategies: []string{FallbackStrategy},
		ActionPlan: []string{FallbackActionStep},
		Resources:  []model.Resource{},
		Degraded:   true,
	}
}

func fallbackTitle(businessName string) string {
	return "Strategic Plan for " + businessName
}

// =============================================================================
// PARSING
// =============================================================================

// StripFences removes one leading ``` marker (and its language tag) and one
// trailing ``` marker, then trims whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "```"); ok {
		tagEnd := strings.IndexFunc(rest, func(r rune) bool {
			return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
		})
		if tagEnd < 0 {
			tagEnd = len(rest)
		}
		s = rest[tagEnd:]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FirstObjectSpan returns the first balanced {...} span in s.
// Braces inside JSON strings are ignored.
func FirstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseObject strictly decodes s as a single JSON object.
func parseObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// =============================================================================
// FIELD NORMALIZATION
// =============================================================================

func fromObject(obj map[string]any, businessName string) model.StrategyResult {
	res := model.StrategyResult{
		Title:      fallbackTitle(businessName),
		Strategies: []string{},
		ActionPlan: []string{},
		Resources:  []model.Resource{},
	}

	if s, ok := scalarString(obj["title"]); ok && s != "" {
		res.Title = s
	}
	if s, ok := scalarString(obj["summary"]); ok {
		res.Summary = s
	}

	for _, v := range asList(obj["strategies"]) {
		res.Strategies = append(res.Strategies, strategyEntry(v))
	}
	for _, v := range asList(obj["action_plan"]) {
		res.ActionPlan = append(res.ActionPlan, actionStep(v))
	}
	for _, v := range asList(obj["resources"]) {
		if r, ok := resource(v); ok {
			res.Resources = append(res.Resources, r)
		}
	}

	return res
}

// asList treats a lone value as a one-element list and null as empty.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// scalarString renders strings, numbers and booleans.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// anyString renders any JSON value as text, using compact JSON for containers.
func anyString(v any) string {
	if s, ok := scalarString(v); ok {
		return s
	}
	if v == nil {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}

// field returns the rendered value of key, or "" when absent or null.
func field(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			if s := anyString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// strategyEntry flattens {"title": T, "description": D} into "T: D".
func strategyEntry(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return anyString(v)
	}

	title := field(obj, "title", "name", "strategy")
	desc := field(obj, "description", "details")
	switch {
	case title != "" && desc != "":
		return title + ": " + desc
	case title != "" && len(obj) == 1:
		return title
	default:
		return anyString(obj)
	}
}

// actionStep flattens a step object into
// "Step {step}: {action} (Timeline: {timeline}, Budget: {budget})".
func actionStep(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return anyString(v)
	}
	return fmt.Sprintf("Step %s: %s (Timeline: %s, Budget: %s)",
		orDefault(field(obj, "step"), missingValue),
		orDefault(field(obj, "action"), missingValue),
		orDefault(field(obj, "timeline"), missingValue),
		orDefault(field(obj, "budget"), missingValue),
	)
}

// resource maps an object or bare string to a Resource.
func resource(v any) (model.Resource, bool) {
	switch t := v.(type) {
	case map[string]any:
		name := orDefault(field(t, "type", "name"), unknownResource)
		return model.Resource{
			Name:    name,
			Purpose: orDefault(field(t, "purpose"), "Purpose for "+name),
			Items:   items(t["items"]),
		}, true
	case nil:
		return model.Resource{}, false
	default:
		name := anyString(t)
		if name == "" {
			return model.Resource{}, false
		}
		return model.Resource{Name: name, Purpose: "Purpose for " + name, Items: []string{}}, true
	}
}

func items(v any) []string {
	list := asList(v)
	out := make([]string, 0, len(list))
	for _, it := range list {
		if s := anyString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
