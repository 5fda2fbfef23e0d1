// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify maps raw provider failures onto a closed error taxonomy.
//
// Classification runs an ordered rule chain; the first matching rule wins.
// Structured status codes are consulted before message text, and unknown
// failures always fall through to KindProviderError.
package classify

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jeranaias/aspire/internal/provider"
)

// =============================================================================
// TAXONOMY
// =============================================================================

// Kind is the top-level classification.
type Kind int

const (
	KindProviderError Kind = iota
	KindQuotaExceeded
	KindContentFiltered
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindContentFiltered:
		return "content_filtered"
	default:
		return "provider_error"
	}
}

// FilterType is the sub-kind of a content-filter failure.
type FilterType string

const (
	FilterSexuallyExplicit FilterType = "sexually_explicit"
	FilterHarassment       FilterType = "harassment"
	FilterHateSpeech       FilterType = "hate_speech"
	FilterDangerousContent FilterType = "dangerous_content"
	FilterUnknown          FilterType = "unknown"
)

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	FilterType FilterType // set only for KindContentFiltered
	Message    string
	Err        error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrQuotaExceeded   = &Error{Kind: KindQuotaExceeded}
	ErrContentFiltered = &Error{Kind: KindContentFiltered}
	ErrProviderError   = &Error{Kind: KindProviderError}
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindQuotaExceeded:
		return "quota exceeded: " + e.Message
	case KindContentFiltered:
		return "content filtered (" + string(e.FilterType) + "): " + e.Message
	default:
		return "provider error: " + e.Message
	}
}

// Unwrap returns the raw provider error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by kind, and by filter type when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.FilterType == "" || t.FilterType == e.FilterType
}

// =============================================================================
// RULE CHAIN
// =============================================================================

// signal is everything a rule may inspect.
type signal struct {
	err    error
	raw    string // original error text
	folded string // case-folded message
	status int
	code   string // upper-cased provider code
}

type rule struct {
	name  string
	match func(s signal) bool
	build func(s signal) *Error
}

// quotaCodes are provider codes that always mean quota or rate limiting.
var quotaCodes = map[string]bool{
	"RESOURCE_EXHAUSTED":   true,
	"RATE_LIMIT_EXCEEDED":  true,
	"RATE_LIMITED":         true,
	"INSUFFICIENT_QUOTA":   true,
	"INSUFFICIENT_CREDITS": true,
	"429":                  true,
	"402":                  true,
}

// rules is evaluated in order; keep structured checks ahead of text checks.
var rules = []rule{
	{
		name: "quota-code",
		match: func(s signal) bool {
			return s.status == http.StatusTooManyRequests ||
				s.status == http.StatusPaymentRequired ||
				quotaCodes[s.code]
		},
		build: quota,
	},
	{
		name:  "blocked-code",
		match: func(s signal) bool { return s.code == "BLOCKED" },
		build: filtered,
	},
	{
		name:  "quota-text",
		match: func(s signal) bool { return containsAny(s.folded, "quota", "rate limit") },
		build: quota,
	},
	{
		name:  "filter-text",
		match: func(s signal) bool { return containsAny(s.folded, "dangerous_content", "blocked", "safety") },
		build: filtered,
	},
}

// Classify maps a provider failure onto the taxonomy.
// It returns nil for nil, and returns an already classified error unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	s := newSignal(err)
	if r, ok := firstMatch(s); ok {
		return r.build(s)
	}
	return &Error{Kind: KindProviderError, Message: s.raw, Err: err}
}

func firstMatch(s signal) (rule, bool) {
	for _, r := range rules {
		if r.match(s) {
			return r, true
		}
	}
	return rule{}, false
}

func newSignal(err error) signal {
	s := signal{err: err, raw: err.Error()}

	var pe *provider.Error
	if errors.As(err, &pe) {
		s.status = pe.Status
		s.code = strings.ToUpper(strings.TrimSpace(pe.Code))
		if s.code == "" && pe.Status != 0 {
			s.code = strconv.Itoa(pe.Status)
		}
	}

	s.folded = cases.Fold().String(s.raw)
	return s
}

func quota(s signal) *Error {
	return &Error{
		Kind:    KindQuotaExceeded,
		Message: "AI provider quota exceeded or rate limited. This may be due to free tier limitations. Please try again later.",
		Err:     s.err,
	}
}

func filtered(s signal) *Error {
	ft := filterType(s.folded)
	return &Error{
		Kind:       KindContentFiltered,
		FilterType: ft,
		Message:    Guidance(ft),
		Err:        s.err,
	}
}

// filterType picks the sub-kind by priority. Underscores are treated as
// spaces so SDK category names (HARM_CATEGORY_HATE_SPEECH) match too.
func filterType(folded string) FilterType {
	text := strings.ReplaceAll(folded, "_", " ")
	switch {
	case strings.Contains(text, "sexually explicit"):
		return FilterSexuallyExplicit
	case strings.Contains(text, "harassment"):
		return FilterHarassment
	case strings.Contains(text, "hate speech"):
		return FilterHateSpeech
	case strings.Contains(text, "dangerous"):
		return FilterDangerousContent
	default:
		return FilterUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// =============================================================================
// USER GUIDANCE
// =============================================================================

const guidancePrefix = "Your request was blocked by the AI provider's content filter. "

// Guidance returns actionable text for a content-filter sub-kind.
func Guidance(ft FilterType) string {
	switch ft {
	case FilterSexuallyExplicit:
		return guidancePrefix + "Please modify your business details to avoid terms that could be interpreted as sexually explicit."
	case FilterHateSpeech:
		return guidancePrefix + "Please ensure your business details don't contain language that could be interpreted as hate speech or discriminatory."
	case FilterHarassment:
		return guidancePrefix + "Please modify your business details to avoid language that could be interpreted as harassment."
	case FilterDangerousContent:
		return guidancePrefix + "Please modify your business details to avoid terms related to dangerous activities or products."
	default:
		return guidancePrefix + "Please modify your business details to avoid potentially sensitive content."
	}
}
