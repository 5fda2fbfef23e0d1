// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

// UNICODE: all helpers count runes, never bytes, so multi-byte characters are
// never split.

// TruncateRunes shortens s to at most maxRunes runes. When s is cut, the
// last three runes of the budget are replaced by "...".
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesAppend keeps the first keepRunes runes of s and appends "..."
// when anything was cut, so the result may be up to keepRunes+3 runes long.
func TruncateRunesAppend(s string, keepRunes int) string {
	if keepRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= keepRunes {
		return s
	}
	return string(runes[:keepRunes]) + "..."
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return len([]rune(s))
}
