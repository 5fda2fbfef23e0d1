// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package normalize turns raw provider text into the strategy and chat contracts.
//
// NormalizeStrategy never fails. Output that cannot be parsed is replaced by a
// deterministic fallback document flagged as Degraded; output that parses but
// has missing or wrongly-typed fields gets a substitute for that field only.
//
// # Repairs
//
//   - A leading ``` fence (with optional language tag) and a trailing ``` fence
//   - Prose around the JSON object (first balanced {...} span is used)
//   - Action-plan steps given as objects are flattened to one line each
//   - Resources given as objects or bare strings become {name, purpose, items}
//   - Strategy entries given as objects become "Title: Description"
package normalize
