// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across aspire packages.
//
//   - TruncateRunes / TruncateRunesAppend: UTF-8 safe truncation for titles,
//     previews and log lines
//   - AtomicWriteFile: crash-safe file writes used when persisting config
package util
