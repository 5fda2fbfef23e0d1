// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversation transcripts to shareable files.
//
// # Key Types
//
//   - Transcript: A conversation and its ordered turns
//   - Exporter: Converts a transcript to bytes in one format
//   - Options: Metadata, timestamp and output directory settings
//
// # Supported Formats
//
//   - md: Markdown with YAML front matter
//   - html: Standalone page with embedded CSS
//   - json: The transcript as stored
//
// # Usage
//
//	exporter, err := export.ForFormat("md", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(transcript, exporter, opts)
package export
