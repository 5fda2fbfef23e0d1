// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider talks to the generative-AI services that write strategies
// and chat replies.
//
// Two backends implement the Provider interface:
//
//   - GeminiClient: Google Gemini through google.golang.org/genai, with
//     permissive safety thresholds and JSON response mode
//   - OpenRouterClient: any OpenRouter-hosted model through the
//     OpenAI-compatible chat completions endpoint
//
// # Usage
//
//	p, err := provider.New(ctx, cfg.Provider)
//	text, err := p.Complete(ctx, prompt, provider.Options{Temperature: 0.7, JSON: true})
//
// # Failure contract
//
// A provider makes exactly one upstream call per request and never retries.
// Failures are returned raw (usually as *Error carrying the upstream status and
// message); turning them into actionable kinds is the job of package classify.
//
// # Security
//
// API keys are never logged. Use KeyFingerprint when a key must be identified
// in logs.
package provider
