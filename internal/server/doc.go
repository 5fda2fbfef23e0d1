// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes strategy generation, chat and the saved-strategy
// library over HTTP.
//
// # Endpoints
//
//   - POST   /ai/generate-strategy   - Generate a strategy document
//   - POST   /ai/chatbot             - Send a chat message
//   - GET    /ai/conversations       - List the caller's conversations
//   - GET    /ai/conversations/{id}  - Messages in one conversation
//   - POST   /strategies             - Save a strategy
//   - GET    /strategies             - List saved strategies
//   - GET    /strategies/{id}        - Get a saved strategy
//   - DELETE /strategies/{id}        - Delete a saved strategy
//   - GET    /health                 - Health check
//
// # Identity
//
// Users are authenticated upstream. Every non-public request must carry the
// user ID in the X-Owner-Id header; a shared bearer token can additionally
// be required with server.auth_token.
//
// # Errors
//
// Failures use a JSON envelope {"error": {"message", "type", "code"}}.
// Quota exhaustion is 402, content-filter blocks are 400 with guidance text
// and other provider failures are 502.
//
// # Usage
//
//	srv := server.New(cfg.Server, generator, manager, store).WithHealthCheck(store)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
