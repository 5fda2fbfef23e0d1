// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the strategy and
// conversation subsystems.
//
// # Key Types
//
//   - StrategyRequest: Business parameters a strategy is generated for
//   - StrategyResult: The normalized strategy document returned to callers
//   - Resource: A recommended resource with its purpose and optional items
//   - Conversation: A persisted chat thread owned by one user
//   - Turn: A single user or assistant message inside a conversation
//   - SavedStrategy: A strategy document kept in the user's library
//
// # Usage
//
// Derive a conversation title from the first message:
//
//	title := model.ConversationTitle("How do I grow my bakery?")
//
// Build the two turns appended per chat call:
//
//	turns := []model.Turn{
//	    model.NewTurn(model.RoleUser, message),
//	    model.NewTurn(model.RoleAssistant, reply),
//	}
package model
