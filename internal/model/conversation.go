// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/aspire/internal/util"
)

const (
	// TitleMaxRunes is the number of characters of the first message kept in a title.
	TitleMaxRunes = 30

	// PreviewMaxRunes bounds the last-message preview in conversation listings.
	PreviewMaxRunes = 100
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a chat thread owned by a single user.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BelongsTo reports whether the conversation is owned by ownerID.
func (c *Conversation) BelongsTo(ownerID string) bool {
	return c != nil && ownerID != "" && c.OwnerID == ownerID
}

// ConversationSummary is the listing view of a conversation.
type ConversationSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastMessage string    `json:"last_message"`
}

// ConversationTitle derives a title from the first user message.
// Messages longer than TitleMaxRunes keep their first TitleMaxRunes characters
// followed by "...".
func ConversationTitle(message string) string {
	return util.TruncateRunesAppend(message, TitleMaxRunes)
}

// MessagePreview shortens a message for conversation listings.
func MessagePreview(message string) string {
	return util.TruncateRunesAppend(message, PreviewMaxRunes)
}
