// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the multi-turn chat contract: ownership checks,
// history reconstruction and atomic persistence of each user/assistant pair.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/aspire/internal/classify"
	"github.com/jeranaias/aspire/internal/model"
	"github.com/jeranaias/aspire/internal/normalize"
	"github.com/jeranaias/aspire/internal/prompt"
	"github.com/jeranaias/aspire/internal/provider"
	"github.com/jeranaias/aspire/internal/storage"
)

var (
	// ErrNotFound is returned when a conversation is missing or owned by someone else.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyMessage is returned for blank chat messages.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrNoOwner is returned when no owner identifier was supplied.
	ErrNoOwner = errors.New("owner is required")
)

// Store is the conversation persistence contract.
// AppendTurns must commit all turns or none.
type Store interface {
	CreateConversation(ctx context.Context, ownerID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListTurns(ctx context.Context, conversationID string) ([]model.Turn, error)
	AppendTurns(ctx context.Context, conversationID string, turns []model.Turn) error
	ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error)
}

// Reply is the result of one chat call.
type Reply struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// Manager coordinates the store and the provider for chat.
type Manager struct {
	store    Store
	provider provider.Provider
	opts     provider.Options
}

// NewManager creates a manager. Chat replies are plain text, so JSON mode is
// always disabled.
func NewManager(store Store, p provider.Provider, opts provider.Options) *Manager {
	opts.JSON = false
	return &Manager{store: store, provider: p, opts: opts}
}

// Chat sends message in conversationID (or a new conversation when empty) and
// returns the assistant reply.
//
// The user and assistant turns are persisted together after the provider
// answers. If the provider fails, nothing is appended; a conversation created
// by this call is kept with zero turns. Once the conversation exists, the
// returned Reply carries its ID even when err is non-nil.
func (m *Manager) Chat(ctx context.Context, ownerID, message, conversationID string) (Reply, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Reply{}, ErrNoOwner
	}
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	var conv *model.Conversation
	if conversationID != "" {
		c, err := m.owned(ctx, ownerID, conversationID)
		if err != nil {
			return Reply{}, err
		}
		conv = c
	} else {
		c, err := m.store.CreateConversation(ctx, ownerID, model.ConversationTitle(message))
		if err != nil {
			return Reply{}, fmt.Errorf("failed to create conversation: %w", err)
		}
		log.Printf("CONVERSATION_CREATED | owner=%s conversation=%s", ownerID, c.ID)
		conv = c
	}

	history, err := m.store.ListTurns(ctx, conv.ID)
	if err != nil {
		return Reply{ConversationID: conv.ID}, fmt.Errorf("failed to load history: %w", err)
	}

	start := time.Now()
	raw, err := m.provider.Chat(ctx, prompt.BuildChatMessages(message, history), m.opts)
	if err != nil {
		cerr := classify.Classify(err)
		log.Printf("PROVIDER_ERROR | op=chat provider=%s conversation=%s error=%v", m.provider.Name(), conv.ID, cerr)
		return Reply{ConversationID: conv.ID}, cerr
	}
	reply := normalize.NormalizeChatReply(raw)

	turns := []model.Turn{
		model.NewTurn(model.RoleUser, message),
		model.NewTurn(model.RoleAssistant, reply),
	}
	if err := m.store.AppendTurns(ctx, conv.ID, turns); err != nil {
		return Reply{ConversationID: conv.ID}, fmt.Errorf("failed to save turns: %w", err)
	}

	log.Printf("CHAT_COMPLETE | owner=%s conversation=%s history=%d duration=%v", ownerID, conv.ID, len(history), time.Since(start))
	return Reply{Message: reply, ConversationID: conv.ID}, nil
}

// Conversations lists the owner's conversations, most recently updated first.
func (m *Manager) Conversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrNoOwner
	}
	return m.store.ListConversations(ctx, ownerID)
}

// History returns the ordered turns of one of the owner's conversations.
func (m *Manager) History(ctx context.Context, ownerID, conversationID string) ([]model.Turn, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrNoOwner
	}
	conv, err := m.owned(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	return m.store.ListTurns(ctx, conv.ID)
}

// Thread returns one of the owner's conversations together with its turns.
func (m *Manager) Thread(ctx context.Context, ownerID, conversationID string) (*model.Conversation, []model.Turn, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, nil, ErrNoOwner
	}
	conv, err := m.owned(ctx, ownerID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	turns, err := m.store.ListTurns(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, turns, nil
}

// owned loads a conversation and hides it unless ownerID owns it.
func (m *Manager) owned(ctx context.Context, ownerID, id string) (*model.Conversation, error) {
	conv, err := m.store.GetConversation(ctx, id)
	if errors.Is(err, storage.ErrConversationNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !conv.BelongsTo(ownerID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return conv, nil
}
