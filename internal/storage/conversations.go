// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aspire/internal/model"
)

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation inserts an empty conversation owned by ownerID.
func (s *Store) CreateConversation(ctx context.Context, ownerID, title string) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.OwnerID, conv.Title, toUnix(now), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation loads a conversation by ID. Ownership is not checked here.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var (
		conv             model.Conversation
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.OwnerID, &conv.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "conversation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	conv.CreatedAt = fromUnix(created)
	conv.UpdatedAt = fromUnix(updated)
	return &conv, nil
}

// ListConversations returns ownerID's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       COALESCE((SELECT m.content FROM messages m
		                 WHERE m.conversation_id = c.id
		                 ORDER BY m.seq DESC LIMIT 1), '')
		FROM conversations c
		WHERE c.owner_id = ?
		ORDER BY c.updated_at DESC, c.rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	out := []model.ConversationSummary{}
	for rows.Next() {
		var (
			sum              model.ConversationSummary
			created, updated int64
			last             string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &created, &updated, &last); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		sum.CreatedAt = fromUnix(created)
		sum.UpdatedAt = fromUnix(updated)
		sum.LastMessage = model.MessagePreview(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// =============================================================================
// TURNS
// =============================================================================

// ListTurns returns the turns of a conversation in insertion order.
func (s *Store) ListTurns(ctx context.Context, conversationID string) ([]model.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY seq`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	turns := []model.Turn{}
	for rows.Next() {
		var (
			t       model.Turn
			role    string
			created int64
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = model.Role(role)
		t.CreatedAt = fromUnix(created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendTurns stores turns in order inside one transaction and bumps the
// conversation's updated_at. Either every turn is committed or none is.
func (s *Store) AppendTurns(ctx context.Context, conversationID string, turns []model.Turn) (err error) {
	for _, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("%w: role %q", ErrInvalidTurn, t.Role)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, toUnix(now), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Resource: "conversation", ID: conversationID}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err = stmt.ExecContext(ctx, t.ID, conversationID, string(t.Role), t.Content, toUnix(created)); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turns: %w", err)
	}
	return nil
}
