// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aspire/internal/model"
)

// SaveStrategy stores a strategy in the owner's library, assigning ID and CreatedAt.
func (s *Store) SaveStrategy(ctx context.Context, st model.SavedStrategy) (model.SavedStrategy, error) {
	if strings.TrimSpace(st.OwnerID) == "" {
		return model.SavedStrategy{}, fmt.Errorf("%w: owner is required", ErrInvalidStrategy)
	}
	if strings.TrimSpace(st.Title) == "" || strings.TrimSpace(st.Content) == "" {
		return model.SavedStrategy{}, fmt.Errorf("%w: title and content are required", ErrInvalidStrategy)
	}

	st.ID = uuid.New().String()
	st.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, owner_id, title, business_name, industry, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.OwnerID, st.Title, st.BusinessName, st.Industry, st.Content, toUnix(st.CreatedAt))
	if err != nil {
		return model.SavedStrategy{}, fmt.Errorf("failed to save strategy: %w", err)
	}
	return st, nil
}

// ListStrategies returns the owner's saved strategies, newest first.
func (s *Store) ListStrategies(ctx context.Context, ownerID string) ([]model.SavedStrategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, business_name, industry, content, created_at
		FROM strategies WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	out := []model.SavedStrategy{}
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetStrategy loads one of the owner's strategies.
func (s *Store) GetStrategy(ctx context.Context, ownerID, id string) (model.SavedStrategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, business_name, industry, content, created_at
		FROM strategies WHERE id = ? AND owner_id = ?`, id, ownerID)

	st, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SavedStrategy{}, &NotFoundError{Resource: "strategy", ID: id}
	}
	return st, err
}

// DeleteStrategy removes one of the owner's strategies.
func (s *Store) DeleteStrategy(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Resource: "strategy", ID: id}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStrategy(sc scanner) (model.SavedStrategy, error) {
	var (
		st      model.SavedStrategy
		created int64
	)
	if err := sc.Scan(&st.ID, &st.OwnerID, &st.Title, &st.BusinessName, &st.Industry, &st.Content, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, err
		}
		return st, fmt.Errorf("failed to scan strategy: %w", err)
	}
	st.CreatedAt = fromUnix(created)
	return st, nil
}
