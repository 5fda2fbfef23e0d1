// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, turns and saved strategies in SQLite.
//
// The database uses the pure Go modernc.org/sqlite driver with a single
// connection, so every write (and every AppendTurns transaction) is
// serialized. Turns are ordered by an autoincrement sequence column, which
// keeps per-conversation order consistent with commit order even when two
// chat calls race on the same conversation.
//
// # Usage
//
//	st, err := storage.Open(cfg.Storage.Path)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	conv, err := st.CreateConversation(ctx, ownerID, title)
//	err = st.AppendTurns(ctx, conv.ID, []model.Turn{userTurn, assistantTurn})
package storage
