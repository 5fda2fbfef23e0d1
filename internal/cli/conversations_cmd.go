// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations_cmd.go - List, print and export conversations.
package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jeranaias/aspire/internal/export"
)

const (
	conversationsUsage = "aspire conversations --owner u123 [CONVERSATION_ID]"
	exportUsage        = "aspire conversations export CONVERSATION_ID --owner u123 [--format md|html|json] [--output DIR]"
)

// ExportOutput is the JSON payload of a file export.
type ExportOutput struct {
	ConversationID string `json:"conversation_id"`
	Format         string `json:"format"`
	Path           string `json:"path"`
}

// HandleConversations lists the owner's conversations, prints the messages
// of the conversation named by the first positional argument, or exports one.
func HandleConversations(ctx context.Context, env *Env, args Args) error {
	owner := args.Flags.Flag("owner")
	if owner == "" {
		return ErrMissingArgument("--owner", conversationsUsage)
	}
	manager := env.Manager()
	p := newPrinter(env.Out)

	switch id := args.Flags.Subcommand(); id {
	case "export":
		return handleExport(ctx, env, args, owner)
	case "":
	default:
		turns, err := manager.History(ctx, owner, id)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("conversations", turns).Print(env.Out)
		}
		p.Turns(turns)
		return nil
	}

	list, err := manager.Conversations(ctx, owner)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("conversations", list).Print(env.Out)
	}
	p.Conversations(list)
	return nil
}

// handleExport renders a conversation with an exporter. Without --output the
// document goes to stdout; with it, a file is written into that directory.
func handleExport(ctx context.Context, env *Env, args Args, owner string) error {
	id := args.Flags.Positional(1)
	if id == "" {
		return ErrMissingArgument("CONVERSATION_ID", exportUsage)
	}
	format := args.Flags.FlagOrDefault("format", "md")
	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return &ValidationError{Field: "format", Value: format, Reason: err.Error(), Example: exportUsage}
	}

	conv, turns, err := env.Manager().Thread(ctx, owner, id)
	if err != nil {
		return err
	}
	transcript := &export.Transcript{Conversation: *conv, Turns: turns}

	dir := args.Flags.Flag("output")
	if dir == "" {
		if args.JSON {
			return &ValidationError{Field: "output", Reason: "--json needs --output DIR", Example: exportUsage}
		}
		data, err := exporter.Export(transcript)
		if err != nil {
			return err
		}
		_, err = env.Out.Write(data)
		return err
	}

	opts.OutputDir = dir
	path, err := export.ExportToFile(transcript, exporter, opts)
	if err != nil {
		return err
	}
	log.Printf("CONVERSATION_EXPORTED | owner=%s conversation=%s format=%s path=%s", owner, id, exporter.FileExtension(), path)

	if args.JSON {
		return NewJSONResponse("conversations", ExportOutput{ConversationID: id, Format: format, Path: path}).Print(env.Out)
	}
	fmt.Fprintf(env.Out, "Exported %s\n", path)
	return nil
}
