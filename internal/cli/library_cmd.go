// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// library_cmd.go - Saved strategy library: list, show and delete.
package cli

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const strategiesUsage = "aspire strategies [list|show ID|delete ID --confirm] --owner u123"

// HandleStrategies dispatches the saved-strategy subcommands.
func HandleStrategies(ctx context.Context, env *Env, args Args) error {
	owner := args.Flags.Flag("owner")
	if owner == "" {
		return ErrMissingArgument("--owner", strategiesUsage)
	}

	switch sub := strings.ToLower(args.Flags.Subcommand()); sub {
	case "", "list", "ls":
		return listStrategies(ctx, env, args, owner)
	case "show", "get":
		return showStrategy(ctx, env, args, owner)
	case "delete", "rm":
		return deleteStrategy(ctx, env, args, owner)
	default:
		return NewValidationError("subcommand", sub, "must be one of: list, show, delete")
	}
}

func listStrategies(ctx context.Context, env *Env, args Args, owner string) error {
	list, err := env.Store.ListStrategies(ctx, owner)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("strategies", list).Print(env.Out)
	}
	newPrinter(env.Out).SavedStrategies(list)
	return nil
}

func showStrategy(ctx context.Context, env *Env, args Args, owner string) error {
	id := args.Flags.Positional(1)
	if id == "" {
		return ErrMissingArgument("strategy ID", "aspire strategies show ID --owner u123")
	}

	st, err := env.Store.GetStrategy(ctx, owner, id)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("strategies", st).Print(env.Out)
	}
	newPrinter(env.Out).Markdown(st.Content)
	return nil
}

func deleteStrategy(ctx context.Context, env *Env, args Args, owner string) error {
	id := args.Flags.Positional(1)
	if id == "" {
		return ErrMissingArgument("strategy ID", "aspire strategies delete ID --owner u123 --confirm")
	}
	if !args.Flags.BoolFlag("confirm") {
		return NewValidationError("--confirm", "", "delete requires --confirm")
	}

	if err := env.Store.DeleteStrategy(ctx, owner, id); err != nil {
		return err
	}
	log.Printf("STRATEGY_DELETED | owner=%s id=%s", owner, id)

	if args.JSON {
		return NewJSONResponse("strategies", map[string]string{"deleted": id}).Print(env.Out)
	}
	if !args.Quiet {
		fmt.Fprintln(env.Out, "Deleted "+id)
	}
	return nil
}
