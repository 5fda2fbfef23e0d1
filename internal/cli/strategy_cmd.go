// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// strategy_cmd.go - One-shot strategy generation.
package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jeranaias/aspire/internal/model"
)

const strategyUsage = `aspire strategy --business "Acme Bakery" --industry "Food & Beverage" --goals "Open a second store"`

// StrategyOutput is the --json payload of the strategy command.
type StrategyOutput struct {
	Strategy model.StrategyResult `json:"strategy"`
	Degraded bool                 `json:"degraded"`
	SavedID  string               `json:"saved_id,omitempty"`
}

// strategyRequestFromFlags maps command flags onto a StrategyRequest.
func strategyRequestFromFlags(f *ArgParser) model.StrategyRequest {
	return model.StrategyRequest{
		BusinessName:   f.Flag("business"),
		Industry:       f.Flag("industry"),
		Challenges:     f.Flag("challenges"),
		Goals:          f.Flag("goals"),
		TargetAudience: f.Flag("audience"),
		Timeframe:      f.Flag("timeframe"),
		Budget:         f.Flag("budget"),
	}
}

// HandleStrategy generates a strategy document and optionally saves it.
func HandleStrategy(ctx context.Context, env *Env, args Args) error {
	req := strategyRequestFromFlags(args.Flags)
	if missing := req.Validate(); len(missing) > 0 {
		return ErrMissingArgument("--business and --industry", strategyUsage)
	}

	save := args.Flags.BoolFlag("save")
	owner := args.Flags.Flag("owner")
	if save && owner == "" {
		return ErrMissingArgument("--owner", strategyUsage+" --save --owner u123")
	}

	p := newPrinter(env.Out)
	if !args.JSON && !args.Quiet {
		fmt.Fprintf(env.Err, "Generating strategy for %s...\n", req.BusinessName)
	}

	result, err := env.Generator().Generate(ctx, req)
	if err != nil {
		return err
	}

	out := StrategyOutput{Strategy: result, Degraded: result.Degraded}
	if save {
		saved, err := env.Store.SaveStrategy(ctx, model.SavedStrategy{
			OwnerID:      owner,
			Title:        result.Title,
			BusinessName: req.BusinessName,
			Industry:     req.Industry,
			Content:      StrategyMarkdown(result),
		})
		if err != nil {
			return fmt.Errorf("failed to save strategy: %w", err)
		}
		log.Printf("STRATEGY_SAVED | owner=%s id=%s", owner, saved.ID)
		out.SavedID = saved.ID
	}

	if args.JSON {
		return NewJSONResponse("strategy", out).Print(env.Out)
	}

	if result.Degraded {
		p.Line(WarningStyle, "The AI response could not be read; showing a placeholder strategy.")
		fmt.Fprintln(env.Out)
	}
	p.Markdown(StrategyMarkdown(result))
	if out.SavedID != "" {
		p.Line(SuccessStyle, "Saved as "+out.SavedID)
	}
	return nil
}
