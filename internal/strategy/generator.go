// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package strategy generates structured business strategies.
package strategy

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
	"github.com/jeranaias/aspire/internal/util"
)

// previewRunes bounds how much raw provider output reaches the log.
const previewRunes = 200

// ErrInvalidRequest is returned when required request fields are missing.
var ErrInvalidRequest = errors.New("invalid strategy request")

// Generator turns a StrategyRequest into a StrategyResult with one provider call.
type Generator struct {
	provider provider.Provider
	opts     provider.Options
}

// NewGenerator creates a generator. opts carries model and sampling settings;
// opts.JSON requests a JSON response type from providers that support one.
func NewGenerator(p provider.Provider, opts provider.Options) *Generator {
	return &Generator{provider: p, opts: opts}
}

// Generate validates req, prompts the provider and normalizes the reply.
// Provider failures are returned as *classify.Error. Unparseable output is
// not an error: the result is the fallback document with Degraded set.
func (g *Generator) Generate(ctx context.Context, req model.StrategyRequest) (model.StrategyResult, error) {
	if missing := req.Validate(); len(missing) > 0 {
		return model.StrategyResult{}, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	start := time.Now()
	raw, err := g.provider.Complete(ctx, prompt.BuildStrategyPrompt(req), g.opts)
	if err != nil {
		cerr := classify.Classify(err)
		log.Printf("PROVIDER_ERROR | op=strategy provider=%s business=%q error=%v", g.provider.Name(), req.BusinessName, cerr)
		return model.StrategyResult{}, cerr
	}

	result := normalize.NormalizeStrategy(raw, req.BusinessName)
	if result.Degraded {
		log.Printf("STRATEGY_DEGRADED | provider=%s business=%q preview=%q", g.provider.Name(), req.BusinessName, util.TruncateRunesAppend(raw, previewRunes))
	} else {
		log.Printf("STRATEGY_GENERATED | provider=%s business=%q strategies=%d steps=%d duration=%v",
			g.provider.Name(), req.BusinessName, len(result.Strategies), len(result.ActionPlan), time.Since(start))
	}
	return result, nil
}
