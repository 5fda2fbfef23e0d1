// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared dependencies for commands that talk to the provider or store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/aspire/internal/config"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/provider"
	"github.com/jeranaias/aspire/internal/storage"
	"github.com/jeranaias/aspire/internal/strategy"
)

// Env carries the validated config and the open resources a command needs.
type Env struct {
	Config   *config.Config
	Store    *storage.Store
	Provider provider.Provider

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewEnv assembles an Env from already-open parts.
func NewEnv(cfg *config.Config, store *storage.Store, p provider.Provider, out, errw io.Writer) *Env {
	return &Env{Config: cfg, Store: store, Provider: p, In: os.Stdin, Out: out, Err: errw}
}

// Open builds the provider and opens the store described by cfg.
func Open(ctx context.Context, cfg *config.Config, out, errw io.Writer) (*Env, error) {
	p, err := provider.New(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewEnv(cfg, store, p, out, errw), nil
}

// Close releases the store.
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

// Options returns the provider options derived from the config.
func (e *Env) Options() provider.Options {
	return provider.OptionsFromConfig(e.Config)
}

// Generator returns a strategy generator bound to this env.
func (e *Env) Generator() *strategy.Generator {
	return strategy.NewGenerator(e.Provider, e.Options())
}

// Manager returns a conversation manager bound to this env.
func (e *Env) Manager() *conversation.Manager {
	return conversation.NewManager(e.Store, e.Provider, e.Options())
}

// LoadConfig loads and validates the config named by --config, or the
// default file, then applies --model.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.Config != "" {
		cfg, err = config.LoadFromPath(args.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Model != "" {
		cfg.Provider.Model = args.Model
	}
	return cfg, nil
}
