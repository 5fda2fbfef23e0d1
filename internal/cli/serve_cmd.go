// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - Run the HTTP API until interrupted.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jeranaias/aspire/internal/provider"
	"github.com/jeranaias/aspire/internal/server"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 10 * time.Second

// HandleServe starts the API server and shuts it down gracefully when ctx
// is cancelled.
func HandleServe(ctx context.Context, env *Env, args Args) error {
	cfg := env.Config.Server
	if host := args.Flags.Flag("host"); host != "" {
		cfg.Host = host
	}
	if args.Flags.HasFlag("port") {
		port, err := args.Flags.FlagInt("port")
		if err != nil {
			return err
		}
		if port < 1 || port > 65535 {
			return NewValidationError("--port", args.Flags.Flag("port"), "must be between 1 and 65535")
		}
		cfg.Port = port
	}

	srv := server.New(cfg, env.Generator(), env.Manager(), env.Store).WithHealthCheck(env.Store)

	log.Printf("SERVE_CONFIG | provider=%s model=%s key=%s db=%s",
		env.Provider.Name(), env.Config.Provider.Model,
		provider.KeyFingerprint(env.Config.Provider.APIKey), env.Store.Path())
	if !args.Quiet {
		fmt.Fprintf(env.Err, "Listening on http://%s\n", srv.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
