// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for aspire.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: global flags plus an ArgParser over the command's own arguments
//   - Env: validated config, open store and provider shared by commands
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	os.Exit(cli.Run(ctx, cmd, args, os.Stdout, os.Stderr))
//
// # Commands
//
//   - serve: run the HTTP API
//   - strategy: generate a strategy document, optionally saving it
//   - chat: one-shot message or interactive consultant session
//   - conversations: list, print or export conversations
//   - strategies: list, show or delete saved strategies
//   - config: path, init, check, show, get
//
// All commands accept --json. Output is styled only on a terminal.
package cli
