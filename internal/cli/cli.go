// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for aspire.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
)

// Version information (overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdServe
	CmdStrategy
	CmdChat
	CmdConversations
	CmdStrategies
	CmdConfig
	CmdVersion
	CmdUnknown
)

// String returns the command name used in JSON output.
func (c Command) String() string {
	switch c {
	case CmdServe:
		return "serve"
	case CmdStrategy:
		return "strategy"
	case CmdChat:
		return "chat"
	case CmdConversations:
		return "conversations"
	case CmdStrategies:
		return "strategies"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds global flags plus the command's own arguments.
type Args struct {
	Config  string // --config path
	JSON    bool
	Quiet   bool
	Verbose bool
	Model   string // --model overrides provider.model

	// Flags holds everything after the command name.
	Flags *ArgParser

	// Raw is the command name as typed, kept for suggestions.
	Raw string
}

const usageText = `aspire - AI business strategy and consultant chat service

Usage:
  aspire serve [--host H] [--port N]          Run the HTTP API
  aspire strategy --business NAME --industry IND [options]
                                              Generate a strategy document
  aspire chat --owner ID [--conversation ID] [message]
                                              Chat with the consultant
  aspire conversations --owner ID [ID]        List conversations or show one
  aspire conversations export ID --owner ID [--format md|html|json] [--output DIR]
                                              Export a conversation
  aspire strategies [list|show|delete] --owner ID [ID]
                                              Manage saved strategies
  aspire config [path|init|check|show|get KEY]
                                              Configuration
  aspire version                              Show version
  aspire help                                 Show this help

Strategy options:
  --challenges TEXT   --goals TEXT   --audience TEXT
  --timeframe TEXT    --budget TEXT
  --save --owner ID   Save the result to the owner's library

Chat:
  Without a message, chat starts an interactive session.
  Commands: /new /history /id /help /quit

Global options:
  --config PATH       Config file (default ~/.aspire/config.toml)
  --model NAME        Override provider.model
  --json              Machine-readable output
  -q, --quiet         Less output
  -v, --verbose       Log provider calls to stderr

Environment:
  GEMINI_API_KEY, GEMINI_MODEL, OPENROUTER_API_KEY, ASPIRE_PROVIDER,
  ASPIRE_MODEL, ASPIRE_DB_PATH, ASPIRE_PORT, ASPIRE_AUTH_TOKEN

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "aspire version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name).
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		args.Flags = NewArgParser(nil)
		return CmdHelp, args
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[0]
	args.Flags = NewArgParser(remaining[1:])

	switch name {
	case "serve", "server":
		return CmdServe, args
	case "strategy", "generate":
		return CmdStrategy, args
	case "chat":
		return CmdChat, args
	case "conversations", "conversation", "convs":
		return CmdConversations, args
	case "strategies", "library":
		return CmdStrategies, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags pulls the global flags out of args, wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var (
		remaining []string
		args      Args
	)

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--config" || arg == "--model":
			if i+1 < len(argv) {
				i++
				setGlobal(&args, arg, argv[i])
			}
		case strings.HasPrefix(arg, "--config="), strings.HasPrefix(arg, "--model="):
			name, value, _ := strings.Cut(arg, "=")
			setGlobal(&args, name, value)
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

func setGlobal(args *Args, name, value string) {
	switch name {
	case "--config":
		args.Config = value
	case "--model":
		args.Model = value
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd and returns the process exit code.
// Errors are displayed on stderr, or as a JSON envelope on stdout with --json.
func Run(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) int {
	configureLogging(cmd, args, stderr)

	err := dispatch(ctx, cmd, args, stdout, stderr)
	if err == nil {
		return ExitSuccess
	}

	var silent *silentError
	switch {
	case errors.As(err, &silent):
	case args.JSON:
		DisplayError(stdout, cmd.String(), err, true)
	default:
		DisplayError(stderr, cmd.String(), err, false)
	}
	return GetExitCode(err)
}

func dispatch(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(stdout)
		return nil
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
			}).Print(stdout)
		}
		PrintVersion(stdout)
		return nil
	case CmdConfig:
		return HandleConfig(args, stdout)
	case CmdUnknown:
		msg := fmt.Sprintf("unknown command %q", args.Raw)
		if s := SuggestCommand(args.Raw); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return &ValidationError{Field: "command", Reason: msg, Example: "aspire help"}
	}

	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	env, err := Open(ctx, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	switch cmd {
	case CmdServe:
		return HandleServe(ctx, env, args)
	case CmdStrategy:
		return HandleStrategy(ctx, env, args)
	case CmdChat:
		return HandleChat(ctx, env, args)
	case CmdConversations:
		return HandleConversations(ctx, env, args)
	case CmdStrategies:
		return HandleStrategies(ctx, env, args)
	default:
		return fmt.Errorf("command %s is not runnable", cmd)
	}
}

// configureLogging sends event logs to stderr for serve and --verbose, and
// discards them otherwise so one-shot commands print only their result.
func configureLogging(cmd Command, args Args, stderr io.Writer) {
	if cmd == CmdServe || args.Verbose {
		log.SetOutput(stderr)
		return
	}
	log.SetOutput(io.Discard)
}
