// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command: path, init, check, show and get.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/aspire/internal/config"
)

// secretKeys are config keys whose values are never printed.
var secretKeys = map[string]bool{
	"provider.api_key":  true,
	"server.auth_token": true,
}

// HandleConfig runs the config subcommands. Unlike the other commands it
// works with an invalid or missing config so problems can be inspected.
func HandleConfig(args Args, out io.Writer) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	switch sub := strings.ToLower(args.Flags.Subcommand()); sub {
	case "path":
		if args.JSON {
			return NewJSONResponse("config", map[string]string{"path": path}).Print(out)
		}
		fmt.Fprintln(out, path)
		return nil
	case "init":
		return configInit(path, args, out)
	case "check", "validate":
		return configCheck(path, args, out)
	case "", "show":
		cfg, err := loadUnvalidated(path)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", cfg.Redacted()).Print(out)
		}
		fmt.Fprintln(out, cfg.String())
		return nil
	case "get":
		return configGet(path, args, out)
	default:
		return NewValidationError("subcommand", sub, "must be one of: path, init, check, show, get")
	}
}

// configFilePath returns --config or the default config path.
func configFilePath(args Args) (string, error) {
	if args.Config != "" {
		return args.Config, nil
	}
	return config.ConfigPath()
}

// loadUnvalidated reads path over the defaults and applies environment
// overrides without validating. A missing file yields the defaults.
func loadUnvalidated(path string) (*config.Config, error) {
	cfg := config.Default()

	if _, err := os.Stat(path); err == nil {
		load := config.LoadTOML
		if strings.HasSuffix(path, ".json") {
			load = config.LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return nil, &config.ConfigurationError{Field: "file", Message: err.Error()}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	return cfg, nil
}

func configInit(path string, args Args, out io.Writer) error {
	if _, err := os.Stat(path); err == nil && !args.Flags.BoolFlag("force") {
		return NewValidationError("config", path, "file already exists (use --force to overwrite)")
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Print(out)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintln(out, "Set provider.api_key in the file or export GEMINI_API_KEY.")
	return nil
}

// CheckResult is the --json payload of config check.
type CheckResult struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func configCheck(path string, args Args, out io.Writer) error {
	cfg, err := loadUnvalidated(path)
	if err != nil {
		return err
	}

	result := CheckResult{Path: path, Valid: true}
	verr := cfg.Validate()
	if verr != nil {
		result.Valid = false
		result.Problems = problems(verr)
	}

	if args.JSON {
		if err := NewJSONResponse("config", result).Print(out); err != nil {
			return err
		}
		if verr != nil {
			return &silentError{verr}
		}
		return nil
	}

	p := newPrinter(out)
	if verr == nil {
		fmt.Fprintf(out, "%s %s\n", RenderStatus("ok"), path)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", RenderStatus("fail"), path)
	for _, problem := range result.Problems {
		p.Line(WarningStyle, "  - "+problem)
	}
	return &silentError{verr}
}

// problems flattens a validation error into one line per field.
func problems(err error) []string {
	var list config.ValidateErrors
	if errors.As(err, &list) {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, e.Error())
		}
		return out
	}
	var cerr *config.ConfigurationError
	if errors.As(err, &cerr) {
		return []string{cerr.Field + ": " + cerr.Message}
	}
	return []string{err.Error()}
}

func configGet(path string, args Args, out io.Writer) error {
	key := args.Flags.Positional(1)
	if key == "" {
		return ErrMissingArgument("key", "aspire config get provider.model")
	}

	cfg, err := loadUnvalidated(path)
	if err != nil {
		return err
	}
	value, err := cfg.Redacted().Get(key)
	if err != nil {
		return NewValidationError("key", key, err.Error())
	}
	if secretKeys[key] && value == "" {
		value = "(not set)"
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{"key": key, "value": value}).Print(out)
	}
	fmt.Fprintln(out, value)
	return nil
}

// silentError carries an exit code for a failure whose details were already
// printed, such as config check in JSON mode.
type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() error { return e.err }
