// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aspire/internal/classify"
	"github.com/jeranaias/aspire/internal/config"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/storage"
	"github.com/jeranaias/aspire/internal/strategy"
)

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "abc", "--owner", "u1"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "u1", p.Flag("owner"))
				assert.Equal(t, "abc", p.Positional(1))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"--industry=Food & Beverage"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "Food & Beverage", p.Flag("industry"))
			},
		},
		{
			name:    "bool-only flag does not swallow positional",
			args:    []string{"--confirm", "delete", "abc"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("confirm"))
				assert.Equal(t, "abc", p.Positional(1))
			},
		},
		{
			name:    "trailing flag is boolean",
			args:    []string{"init", "--force"},
			wantSub: "init",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("force"))
				assert.True(t, p.HasFlag("--force"))
			},
		},
		{
			name:    "explicit false",
			args:    []string{"--save=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("save"))
				assert.True(t, p.HasFlag("save"))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--owner", "u1", "--", "--not-a-flag", "text"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--not-a-flag text", JoinPositionalArgs(p, 0))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"--port", "9000", "--bad", "x"})

	n, err := p.FlagInt("port")
	require.NoError(t, err)
	assert.Equal(t, 9000, n)

	_, err = p.FlagInt("bad")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.Field)

	_, err = p.FlagInt("missing")
	assert.Error(t, err)
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
}

func TestArgParser_OutOfRange(t *testing.T) {
	p := NewArgParser(nil)
	assert.Equal(t, "", p.Positional(-1))
	assert.Equal(t, "", p.Positional(3))
	assert.Empty(t, p.PositionalFrom(1))
	assert.Equal(t, 0, p.PositionalCount())
}

// =============================================================================
// PARSE
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{nil, CmdHelp},
		{[]string{"help"}, CmdHelp},
		{[]string{"--help"}, CmdHelp},
		{[]string{"serve"}, CmdServe},
		{[]string{"strategy"}, CmdStrategy},
		{[]string{"generate"}, CmdStrategy},
		{[]string{"chat"}, CmdChat},
		{[]string{"conversations"}, CmdConversations},
		{[]string{"strategies"}, CmdStrategies},
		{[]string{"library"}, CmdStrategies},
		{[]string{"CONFIG"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"strategee"}, CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.argv), func(t *testing.T) {
			cmd, _ := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestParse_GlobalFlagsAnywhere(t *testing.T) {
	cmd, args := Parse([]string{"--json", "chat", "--owner", "u1", "--config", "/tmp/a.toml", "-v", "--model=gemini-2.0-flash", "hello"})

	assert.Equal(t, CmdChat, cmd)
	assert.True(t, args.JSON)
	assert.True(t, args.Verbose)
	assert.Equal(t, "/tmp/a.toml", args.Config)
	assert.Equal(t, "gemini-2.0-flash", args.Model)
	assert.Equal(t, "u1", args.Flags.Flag("owner"))
	assert.Equal(t, "hello", args.Flags.Subcommand())
}

func TestSuggestCommand(t *testing.T) {
	assert.Equal(t, "strategy", SuggestCommand("strategee"))
	assert.Equal(t, "chat", SuggestCommand("caht"))
	assert.Equal(t, "", SuggestCommand("chat"))
	assert.Equal(t, "", SuggestCommand("x"))
	assert.Equal(t, "", SuggestCommand("completely-different"))
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"cli validation", NewValidationError("x", "", "bad"), ExitUsageError},
		{"invalid strategy request", fmt.Errorf("%w: industry", strategy.ErrInvalidRequest), ExitUsageError},
		{"empty message", conversation.ErrEmptyMessage, ExitUsageError},
		{"missing key", &config.ConfigurationError{Field: "provider.api_key", Message: "missing"}, ExitConfigError},
		{"invalid config", config.ValidateErrors{{Field: "server.port", Message: "bad"}}, ExitConfigError},
		{"no owner", conversation.ErrNoOwner, ExitAuthError},
		{"conversation missing", fmt.Errorf("%w: abc", conversation.ErrNotFound), ExitNotFoundError},
		{"strategy missing", &storage.NotFoundError{Resource: "strategy", ID: "abc"}, ExitNotFoundError},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ExitTimeoutError},
		{"quota", classify.Classify(errors.New("quota exceeded")), ExitQuotaError},
		{"filtered", classify.Classify(errors.New("response blocked due to SAFETY: hate speech")), ExitContentFilteredError},
		{"provider", classify.Classify(errors.New("connection refused")), ExitNetworkError},
		{"silent", &silentError{config.ValidateErrors{{Field: "a", Message: "b"}}}, ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestUserMessage_ContentFilterGuidance(t *testing.T) {
	err := classify.Classify(errors.New("response blocked due to SAFETY: harassment"))
	assert.Equal(t, classify.Guidance(classify.FilterHarassment), userMessage(err))
	assert.Equal(t, "boom", userMessage(errors.New("boom")))
}

// =============================================================================
// TERMINAL
// =============================================================================

func TestWrapText(t *testing.T) {
	t.Run("short line untouched", func(t *testing.T) {
		assert.Equal(t, "hello world", WrapText("hello world", 40))
	})

	t.Run("wraps on words", func(t *testing.T) {
		got := WrapText("one two three four five", 9)
		assert.Equal(t, "one two\nthree\nfour five", got)
	})

	t.Run("keeps newlines", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", WrapText("a\n\nb", 10))
	})

	t.Run("long word stays whole", func(t *testing.T) {
		got := WrapText("tiny supercalifragilistic", 8)
		assert.Equal(t, "tiny\nsupercalifragilistic", got)
	})

	t.Run("wide runes count double", func(t *testing.T) {
		got := WrapText("日本語 日本語", 8)
		assert.Equal(t, "日本語\n日本語", got)
	})
}

func TestRenderStatus(t *testing.T) {
	assert.True(t, strings.Contains(RenderStatus("ok"), "[OK]"))
	assert.True(t, strings.Contains(RenderStatus("fail"), "[FAIL]"))
	assert.True(t, strings.Contains(RenderStatus("degraded"), "[WARN]"))
	assert.True(t, strings.Contains(RenderStatus("skipped"), "[SKIPPED]"))
}
