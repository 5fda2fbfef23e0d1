// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Human-readable output for strategies, conversations and turns.
//
// Markdown goes through glamour and JSON through chroma, but only when the
// writer is a terminal. Pipes and files get plain text.

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aspire/internal/model"
)

const timeLayout = "2006-01-02 15:04"

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// getMarkdownRenderer builds the glamour renderer on first use.
// It returns nil if glamour cannot be initialized.
func getMarkdownRenderer() *glamour.TermRenderer {
	markdownRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	return markdownRenderer
}

// printer writes command output, styled when w is a terminal.
type printer struct {
	w   io.Writer
	tty bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, tty: isTerminalWriter(w) && ColorsEnabled()}
}

// Markdown renders md through glamour on a terminal, or wraps it otherwise.
func (p *printer) Markdown(md string) {
	if p.tty {
		if r := getMarkdownRenderer(); r != nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(p.w, out)
				return
			}
		}
	}
	fmt.Fprintln(p.w, WrapText(md, DefaultTerminalWidth))
}

// JSON writes v as indented JSON, highlighted on a terminal.
func (p *printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if p.tty {
		if highlighted, ok := highlightJSON(string(data)); ok {
			fmt.Fprintln(p.w, highlighted)
			return nil
		}
	}
	fmt.Fprintln(p.w, string(data))
	return nil
}

// Line writes one styled line, or the plain text when not on a terminal.
func (p *printer) Line(style lipgloss.Style, text string) {
	if p.tty {
		text = style.Render(text)
	}
	fmt.Fprintln(p.w, text)
}

// highlightJSON colors JSON with chroma's terminal256 formatter.
func highlightJSON(code string) (string, bool) {
	lexer := lexers.Get("json")
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// StrategyMarkdown renders a strategy document as Markdown. The same text is
// what --save stores in the library.
func StrategyMarkdown(r model.StrategyResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	if r.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", r.Summary)
	}

	if len(r.Strategies) > 0 {
		sb.WriteString("## Strategies\n\n")
		for _, s := range r.Strategies {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}

	if len(r.ActionPlan) > 0 {
		sb.WriteString("## Action Plan\n\n")
		for i, step := range r.ActionPlan {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString("\n")
	}

	if len(r.Resources) > 0 {
		sb.WriteString("## Resources\n\n")
		for _, res := range r.Resources {
			fmt.Fprintf(&sb, "### %s\n\n", res.Name)
			if res.Purpose != "" {
				fmt.Fprintf(&sb, "%s\n\n", res.Purpose)
			}
			for _, item := range res.Items {
				fmt.Fprintf(&sb, "- %s\n", item)
			}
			if len(res.Items) > 0 {
				sb.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// =============================================================================
// LISTINGS
// =============================================================================

// Conversations prints one line per conversation.
func (p *printer) Conversations(list []model.ConversationSummary) {
	if len(list) == 0 {
		p.Line(DimStyle, "No conversations yet.")
		return
	}
	for _, c := range list {
		p.Line(TitleStyle, c.Title)
		fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("ID"), c.ID)
		fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("Updated"), formatTime(c.UpdatedAt))
		if c.LastMessage != "" {
			fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("Last message"), c.LastMessage)
		}
	}
}

// Turns prints a conversation transcript.
func (p *printer) Turns(turns []model.Turn) {
	if len(turns) == 0 {
		p.Line(DimStyle, "No messages yet.")
		return
	}
	for _, t := range turns {
		p.Turn(t.Role, t.Content)
	}
}

// Turn prints one labeled message.
func (p *printer) Turn(role model.Role, content string) {
	switch role {
	case model.RoleUser:
		p.Line(UserStyle, "You:")
		fmt.Fprintln(p.w, WrapText(content, DefaultTerminalWidth))
	default:
		p.Line(AssistantStyle, "Consultant:")
		p.Markdown(content)
	}
	fmt.Fprintln(p.w)
}

// SavedStrategies prints the library listing.
func (p *printer) SavedStrategies(list []model.SavedStrategy) {
	if len(list) == 0 {
		p.Line(DimStyle, "No saved strategies.")
		return
	}
	for _, s := range list {
		p.Line(TitleStyle, s.Title)
		fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("ID"), s.ID)
		if s.BusinessName != "" {
			fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("Business"), s.BusinessName)
		}
		if s.Industry != "" {
			fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("Industry"), s.Industry)
		}
		fmt.Fprintf(p.w, "  %s %s\n", RenderLabel("Saved"), formatTime(s.CreatedAt))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
