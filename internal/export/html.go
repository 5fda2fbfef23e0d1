// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page.
// Message content is rendered as Markdown. Raw HTML in messages is omitted.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	title := html.EscapeString(t.title())
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"aspire\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", t.Conversation.CreatedAt.Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n<body>\n    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                <span><strong>Created:</strong> %s</span>\n", formatTimestamp(t.Conversation.CreatedAt))
		fmt.Fprintf(&sb, "                <span><strong>Messages:</strong> %d</span>\n", len(t.Turns))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, turn := range t.Turns {
		body, err := e.renderContent(turn.Content)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", turn.ID, err)
		}
		fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", html.EscapeString(turn.Role.String()))
		sb.WriteString("                <div class=\"message-header\">\n")
		fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", roleLabel(turn.Role))
		if e.options.IncludeTimestamps && !turn.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(turn.CreatedAt))
		}
		sb.WriteString("                </div>\n")
		sb.WriteString("                <div class=\"message-content\">\n")
		sb.WriteString(body)
		sb.WriteString("                </div>\n            </div>\n")
	}
	sb.WriteString("        </main>\n")

	fmt.Fprintf(&sb, "        <footer class=\"footer\">Exported from <strong>aspire</strong> on %s</footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// renderContent converts message Markdown to HTML.
func (e *HTMLExporter) renderContent(content string) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", Monaco, "Fira Code", monospace;
            --bg: #f7f8fa;
            --panel: #ffffff;
            --text: #24292e;
            --muted: #6a737d;
            --border: #e1e4e8;
            --user-bg: #f1f8ff;
            --accent: #0366d6;
        }
        body { font-family: var(--font-sans); line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; border-bottom: 2px solid var(--border); }
        .header h1 { font-size: 28px; margin-bottom: 12px; }
        .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--muted); }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 24px; padding: 16px; border-radius: 8px; border: 1px solid var(--border); }
        .user-message { background: var(--user-bg); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; }
        .role-label { font-weight: 600; color: var(--accent); }
        .timestamp { font-size: 12px; color: var(--muted); }
        .message-content p, .message-content ul, .message-content ol { margin-bottom: 8px; }
        .message-content ul, .message-content ol { padding-left: 24px; }
        .message-content pre { background: var(--bg); padding: 12px; border-radius: 6px; overflow-x: auto; }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }
        .footer { padding: 16px 32px; font-size: 13px; color: var(--muted); border-top: 1px solid var(--border); }
    </style>
`
