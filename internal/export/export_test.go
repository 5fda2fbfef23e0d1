// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aspire/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleTranscript() *Transcript {
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return &Transcript{
		Conversation: model.Conversation{
			ID:        "conv-1",
			OwnerID:   "u1",
			Title:     "How do I grow my bakery?",
			CreatedAt: created,
			UpdatedAt: created.Add(time.Minute),
		},
		Turns: []model.Turn{
			{ID: "t1", Role: model.RoleUser, Content: "How do I grow my bakery?", CreatedAt: created},
			{ID: "t2", Role: model.RoleAssistant, Content: "Start with **wholesale** accounts.\n\n- Cafes\n- Hotels", CreatedAt: created.Add(time.Minute)},
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
	}{
		{"", ".md"},
		{"md", ".md"},
		{"Markdown", ".md"},
		{"html", ".html"},
		{"JSON", ".json"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := ForFormat(tt.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, e.FileExtension())
		})
	}

	_, err := ForFormat("pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md, html, json")
}

func TestExporters_RejectEmptyTranscript(t *testing.T) {
	empty := &Transcript{Conversation: model.Conversation{ID: "c"}}
	for _, format := range Formats {
		e, err := ForFormat(format, nil)
		require.NoError(t, err)

		_, err = e.Export(empty)
		assert.ErrorIs(t, err, ErrEmptyTranscript, format)

		_, err = e.Export(nil)
		assert.Error(t, err, format)
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: How do I grow my bakery?\nconversation: conv-1\n"))
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "# How do I grow my bakery?\n")
	assert.Contains(t, md, "### You <sub>09:00:00</sub>\n\nHow do I grow my bakery?\n")
	assert.Contains(t, md, "### Consultant <sub>09:01:00</sub>\n\nStart with **wholesale** accounts.")
	assert.True(t, strings.HasSuffix(md, "*Exported from aspire on March 14, 2025 at 9:30 AM*\n"))
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# How do I grow my bakery?\n"))
	assert.Contains(t, md, "### You\n\n")
	assert.NotContains(t, md, "<sub>")
}

func TestHTMLExporter(t *testing.T) {
	tr := sampleTranscript()
	tr.Conversation.Title = "<script>alert(1)</script>"
	tr.Turns[0].Content = "Hi <img src=x onerror=alert(1)>"

	out, err := NewHTMLExporter(testOptions("")).Export(tr)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>&lt;script&gt;alert(1)&lt;/script&gt;</title>")
	assert.NotContains(t, page, "<script>")
	assert.NotContains(t, page, "onerror")
	assert.Contains(t, page, "<strong>wholesale</strong>")
	assert.Contains(t, page, "<li>Cafes</li>")
	assert.Contains(t, page, "class=\"message assistant-message\"")
	assert.Contains(t, page, "<span class=\"role-label\">Consultant</span>")
	assert.Equal(t, "text/html", NewHTMLExporter(nil).MimeType())
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	require.NoError(t, err)

	var got Transcript
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "conv-1", got.Conversation.ID)
	assert.Empty(t, got.Conversation.OwnerID)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, model.RoleAssistant, got.Turns[1].Role)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	opts := testOptions(dir)

	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "conversation_How_do_I_grow_my_bakery-_20250314_093000.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# How do I grow my bakery?")

	_, err = ExportToFile(&Transcript{}, NewJSONExporter(), opts)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"tab\there", "tab_here"},
		{"bell\x07", "bell-"},
		{"", "conversation"},
		{"...", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain title", escapeYAML("plain title"))
	assert.Equal(t, `"Q: why?"`, escapeYAML("Q: why?"))
	assert.Equal(t, `"line\nbreak"`, escapeYAML("line\nbreak"))
	assert.Equal(t, `" padded"`, escapeYAML(" padded"))
}
