package htmlsanitize

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"plain text unchanged", "Great session, learned a lot", "Great session, learned a lot"},
		{"tags stripped", "<p>Hello <strong>World</strong></p>", "Hello World"},
		{"script removed entirely", "Nice<script>alert('xss')</script>", "Nice"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"whitespace trimmed", "  padded  ", "padded"},
		{"javascript URL text kept, markup dropped", `<a href="javascript:alert(1)">Link</a>`, "Link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRichText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "safe formatting preserved",
			input:    "<p>Hello <strong>World</strong></p>",
			contains: []string{"<p>", "<strong>", "Hello", "World"},
		},
		{
			name:     "script tag removed",
			input:    "<p>Bio</p><script>alert('xss')</script>",
			contains: []string{"<p>Bio</p>"},
			excludes: []string{"<script>", "alert"},
		},
		{
			name:     "onclick removed",
			input:    `<p onclick="alert('xss')">Click me</p>`,
			contains: []string{"<p>", "Click me"},
			excludes: []string{"onclick"},
		},
		{
			name:     "javascript URL removed",
			input:    `<a href="javascript:alert('xss')">Link</a>`,
			contains: []string{"Link"},
			excludes: []string{"javascript:"},
		},
		{
			name:     "safe link preserved",
			input:    `<a href="https://example.com">Link</a>`,
			contains: []string{"href", "https://example.com", "Link"},
		},
		{
			name:     "lists preserved",
			input:    "<ul><li>Go</li><li>Distributed systems</li></ul>",
			contains: []string{"<ul>", "<li>", "Go"},
		},
		{
			name:     "iframe removed",
			input:    `<iframe src="https://evil.com"></iframe><p>Bio</p>`,
			contains: []string{"<p>Bio</p>"},
			excludes: []string{"<iframe", "evil.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RichText(tt.input)
			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("RichText() result should contain %q, got %q", s, result)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("RichText() result should NOT contain %q, got %q", s, result)
				}
			}
		})
	}
}

func TestRichText_Idempotent(t *testing.T) {
	input := "<p>Hello <strong>World</strong></p>"
	first := RichText(input)
	second := RichText(first)
	if first != second {
		t.Errorf("RichText() not idempotent: first=%q, second=%q", first, second)
	}
}
