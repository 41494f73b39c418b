package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/melange/internal/app/system/htmlsanitize"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		contains   []string
		notContain []string
	}{
		{name: "empty", in: ""},
		{name: "plain text", in: "Happy to mentor!", contains: []string{"Happy to mentor!"}},
		{name: "keeps formatting", in: "<p><strong>Bold</strong> and <em>italic</em></p>", contains: []string{"<strong>Bold</strong>", "<em>italic</em>"}},
		{name: "removes script", in: "<p>Hi</p><script>alert('x')</script>", contains: []string{"<p>Hi</p>"}, notContain: []string{"script", "alert"}},
		{name: "removes handlers", in: `<img src="https://example.com/a.png" onerror="alert(1)">`, notContain: []string{"onerror"}},
		{name: "removes javascript links", in: `<a href="javascript:alert(1)">x</a>`, notContain: []string{"javascript:"}},
		{name: "safe links get nofollow", in: `<a href="https://example.com">x</a>`, contains: []string{"https://example.com", "nofollow"}},
		{name: "trims whitespace", in: "  hello  ", contains: []string{"hello"}, notContain: []string{"  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.Message(tt.in)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Message(%q) = %q, want it to contain %q", tt.in, got, want)
				}
			}
			for _, bad := range tt.notContain {
				if strings.Contains(got, bad) {
					t.Errorf("Message(%q) = %q, must not contain %q", tt.in, got, bad)
				}
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Weekly sync", "Weekly sync"},
		{"<b>Weekly</b> sync", "Weekly sync"},
		{"<script>x()</script>Subject", "Subject"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
