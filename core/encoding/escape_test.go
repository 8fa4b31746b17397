package encoding

import "testing"

func TestEscapeXMLText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a < b", "a &lt; b"},
		{"a > b", "a &gt; b"},
		{"a & b", "a &amp; b"},
		{`"quoted"`, `"quoted"`},
	}

	for _, tt := range tests {
		if got := EscapeXMLText(tt.in); got != tt.want {
			t.Errorf("EscapeXMLText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeXMLAttr(t *testing.T) {
	got := EscapeXMLAttr(`say "hi" & <go>`)
	want := "say &quot;hi&quot; &amp; &lt;go&gt;"
	if got != want {
		t.Errorf("EscapeXMLAttr() = %q, want %q", got, want)
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<script>", "&lt;script&gt;"},
		{`a "b" & c`, "a &quot;b&quot; &amp; c"},
	}

	for _, tt := range tests {
		if got := EscapeHTML(tt.in); got != tt.want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"2 * 3", "2 \\* 3"},
		{"snake_case", "snake\\_case"},
		{"`code`", "\\`code\\`"},
		{"[link]", "\\[link\\]"},
		{"# not a heading", "\\# not a heading"},
		{"> not a quote", "\\> not a quote"},
		{"back\\slash", "back\\\\slash"},
	}

	for _, tt := range tests {
		if got := EscapeMarkdown(tt.in); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarkdownEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		"2 * 3 = 6",
		"a_b_c",
		"`ticks` and [brackets]",
		"# heading-like",
		"literal \\ backslash",
	}

	for _, in := range inputs {
		if got := UnescapeMarkdown(EscapeMarkdown(in)); got != in {
			t.Errorf("round trip of %q = %q", in, got)
		}
	}
}

func TestEscapePlainText(t *testing.T) {
	got := EscapePlainText("a\r\nb\rc")
	if got != "a\nb\nc" {
		t.Errorf("EscapePlainText() = %q", got)
	}
}
