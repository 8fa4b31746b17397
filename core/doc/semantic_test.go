package doc

import "testing"

func TestRunTypeIsValid(t *testing.T) {
	tests := []struct {
		rt    RunType
		valid bool
	}{
		{RunText, true},
		{RunEmphasis, true},
		{RunStrong, true},
		{RunCode, true},
		{RunReference, true},
		{RunCitation, true},
		{RunMathInline, true},
		{RunType("blink"), false},
		{RunType(""), false},
	}

	for _, tt := range tests {
		if got := tt.rt.IsValid(); got != tt.valid {
			t.Errorf("RunType(%q).IsValid() = %v, want %v", tt.rt, got, tt.valid)
		}
	}
}

func TestRunTypeIsTextBearing(t *testing.T) {
	bearing := []RunType{RunText, RunEmphasis, RunStrong, RunCode, RunSubscript, RunSuperscript, RunStrikethrough, RunUnderline}
	for _, rt := range bearing {
		if !rt.IsTextBearing() {
			t.Errorf("%q should be text-bearing", rt)
		}
	}
	for _, rt := range []RunType{RunReference, RunCitation, RunMathInline} {
		if rt.IsTextBearing() {
			t.Errorf("%q should not be text-bearing", rt)
		}
	}
}

func mixedText() *SemanticText {
	return &SemanticText{Runs: []Run{
		{Type: RunText, Text: "The value of "},
		{Type: RunMathInline, Expression: "x"},
		{Type: RunText, Text: " is shown in "},
		{Type: RunReference, Text: "Table 3", RefID: "table-3"},
		{Type: RunText, Text: " "},
		{Type: RunCitation, Key: "doe2020"},
		{Type: RunText, Text: "."},
	}}
}

func TestPlainTextIncludesDisplayOnlyRuns(t *testing.T) {
	got := mixedText().PlainText()
	want := "The value of x is shown in Table 3 [doe2020]."
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestCountableTextExcludesCitationAndMath(t *testing.T) {
	got := mixedText().CountableText()
	want := "The value of  is shown in Table 3 ."
	if got != want {
		t.Errorf("CountableText() = %q, want %q", got, want)
	}
}

func TestPlainTextNil(t *testing.T) {
	var st *SemanticText
	if st.PlainText() != "" {
		t.Error("nil SemanticText should flatten to empty string")
	}
	if st.CountableText() != "" {
		t.Error("nil SemanticText should count as empty string")
	}
	if !st.IsEmpty() {
		t.Error("nil SemanticText should be empty")
	}
}

func TestAppendMergesAdjacentTextRuns(t *testing.T) {
	st := &SemanticText{}
	st.Append(Run{Type: RunText, Text: "a"})
	st.Append(Run{Type: RunText, Text: "b"})
	st.Append(Run{Type: RunStrong, Text: "c"})
	st.Append(Run{Type: RunText, Text: "d"})

	if len(st.Runs) != 3 {
		t.Fatalf("len(Runs) = %d, want 3", len(st.Runs))
	}
	if st.Runs[0].Text != "ab" {
		t.Errorf("merged run = %q, want %q", st.Runs[0].Text, "ab")
	}
}

func TestTextConstructor(t *testing.T) {
	st := Text("hello")
	if len(st.Runs) != 1 || st.Runs[0].Type != RunText || st.Runs[0].Text != "hello" {
		t.Errorf("Text() built %+v", st.Runs)
	}
	if st.IsEmpty() {
		t.Error("non-empty text reported empty")
	}
}
