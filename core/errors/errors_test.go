package errors

import (
	"errors"
	"testing"
)

func TestDocumentStructureError(t *testing.T) {
	err := NewDocumentStructure("bodyMatter")
	want := `invalid document: missing required field "bodyMatter"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidDocument) {
		t.Error("DocumentStructureError should unwrap to ErrInvalidDocument")
	}
}

func TestDocumentStructureErrorWithMessage(t *testing.T) {
	err := &DocumentStructureError{Field: "bodyMatter", Message: "contents must be an array"}
	want := "invalid document: bodyMatter: contents must be an array"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("docx", "not a zip archive")
	want := "failed to parse docx: not a zip archive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}
}

func TestFormatValidationError(t *testing.T) {
	err := NewFormatValidation("html", "unclosed element")
	want := "invalid html content: unclosed element"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPluginError(t *testing.T) {
	tests := []struct {
		name string
		err  *PluginError
		want string
	}{
		{
			name: "with plugin id",
			err:  NewPlugin("p1", "register", "already registered"),
			want: "plugin p1: register failed: already registered",
		},
		{
			name: "without plugin id",
			err:  &PluginError{Operation: "discover", Message: "bad manifest"},
			want: "plugin discover failed: bad manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("plugin", "accessibility-checker")
	want := "plugin not found: accessibility-checker"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}
}

func TestUnwrapChain(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Format: "markdown", Message: "scan failed", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("wrapped error should be reachable via errors.Is")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	inner := errors.New("boom")
	wrapped := Wrap(inner, "render")
	if wrapped.Error() != "render: boom" {
		t.Errorf("Wrap() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, inner) {
		t.Error("Wrap should preserve the error chain")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	inner := errors.New("boom")
	wrapped := Wrapf(inner, "render %s", "html")
	if wrapped.Error() != "render html: boom" {
		t.Errorf("Wrapf() = %q", wrapped.Error())
	}
}

func TestErrorsAs(t *testing.T) {
	var target *PluginError
	err := Wrap(NewPlugin("p1", "initialize", "incompatible format"), "registry")
	if !As(err, &target) {
		t.Fatal("As should find PluginError in chain")
	}
	if target.PluginID != "p1" {
		t.Errorf("PluginID = %q, want %q", target.PluginID, "p1")
	}
}
