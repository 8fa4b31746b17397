package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/xats-org/xats-go/core/doc"
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/render"
)

// stubRenderer satisfies render.Renderer for registry tests.
type stubRenderer struct {
	format render.Format
}

func (s *stubRenderer) Format() render.Format { return s.format }

func (s *stubRenderer) Render(_ context.Context, _ *doc.Document, _ *render.Options) (*render.Result, error) {
	return &render.Result{}, nil
}

func markdownPlugin(id string) *RendererPlugin {
	return &RendererPlugin{
		ID:                id,
		Name:              "Markdown Helper",
		Version:           "1.0.0",
		CompatibleFormats: []render.Format{render.FormatMarkdown},
		Initialize:        func(render.Renderer) error { return nil },
	}
}

func TestRegisterAndList(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(markdownPlugin("b-plugin")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(markdownPlugin("a-plugin")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	list := reg.ListPlugins()
	if len(list) != 2 {
		t.Fatalf("ListPlugins returned %d plugins", len(list))
	}
	if list[0].ID != "a-plugin" || list[1].ID != "b-plugin" {
		t.Errorf("plugins not sorted by ID: %s, %s", list[0].ID, list[1].ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		plugin *RendererPlugin
	}{
		{"nil plugin", nil},
		{"missing id", &RendererPlugin{Name: "n", Version: "1", CompatibleFormats: []render.Format{render.FormatText}}},
		{"missing name", &RendererPlugin{ID: "p", Version: "1", CompatibleFormats: []render.Format{render.FormatText}}},
		{"missing version", &RendererPlugin{ID: "p", Name: "n", CompatibleFormats: []render.Format{render.FormatText}}},
		{"no formats", &RendererPlugin{ID: "p", Name: "n", Version: "1"}},
		{"bad format", &RendererPlugin{ID: "p", Name: "n", Version: "1", CompatibleFormats: []render.Format{"pdf"}}},
		{"no initialize hook", &RendererPlugin{ID: "p", Name: "n", Version: "1", CompatibleFormats: []render.Format{render.FormatText}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			if err := reg.Register(tt.plugin); err == nil {
				t.Error("Register should have failed")
			}
			if got := reg.Statistics().Total; got != 0 {
				t.Errorf("failed registration left %d plugins behind", got)
			}
		})
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(markdownPlugin("p")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := reg.Register(markdownPlugin("p"))
	if err == nil {
		t.Fatal("duplicate registration must fail")
	}
	var pe *apperrors.PluginError
	if !apperrors.As(err, &pe) {
		t.Fatalf("error type %T, want PluginError", err)
	}
	if pe.PluginID != "p" || pe.Operation != "register" {
		t.Errorf("PluginError = %+v", pe)
	}

	// The original registration is untouched.
	if got := reg.Statistics().Total; got != 1 {
		t.Errorf("Total = %d, want 1", got)
	}
}

func TestUnregisterUnknownFails(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Unregister("ghost"); err == nil {
		t.Error("unregistering an unknown plugin must fail")
	}
}

func TestUnregisterDetachesAndCleansUp(t *testing.T) {
	var detached []render.Renderer
	cleaned := false

	p := markdownPlugin("p")
	p.Detach = func(r render.Renderer) { detached = append(detached, r) }
	p.Cleanup = func() error { cleaned = true; return nil }

	reg := NewRegistry()
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r1 := &stubRenderer{format: render.FormatMarkdown}
	r2 := &stubRenderer{format: render.FormatMarkdown}
	for _, r := range []render.Renderer{r1, r2} {
		if err := reg.InitializePlugin("p", r); err != nil {
			t.Fatalf("InitializePlugin: %v", err)
		}
	}

	if err := reg.Unregister("p"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if len(detached) != 2 {
		t.Errorf("Detach ran for %d renderers, want 2", len(detached))
	}
	if !cleaned {
		t.Error("Cleanup did not run")
	}
	if got := reg.Statistics().Total; got != 0 {
		t.Errorf("Total = %d after unregister", got)
	}
}

func TestInitializePluginFiresOnce(t *testing.T) {
	initCount := 0
	p := markdownPlugin("p")
	p.Initialize = func(render.Renderer) error { initCount++; return nil }

	reg := NewRegistry()
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r1 := &stubRenderer{format: render.FormatMarkdown}
	r2 := &stubRenderer{format: render.FormatMarkdown}
	if err := reg.InitializePlugin("p", r1); err != nil {
		t.Fatalf("InitializePlugin: %v", err)
	}
	if err := reg.InitializePlugin("p", r2); err != nil {
		t.Fatalf("InitializePlugin: %v", err)
	}

	if initCount != 1 {
		t.Errorf("Initialize ran %d times, want 1", initCount)
	}

	// Both renderers are recorded regardless.
	if got := len(reg.PluginsForRenderer(r2)); got != 1 {
		t.Errorf("PluginsForRenderer(r2) = %d plugins, want 1", got)
	}
}

func TestInitializePluginRejectsIncompatibleFormat(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(markdownPlugin("p")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := reg.InitializePlugin("p", &stubRenderer{format: render.FormatDocx})
	if err == nil {
		t.Fatal("incompatible format must be rejected")
	}

	// The rejection leaves no attachment behind.
	if got := reg.Statistics().Initialized; got != 0 {
		t.Errorf("Initialized = %d after rejection", got)
	}
}

func TestInitializePluginUnknownID(t *testing.T) {
	reg := NewRegistry()
	err := reg.InitializePlugin("ghost", &stubRenderer{format: render.FormatText})
	if err == nil {
		t.Fatal("unknown plugin must fail")
	}
}

func TestInitializePluginErrorLeavesUninitialized(t *testing.T) {
	p := markdownPlugin("p")
	p.Initialize = func(render.Renderer) error { return errors.New("boom") }

	reg := NewRegistry()
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := &stubRenderer{format: render.FormatMarkdown}
	if err := reg.InitializePlugin("p", r); err == nil {
		t.Fatal("Initialize failure must propagate")
	}
	if got := reg.Statistics().Initialized; got != 0 {
		t.Errorf("Initialized = %d after failed init", got)
	}
	if got := len(reg.PluginsForRenderer(r)); got != 0 {
		t.Errorf("failed init attached %d plugins", got)
	}
}

func TestFindCompatiblePlugins(t *testing.T) {
	reg := NewRegistry()

	md := markdownPlugin("md-only")
	multi := &RendererPlugin{
		ID:                "multi",
		Name:              "Multi",
		Version:           "1.0.0",
		CompatibleFormats: []render.Format{render.FormatMarkdown, render.FormatHTML},
		Initialize:        func(render.Renderer) error { return nil },
	}
	for _, p := range []*RendererPlugin{md, multi} {
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if got := len(reg.FindCompatiblePlugins(render.FormatMarkdown)); got != 2 {
		t.Errorf("markdown matches = %d, want 2", got)
	}
	if got := len(reg.FindCompatiblePlugins(render.FormatHTML)); got != 1 {
		t.Errorf("html matches = %d, want 1", got)
	}
	if got := len(reg.FindCompatiblePlugins(render.FormatDocx)); got != 0 {
		t.Errorf("docx matches = %d, want 0", got)
	}
}

func TestStatistics(t *testing.T) {
	reg := NewRegistry()

	first := markdownPlugin("first")
	second := &RendererPlugin{
		ID:                "second",
		Name:              "Second",
		Version:           "2.0.0",
		CompatibleFormats: []render.Format{render.FormatMarkdown, render.FormatText},
		Initialize:        func(render.Renderer) error { return nil },
	}
	if err := reg.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(second); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.InitializePlugin("first", &stubRenderer{format: render.FormatMarkdown}); err != nil {
		t.Fatalf("InitializePlugin: %v", err)
	}

	stats := reg.Statistics()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.Initialized != 1 {
		t.Errorf("Initialized = %d, want 1", stats.Initialized)
	}
	if stats.ByFormat[render.FormatMarkdown] != 2 {
		t.Errorf("ByFormat[markdown] = %d, want 2", stats.ByFormat[render.FormatMarkdown])
	}
	if stats.ByFormat[render.FormatText] != 1 {
		t.Errorf("ByFormat[text] = %d, want 1", stats.ByFormat[render.FormatText])
	}
	if stats.Oldest != "first" || stats.Newest != "second" {
		t.Errorf("Oldest/Newest = %q/%q", stats.Oldest, stats.Newest)
	}
	if stats.OldestAt.IsZero() || stats.NewestAt.IsZero() {
		t.Error("registration timestamps missing from statistics")
	}
	if stats.NewestAt.Before(stats.OldestAt) {
		t.Errorf("NewestAt %v precedes OldestAt %v", stats.NewestAt, stats.OldestAt)
	}
}

func TestStatisticsEmptyRegistry(t *testing.T) {
	stats := NewRegistry().Statistics()
	if stats.Oldest != "" || stats.Newest != "" {
		t.Errorf("Oldest/Newest = %q/%q on empty registry", stats.Oldest, stats.Newest)
	}
	if !stats.OldestAt.IsZero() || !stats.NewestAt.IsZero() {
		t.Error("empty registry must report zero timestamps")
	}
}

func TestDiscoverIsolatesFailingCandidates(t *testing.T) {
	source := StaticSource{
		markdownPlugin("good-one"),
		{ID: "broken"}, // fails validation
		markdownPlugin("good-two"),
	}

	reg := NewRegistry()
	registered, err := reg.Discover(context.Background(), source)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if registered != 2 {
		t.Errorf("registered = %d, want 2", registered)
	}
	if got := reg.Statistics().Total; got != 2 {
		t.Errorf("Total = %d, want 2", got)
	}
}

func TestDiscoverNilSource(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Discover(context.Background(), nil); err == nil {
		t.Error("nil source must fail")
	}
}
