// Package plugins manages renderer extension plugins: registration,
// per-renderer initialization, format-compatibility lookup, and discovery
// from external sources. Plugins customize rendering behavior (custom
// block handling, post-processing) for the formats they declare.
package plugins

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/logging"
)

// RendererPlugin is an extension that attaches to renderers of compatible
// formats. Initialize is required; Detach and Cleanup are optional.
type RendererPlugin struct {
	// ID uniquely identifies the plugin within a registry.
	ID string `json:"id"`

	// Name is the human-readable plugin name.
	Name string `json:"name"`

	// Version is the plugin's own version string.
	Version string `json:"version"`

	// CompatibleFormats lists the formats the plugin may attach to.
	CompatibleFormats []render.Format `json:"compatibleFormats"`

	// Initialize runs once over the plugin's lifetime, on the first
	// renderer it is attached to. Required; a plugin with nothing to set
	// up supplies a hook that returns nil.
	Initialize func(r render.Renderer) error `json:"-"`

	// Detach runs for each attached renderer when the plugin is
	// unregistered.
	Detach func(r render.Renderer) `json:"-"`

	// Cleanup runs once when the plugin is unregistered.
	Cleanup func() error `json:"-"`
}

// registration is the registry's bookkeeping for one plugin.
type registration struct {
	plugin       *RendererPlugin
	initialized  bool
	attached     map[render.Renderer]struct{}
	registeredAt time.Time
}

// Registry tracks registered plugins. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	plugins  map[string]*registration
	byFormat map[render.Format]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]*registration),
		byFormat: make(map[render.Format]map[string]struct{}),
	}
}

// validatePlugin checks the fields registration requires.
func validatePlugin(p *RendererPlugin) error {
	if p == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "plugin is nil")
	}
	if p.ID == "" {
		return apperrors.NewPlugin("", "register", "plugin id is required")
	}
	if p.Name == "" {
		return apperrors.NewPlugin(p.ID, "register", "plugin name is required")
	}
	if p.Version == "" {
		return apperrors.NewPlugin(p.ID, "register", "plugin version is required")
	}
	if len(p.CompatibleFormats) == 0 {
		return apperrors.NewPlugin(p.ID, "register", "plugin declares no compatible formats")
	}
	for _, f := range p.CompatibleFormats {
		if !f.IsValid() {
			return apperrors.NewPlugin(p.ID, "register", "unknown format "+string(f))
		}
	}
	if p.Initialize == nil {
		return apperrors.NewPlugin(p.ID, "register", "plugin has no initialize hook")
	}
	return nil
}

// Register adds a plugin. Registering an ID twice fails; unregister first
// to replace a plugin.
func (reg *Registry) Register(p *RendererPlugin) error {
	if err := validatePlugin(p); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.plugins[p.ID]; exists {
		return apperrors.NewPlugin(p.ID, "register", "already registered")
	}

	reg.plugins[p.ID] = &registration{
		plugin:       p,
		attached:     make(map[render.Renderer]struct{}),
		registeredAt: time.Now(),
	}
	for _, f := range p.CompatibleFormats {
		if reg.byFormat[f] == nil {
			reg.byFormat[f] = make(map[string]struct{})
		}
		reg.byFormat[f][p.ID] = struct{}{}
	}

	formats := make([]string, len(p.CompatibleFormats))
	for i, f := range p.CompatibleFormats {
		formats[i] = string(f)
	}
	logging.PluginLoading(p.ID, p.Version, formats)
	return nil
}

// Unregister removes a plugin, detaching it from every renderer it was
// initialized for and running its cleanup hook. Unknown IDs fail.
func (reg *Registry) Unregister(id string) error {
	reg.mu.Lock()
	entry, ok := reg.plugins[id]
	if !ok {
		reg.mu.Unlock()
		return apperrors.NewPlugin(id, "unregister", "not registered")
	}
	delete(reg.plugins, id)
	for _, f := range entry.plugin.CompatibleFormats {
		delete(reg.byFormat[f], id)
		if len(reg.byFormat[f]) == 0 {
			delete(reg.byFormat, f)
		}
	}
	reg.mu.Unlock()

	// Hooks run outside the lock: they are plugin code and may be slow.
	if entry.plugin.Detach != nil {
		for r := range entry.attached {
			entry.plugin.Detach(r)
		}
	}
	if entry.plugin.Cleanup != nil {
		if err := entry.plugin.Cleanup(); err != nil {
			return &apperrors.PluginError{PluginID: id, Operation: "cleanup", Message: err.Error(), Err: err}
		}
	}
	return nil
}

// InitializePlugin attaches a registered plugin to a renderer. The
// renderer's format must be among the plugin's compatible formats. The
// plugin's Initialize hook fires only on its first attachment; later
// attachments record the renderer without re-initializing.
func (reg *Registry) InitializePlugin(id string, r render.Renderer) error {
	if r == nil {
		return apperrors.NewPlugin(id, "initialize", "renderer is nil")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	entry, ok := reg.plugins[id]
	if !ok {
		return apperrors.NewPlugin(id, "initialize", "not registered")
	}

	compatible := false
	for _, f := range entry.plugin.CompatibleFormats {
		if f == r.Format() {
			compatible = true
			break
		}
	}
	if !compatible {
		return apperrors.NewPlugin(id, "initialize",
			"incompatible with format "+string(r.Format()))
	}

	if !entry.initialized {
		if err := entry.plugin.Initialize(r); err != nil {
			return &apperrors.PluginError{PluginID: id, Operation: "initialize", Message: err.Error(), Err: err}
		}
		entry.initialized = true
	}
	entry.attached[r] = struct{}{}
	return nil
}

// FindCompatiblePlugins returns all plugins declaring the format,
// ordered by ID.
func (reg *Registry) FindCompatiblePlugins(f render.Format) []*RendererPlugin {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ids := reg.byFormat[f]
	result := make([]*RendererPlugin, 0, len(ids))
	for id := range ids {
		result = append(result, reg.plugins[id].plugin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// PluginsForRenderer returns the plugins attached to a renderer,
// ordered by ID.
func (reg *Registry) PluginsForRenderer(r render.Renderer) []*RendererPlugin {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var result []*RendererPlugin
	for _, entry := range reg.plugins {
		if _, ok := entry.attached[r]; ok {
			result = append(result, entry.plugin)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ListPlugins returns all registered plugins, ordered by ID.
func (reg *Registry) ListPlugins() []*RendererPlugin {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	result := make([]*RendererPlugin, 0, len(reg.plugins))
	for _, entry := range reg.plugins {
		result = append(result, entry.plugin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Statistics summarizes the registry's current population.
type Statistics struct {
	// Total is the number of registered plugins.
	Total int `json:"total"`

	// Initialized is the number of plugins whose Initialize has fired.
	Initialized int `json:"initialized"`

	// ByFormat counts plugins per declared format.
	ByFormat map[render.Format]int `json:"byFormat"`

	// Oldest is the ID of the earliest-registered plugin, empty when the
	// registry is empty.
	Oldest string `json:"oldest,omitempty"`

	// OldestAt is when the oldest plugin was registered, zero when the
	// registry is empty.
	OldestAt time.Time `json:"oldestAt,omitempty"`

	// Newest is the ID of the latest-registered plugin, empty when the
	// registry is empty.
	Newest string `json:"newest,omitempty"`

	// NewestAt is when the newest plugin was registered, zero when the
	// registry is empty.
	NewestAt time.Time `json:"newestAt,omitempty"`
}

// Statistics reports the registry's current population.
func (reg *Registry) Statistics() *Statistics {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	stats := &Statistics{
		Total:    len(reg.plugins),
		ByFormat: make(map[render.Format]int, len(reg.byFormat)),
	}
	for f, ids := range reg.byFormat {
		stats.ByFormat[f] = len(ids)
	}

	for id, entry := range reg.plugins {
		if entry.initialized {
			stats.Initialized++
		}
		if stats.OldestAt.IsZero() || entry.registeredAt.Before(stats.OldestAt) {
			stats.OldestAt = entry.registeredAt
			stats.Oldest = id
		}
		if stats.NewestAt.IsZero() || entry.registeredAt.After(stats.NewestAt) {
			stats.NewestAt = entry.registeredAt
			stats.Newest = id
		}
	}
	return stats
}

// Discover pulls candidate plugins from a source and registers each one.
// A failing candidate is logged and skipped; it never aborts the rest of
// the batch. Returns the number of plugins registered.
func (reg *Registry) Discover(ctx context.Context, source Source) (int, error) {
	if source == nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "plugins: no source")
	}

	candidates, err := source.Plugins(ctx)
	if err != nil {
		return 0, apperrors.Wrap(err, "plugins: discovery failed")
	}

	registered := 0
	for _, p := range candidates {
		if err := reg.Register(p); err != nil {
			id := ""
			if p != nil {
				id = p.ID
			}
			logging.PluginError(id, "discover", err)
			continue
		}
		registered++
	}
	logging.Debug("plugin discovery complete",
		"candidates", len(candidates), "registered", registered)
	return registered, nil
}
