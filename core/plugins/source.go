package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/logging"
)

// Source yields candidate plugins for Registry.Discover. Injecting the
// source keeps discovery testable and lets callers mix directory scans
// with compiled-in plugin sets.
type Source interface {
	// Plugins returns the candidates. A candidate that later fails
	// registration must not have prevented the others from being listed.
	Plugins(ctx context.Context) ([]*RendererPlugin, error)
}

// Manifest is the plugin.json file describing an external plugin.
type Manifest struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Formats []string `json:"formats"`
}

// ParseManifest reads and validates a plugin.json file.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "read manifest %s", path)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewParse("JSON", err.Error())
	}

	if m.ID == "" {
		return nil, apperrors.NewPlugin("", "manifest", "id is required")
	}
	if m.Name == "" {
		return nil, apperrors.NewPlugin(m.ID, "manifest", "name is required")
	}
	if m.Version == "" {
		return nil, apperrors.NewPlugin(m.ID, "manifest", "version is required")
	}
	if len(m.Formats) == 0 {
		return nil, apperrors.NewPlugin(m.ID, "manifest", "formats is required")
	}
	return &m, nil
}

// plugin converts the manifest into a metadata-only plugin.
func (m *Manifest) plugin() (*RendererPlugin, error) {
	formats := make([]render.Format, 0, len(m.Formats))
	for _, s := range m.Formats {
		f, err := render.ParseFormat(s)
		if err != nil {
			return nil, apperrors.NewPlugin(m.ID, "manifest", "unknown format "+s)
		}
		formats = append(formats, f)
	}
	return &RendererPlugin{
		ID:                m.ID,
		Name:              m.Name,
		Version:           m.Version,
		CompatibleFormats: formats,
		// A manifest carries metadata only; there is nothing to set up.
		Initialize: func(render.Renderer) error { return nil },
	}, nil
}

// DirSource discovers plugins from subdirectories holding plugin.json
// manifests. A missing root directory yields an empty candidate list.
type DirSource struct {
	// Dir is the root directory to scan.
	Dir string

	// Build converts a parsed manifest into a plugin, typically wiring
	// hook funcs keyed by manifest ID. When nil, manifests become
	// metadata-only plugins.
	Build func(m *Manifest, dir string) (*RendererPlugin, error)
}

// Plugins scans Dir for subdirectories containing plugin.json. A broken
// manifest is logged and skipped.
func (s *DirSource) Plugins(ctx context.Context) ([]*RendererPlugin, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.Wrapf(err, "read plugin directory %s", s.Dir)
	}

	var result []*RendererPlugin
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(s.Dir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "plugin.json")
		if _, err := os.Stat(manifestPath); err != nil {
			logging.Debug("skipping directory without manifest", "path", pluginDir)
			continue
		}

		m, err := ParseManifest(manifestPath)
		if err != nil {
			logging.Warn("failed to parse plugin manifest", "path", manifestPath, "error", err)
			continue
		}

		p, err := s.build(m, pluginDir)
		if err != nil {
			logging.PluginError(m.ID, "build", err)
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *DirSource) build(m *Manifest, dir string) (*RendererPlugin, error) {
	if s.Build != nil {
		return s.Build(m, dir)
	}
	return m.plugin()
}

// StaticSource serves a fixed, compiled-in plugin list.
type StaticSource []*RendererPlugin

// Plugins returns the static list.
func (s StaticSource) Plugins(_ context.Context) ([]*RendererPlugin, error) {
	return s, nil
}
