// Package formats wires the per-format renderers into a single lookup so
// callers can go from a format name to a working bidirectional renderer.
package formats

import (
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/formats/docx"
	"github.com/xats-org/xats-go/internal/formats/html"
	"github.com/xats-org/xats-go/internal/formats/markdown"
	"github.com/xats-org/xats-go/internal/formats/txt"
)

// New returns the renderer for a format.
func New(format render.Format) (render.BidirectionalRenderer, error) {
	switch format {
	case render.FormatHTML:
		return html.New(), nil
	case render.FormatMarkdown:
		return markdown.New(), nil
	case render.FormatText:
		return txt.New(), nil
	case render.FormatDocx:
		return docx.New(), nil
	default:
		return nil, apperrors.NewUnsupported("format "+string(format), "no renderer is registered for it")
	}
}

// All returns one renderer per supported format, in stable order.
func All() []render.BidirectionalRenderer {
	return []render.BidirectionalRenderer{
		docx.New(),
		html.New(),
		markdown.New(),
		txt.New(),
	}
}
