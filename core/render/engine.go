package render

import (
	"fmt"
	"strings"

	"github.com/xats-org/xats-go/core/doc"
)

// BlockHandler renders one content block to the target format.
type BlockHandler func(b *doc.ContentBlock) (string, error)

// ContainerHandler wraps already-rendered child output in the container's
// target-format markup. depth is the container nesting level, 0-based.
type ContainerHandler func(c *doc.StructuralContainer, depth int, inner string) (string, error)

// Engine drives the shared render dispatch: it classifies heterogeneous
// contents arrays purely from shape, preserves source order exactly,
// consults caller overrides before built-in handlers, and never fails on
// an unrecognized block type.
type Engine struct {
	// Escape is the format-specific text escape. Required.
	Escape func(string) string

	// Handlers maps block-type local names to built-in handlers.
	Handlers map[string]BlockHandler

	// Overrides maps block-type local names to caller-supplied handlers,
	// consulted before Handlers.
	Overrides map[string]BlockHandler

	// Container renders a structural container around its children. Required.
	Container ContainerHandler

	// Fallback renders an unrecognized block. When nil, the engine falls
	// back to escaped best-effort text or a marked placeholder.
	Fallback func(b *doc.ContentBlock) string

	// Separator joins sibling renderings.
	Separator string
}

// RenderContents renders a heterogeneous contents array in source order.
func (e *Engine) RenderContents(nodes []*doc.ContentNode, depth int) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		rendered, err := e.RenderNode(n, depth)
		if err != nil {
			return "", err
		}
		if rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, e.Separator), nil
}

// RenderNode renders a single node, container or block.
func (e *Engine) RenderNode(n *doc.ContentNode, depth int) (string, error) {
	switch {
	case n.IsBlock():
		return e.RenderBlock(n.Block)
	case n.IsContainer():
		inner, err := e.RenderContents(n.Container.Contents, depth+1)
		if err != nil {
			return "", err
		}
		return e.Container(n.Container, depth, inner)
	default:
		return "", fmt.Errorf("content node holds neither container nor block")
	}
}

// RenderBlock renders one content block: caller override first, then the
// built-in handler, then the unknown-block fallback. An unrecognized block
// type is never an error.
func (e *Engine) RenderBlock(b *doc.ContentBlock) (string, error) {
	name := b.LocalName()

	if h, ok := e.Overrides[name]; ok {
		return h(b)
	}
	if h, ok := e.Handlers[name]; ok {
		return h(b)
	}
	if e.Fallback != nil {
		return e.Fallback(b), nil
	}
	return e.DefaultFallback(b), nil
}

// DefaultFallback extracts best-effort plain text from an unknown block,
// or emits a clearly marked placeholder when no text can be found.
func (e *Engine) DefaultFallback(b *doc.ContentBlock) string {
	if st, ok := b.SniffText(); ok {
		return e.Escape(st.PlainText())
	}
	return e.Escape(fmt.Sprintf("[unsupported block: %s]", b.LocalName()))
}
