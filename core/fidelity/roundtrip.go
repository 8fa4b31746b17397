package fidelity

import (
	"context"
	"sync"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

// RoundTripper gives a concrete renderer a TestRoundTrip method by
// embedding. The embedding renderer passes itself as r on each call; the
// tester is built once and reused.
type RoundTripper struct {
	once   sync.Once
	tester *Tester
}

// TestRoundTrip runs a render+parse fidelity test of d through r.
func (rt *RoundTripper) TestRoundTrip(ctx context.Context, r render.BidirectionalRenderer, d *doc.Document, opts *TestOptions) (*RoundTripResult, error) {
	rt.once.Do(func() {
		rt.tester = NewTester(r)
	})
	return rt.tester.TestDocument(ctx, d, opts)
}
