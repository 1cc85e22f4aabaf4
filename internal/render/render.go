// Package render defines the per-page renderer contract the orchestrator
// drives, plus the two implementations: a pure-Go builtin renderer and an
// adapter around an external converter binary.
package render

import (
	"context"
	"errors"

	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/pptx"
	"github.com/local/svg2pptx/internal/strategy"
)

// Sentinel errors classify render failures for the failover ladder.
var (
	// ErrUnsupportedContent: the chosen strategy cannot express this page;
	// the ladder moves on to the next ranked strategy.
	ErrUnsupportedContent = errors.New("render: content unsupported by strategy")
	// ErrMalformedPage: the page content is garbage; no strategy will help,
	// the page is skipped.
	ErrMalformedPage = errors.New("render: malformed page")
	// ErrUnavailable: transient renderer failure; counts toward the
	// strategy breaker.
	ErrUnavailable = errors.New("render: renderer unavailable")
)

func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupportedContent) }
func IsMalformed(err error) bool   { return errors.Is(err, ErrMalformedPage) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// PageResult is one rendered page, ready for packaging. The producing
// renderer guarantees NativeElements + EmfElements <= ElementsProcessed.
type PageResult struct {
	PageNumber int
	Title      string
	Strategy   strategy.Strategy

	ElementsProcessed int
	NativeElements    int
	EmfElements       int

	// Output is the slide body DrawingML; Media holds referenced binaries.
	Output []byte
	Media  []pptx.Media

	// Viewport in CSS pixels, zero when the page declared none.
	ViewportW float64
	ViewportH float64

	EstimatedQuality     float64
	EstimatedPerformance float64

	// Debug carries per-stage millisecond timings when the renderer
	// collects them.
	Debug map[string]float64
}

// Renderer converts one page with one strategy.
type Renderer interface {
	Name() string
	Render(ctx context.Context, src pages.Source, strat strategy.Strategy) (*PageResult, error)
}
