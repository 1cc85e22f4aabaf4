// Package orchestrator drives the multi-page conversion: analyze each
// page, pick a strategy, render with failover across the ranked
// strategies, aggregate the per-page results and hand the ordered slides
// to the package writer. A single page failing is recoverable; an empty
// batch, a cancelled call, all pages failing or a writer failure are
// fatal, each with its own typed error.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/svg2pptx/internal/analyze"
	"github.com/local/svg2pptx/internal/metrics"
	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/pptx"
	"github.com/local/svg2pptx/internal/render"
	"github.com/local/svg2pptx/internal/strategy"
)

// PackageWriter is the consumer-side view of the package assembly step.
type PackageWriter interface {
	Write(ctx context.Context, slides []pptx.Slide, debug bool) (*pptx.WriteResult, error)
}

// Dependencies wires the orchestrator's collaborators.
type Dependencies struct {
	Renderer    render.Renderer
	Writer      PackageWriter
	Analyzer    *analyze.Analyzer
	Recommender *strategy.Recommender

	// OnProgress, when set, is called after each page settles (rendered or
	// skipped) with the number settled so far and the total.
	OnProgress func(done, total int)
}

// Options tunes one orchestrator instance.
type Options struct {
	// Debug enables per-page and package trace collection.
	Debug bool
	// Concurrency <= 1 renders sequentially; above that a bounded pool
	// renders pages independently. Output order is restored by page number
	// either way.
	Concurrency int
	// Preference biases strategy ranking.
	Preference strategy.Preference
	// PageTimeout bounds one render attempt. Zero means 60s.
	PageTimeout time.Duration
	// BreakerLimit is the consecutive transient failures that trip a
	// strategy for the rest of the conversion. Zero means 3.
	BreakerLimit int
}

// PackageResult is the assembled presentation plus its aggregate metrics.
// The caller owns Bytes exclusively; the orchestrator keeps no reference.
type PackageResult struct {
	Bytes []byte

	PageCount     int
	TotalElements int
	TotalNative   int
	TotalEMF      int

	AvgQuality     float64
	AvgPerformance float64

	PackageSizeBytes int
	CompressionRatio float64

	// Debug is nil unless Options.Debug was set.
	Debug *PackageDebug
}

// PackageDebug is the conversion trace collected in debug mode. Timing
// fields are wall clock and excluded from any equality expectations.
type PackageDebug struct {
	Pages             []PageDebug       `json:"pages"`
	PackageCreationMS float64           `json:"package_creation_ms"`
	FileWriteMS       float64           `json:"file_write_ms"`
	ZipStructure      pptx.ZipStructure `json:"zip_structure"`
	TotalTimeMS       float64           `json:"total_time_ms"`
}

// PageDebug is one page's trace: analysis/recommendation timings merged
// with whatever stage timings the renderer furnished.
type PageDebug struct {
	PageNumber int                `json:"page_number"`
	Strategy   string             `json:"strategy,omitempty"`
	Skipped    bool               `json:"skipped,omitempty"`
	Stages     map[string]float64 `json:"stages,omitempty"`
}

// Orchestrator converts ordered page sources into one package. Safe for
// concurrent use; per-call state lives on the stack.
type Orchestrator struct {
	deps Dependencies
	opts Options
}

func New(deps Dependencies, opts Options) *Orchestrator {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 60 * time.Second
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// pageOutcome is one page's settled state after the failover ladder.
type pageOutcome struct {
	src    pages.Source
	result *render.PageResult // nil when the page was skipped
	err    error
	debug  PageDebug
}

// Convert renders every page in order and assembles the package. Pages
// that fail are logged and skipped; the call fails only when the input is
// empty, everything fails, the context is cancelled between pages, or the
// writer errors.
func (o *Orchestrator) Convert(ctx context.Context, srcs []pages.Source) (*PackageResult, error) {
	if len(srcs) == 0 {
		return nil, &EmptyInputError{}
	}
	start := time.Now()
	br := newBreaker(o.opts.BreakerLimit)

	var outcomes []pageOutcome
	var err error
	if o.opts.Concurrency <= 1 {
		outcomes, err = o.convertSequential(ctx, srcs, br)
	} else {
		outcomes, err = o.convertPool(ctx, srcs, br)
	}
	if err != nil {
		return nil, err
	}
	return o.assemble(ctx, srcs, outcomes, start)
}

func (o *Orchestrator) convertSequential(ctx context.Context, srcs []pages.Source, br *breaker) ([]pageOutcome, error) {
	outcomes := make([]pageOutcome, 0, len(srcs))
	for i, src := range srcs {
		// Cancellation is honored between pages, never mid-render.
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Completed: i, Err: err}
		}
		outcomes = append(outcomes, o.convertPage(ctx, src, br))
		o.progress(i+1, len(srcs))
	}
	return outcomes, nil
}

// convertPool renders pages on a bounded worker pool. Page sources are
// independently owned so workers share nothing but the breaker, which
// locks internally. A failed page never cancels its siblings.
func (o *Orchestrator) convertPool(ctx context.Context, srcs []pages.Source, br *breaker) ([]pageOutcome, error) {
	workers := o.opts.Concurrency
	if workers > len(srcs) {
		workers = len(srcs)
	}

	jobs := make(chan int)
	outcomes := make([]pageOutcome, len(srcs))
	done := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := o.convertPage(ctx, srcs[i], br)
				mu.Lock()
				outcomes[i] = out
				done++
				n := done
				mu.Unlock()
				o.progress(n, len(srcs))
			}
		}()
	}

	cancelled := false
	for i := range srcs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if cancelled || ctx.Err() != nil {
		mu.Lock()
		completed := done
		mu.Unlock()
		return nil, &CancelledError{Completed: completed, Err: ctx.Err()}
	}
	return outcomes, nil
}

// convertPage runs one page through analyze -> recommend -> the failover
// ladder. It never fails the batch: a hopeless page comes back with
// result nil and the last error recorded.
func (o *Orchestrator) convertPage(ctx context.Context, src pages.Source, br *breaker) pageOutcome {
	out := pageOutcome{src: src, debug: PageDebug{PageNumber: src.PageNumber}}
	stages := map[string]float64{}

	t := time.Now()
	report := o.deps.Analyzer.AnalyzeBytes(src.Content)
	stages["analyze_ms"] = msSince(t)

	t = time.Now()
	recs := o.deps.Recommender.Recommend(report, o.opts.Preference)
	stages["recommend_ms"] = msSince(t)

	var lastErr error
	for _, rec := range recs {
		if br.isOpen(rec.Strategy) {
			log.Debug().
				Int("page", src.PageNumber).
				Str("strategy", rec.Strategy.Tag()).
				Msg("strategy breaker open, trying next")
			continue
		}

		rctx, cancel := context.WithTimeout(ctx, o.opts.PageTimeout)
		t = time.Now()
		res, err := o.deps.Renderer.Render(rctx, src, rec.Strategy)
		dur := time.Since(t)
		cancel()

		if err == nil {
			br.recordSuccess(rec.Strategy)
			metrics.ObserveRender(rec.Strategy.Tag(), "success", dur)
			mergeStages(stages, res.Debug)
			stages["render_ms"] = float64(dur.Microseconds()) / 1000
			out.result = res
			out.debug.Strategy = rec.Strategy.Tag()
			out.debug.Stages = stages
			return out
		}
		lastErr = err

		switch {
		case render.IsUnsupported(err):
			metrics.ObserveRender(rec.Strategy.Tag(), "unsupported", dur)
			log.Info().
				Int("page", src.PageNumber).
				Str("strategy", rec.Strategy.Tag()).
				Err(err).
				Msg("strategy cannot express page, trying next")
		case render.IsMalformed(err):
			metrics.ObserveRender(rec.Strategy.Tag(), "malformed", dur)
			log.Warn().
				Int("page", src.PageNumber).
				Str("title", src.Title).
				Err(err).
				Msg("page content malformed, skipping page")
			out.err = err
			out.debug.Skipped = true
			out.debug.Stages = stages
			return out
		default:
			br.recordFailure(rec.Strategy)
			metrics.ObserveRender(rec.Strategy.Tag(), "transient", dur)
			log.Warn().
				Int("page", src.PageNumber).
				Str("strategy", rec.Strategy.Tag()).
				Err(err).
				Msg("render failed, trying next strategy")
		}
	}

	if lastErr == nil {
		lastErr = errBreakersOpen
	}
	log.Error().
		Int("page", src.PageNumber).
		Str("title", src.Title).
		Err(lastErr).
		Msg("no strategy could render page, skipping")
	out.err = lastErr
	out.debug.Skipped = true
	out.debug.Stages = stages
	return out
}

// assemble aggregates the settled pages and drives the package writer.
func (o *Orchestrator) assemble(ctx context.Context, srcs []pages.Source, outcomes []pageOutcome, start time.Time) (*PackageResult, error) {
	var rendered []*render.PageResult
	var pageDebugs []PageDebug
	var lastErr error
	for _, out := range outcomes {
		pageDebugs = append(pageDebugs, out.debug)
		if out.result != nil {
			rendered = append(rendered, out.result)
		} else if out.err != nil {
			lastErr = out.err
		}
	}
	if len(rendered) == 0 {
		metrics.ObserveConversion("failed", len(srcs), time.Since(start))
		return nil, &NoPagesConvertedError{Pages: len(srcs), LastErr: lastErr}
	}

	// Package order is page order, independent of render completion order.
	sort.SliceStable(rendered, func(i, j int) bool {
		return rendered[i].PageNumber < rendered[j].PageNumber
	})

	agg := &PackageResult{PageCount: len(rendered)}
	slides := make([]pptx.Slide, 0, len(rendered))
	var qualitySum, perfSum float64
	for _, r := range rendered {
		agg.TotalElements += r.ElementsProcessed
		agg.TotalNative += r.NativeElements
		agg.TotalEMF += r.EmfElements
		qualitySum += r.EstimatedQuality
		perfSum += r.EstimatedPerformance
		slides = append(slides, pptx.Slide{
			Number:    r.PageNumber,
			Title:     r.Title,
			Body:      r.Output,
			Media:     r.Media,
			Placement: pptx.FitSlide(r.ViewportW, r.ViewportH, pptx.DefaultSlideWidthEMU, pptx.DefaultSlideHeightEMU),
		})
	}
	agg.AvgQuality = qualitySum / float64(len(rendered))
	agg.AvgPerformance = perfSum / float64(len(rendered))

	writeStart := time.Now()
	wres, err := o.deps.Writer.Write(ctx, slides, o.opts.Debug)
	if err != nil {
		metrics.ObserveConversion("write_failed", len(srcs), time.Since(start))
		return nil, &WriteFailedError{Err: err}
	}
	agg.Bytes = wres.Bytes
	agg.PackageSizeBytes = wres.Size
	agg.CompressionRatio = wres.CompressionRatio

	if o.opts.Debug {
		dbg := &PackageDebug{
			Pages:             pageDebugs,
			PackageCreationMS: msSince(start),
			FileWriteMS:       msSince(writeStart),
			TotalTimeMS:       msSince(start),
		}
		if wres.Debug != nil {
			dbg.ZipStructure = wres.Debug.Structure
		}
		agg.Debug = dbg
	}

	metrics.ObserveConversion("success", agg.PageCount, time.Since(start))
	log.Info().
		Int("pages_in", len(srcs)).
		Int("pages_out", agg.PageCount).
		Int("total_elements", agg.TotalElements).
		Int("package_bytes", agg.PackageSizeBytes).
		Dur("duration", time.Since(start)).
		Msg("conversion complete")
	return agg, nil
}

func (o *Orchestrator) progress(done, total int) {
	if o.deps.OnProgress != nil {
		o.deps.OnProgress(done, total)
	}
}

func mergeStages(dst map[string]float64, src map[string]float64) {
	for k, v := range src {
		dst[k] = v
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
