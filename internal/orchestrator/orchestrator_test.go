package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/local/svg2pptx/internal/analyze"
	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/pptx"
	"github.com/local/svg2pptx/internal/render"
	"github.com/local/svg2pptx/internal/strategy"
)

const simplePage = `<svg viewBox="0 0 100 100"><rect width="10" height="10"/></svg>`

func sources(n int) []pages.Source {
	srcs := make([]pages.Source, n)
	for i := range srcs {
		srcs[i] = pages.Source{
			Content:    []byte(simplePage),
			Title:      fmt.Sprintf("Page %d", i+1),
			PageNumber: i + 1,
		}
	}
	return srcs
}

// fakeRenderer scripts per-page behavior and records every call.
type fakeRenderer struct {
	mu    sync.Mutex
	calls []call
	// fail maps a page number to the error every attempt returns.
	fail map[int]error
	// rejectStrategy fails any attempt with this strategy as unsupported.
	rejectStrategy *strategy.Strategy
	delay          func(page int) time.Duration
}

type call struct {
	page  int
	strat strategy.Strategy
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(ctx context.Context, src pages.Source, strat strategy.Strategy) (*render.PageResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{page: src.PageNumber, strat: strat})
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(src.PageNumber))
	}
	if err, ok := f.fail[src.PageNumber]; ok {
		return nil, err
	}
	if f.rejectStrategy != nil && strat == *f.rejectStrategy {
		return nil, fmt.Errorf("%w: scripted rejection", render.ErrUnsupportedContent)
	}
	return &render.PageResult{
		PageNumber:           src.PageNumber,
		Title:                src.Title,
		Strategy:             strat,
		ElementsProcessed:    4,
		NativeElements:       3,
		EmfElements:          1,
		Output:               []byte(fmt.Sprintf("<body page=%d/>", src.PageNumber)),
		ViewportW:            100,
		ViewportH:            100,
		EstimatedQuality:     0.9,
		EstimatedPerformance: 0.8,
	}, nil
}

func (f *fakeRenderer) callsFor(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.page == page {
			n++
		}
	}
	return n
}

// fakeWriter records the slides it was handed.
type fakeWriter struct {
	mu     sync.Mutex
	slides []pptx.Slide
	err    error
}

func (f *fakeWriter) Write(ctx context.Context, slides []pptx.Slide, debug bool) (*pptx.WriteResult, error) {
	f.mu.Lock()
	f.slides = slides
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res := &pptx.WriteResult{Bytes: []byte("pkg"), Size: 3, CompressionRatio: 0.4}
	if debug {
		res.Debug = &pptx.WriteDebug{Structure: pptx.ZipStructure{Slides: len(slides), Parts: 11 + 2*len(slides)}}
	}
	return res, nil
}

func newOrchestrator(r render.Renderer, w PackageWriter, opts Options) *Orchestrator {
	return New(Dependencies{
		Renderer:    r,
		Writer:      w,
		Analyzer:    analyze.New(),
		Recommender: strategy.NewRecommender(),
	}, opts)
}

func TestConvertEmptyInput(t *testing.T) {
	o := newOrchestrator(&fakeRenderer{}, &fakeWriter{}, Options{})
	_, err := o.Convert(context.Background(), nil)
	var e *EmptyInputError
	if !errors.As(err, &e) {
		t.Fatalf("expected EmptyInputError, got %v", err)
	}
}

func TestConvertHappyPath(t *testing.T) {
	fr := &fakeRenderer{}
	fw := &fakeWriter{}
	o := newOrchestrator(fr, fw, Options{})

	res, err := o.Convert(context.Background(), sources(3))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if res.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", res.PageCount)
	}
	if res.TotalElements != 12 || res.TotalNative != 9 || res.TotalEMF != 3 {
		t.Errorf("unexpected aggregates: %d/%d/%d",
			res.TotalElements, res.TotalNative, res.TotalEMF)
	}
	if res.AvgQuality < 0.89 || res.AvgQuality > 0.91 {
		t.Errorf("expected avg quality ~0.9, got %v", res.AvgQuality)
	}
	if string(res.Bytes) != "pkg" || res.PackageSizeBytes != 3 {
		t.Errorf("writer result not propagated: %q %d", res.Bytes, res.PackageSizeBytes)
	}
	if len(fw.slides) != 3 || fw.slides[0].Number != 1 || fw.slides[2].Number != 3 {
		t.Errorf("unexpected slides handed to writer: %+v", fw.slides)
	}
	if res.Debug != nil {
		t.Error("debug data present without Options.Debug")
	}
}

func TestConvertSkipsMalformedPage(t *testing.T) {
	fr := &fakeRenderer{fail: map[int]error{
		2: fmt.Errorf("%w: broken markup", render.ErrMalformedPage),
	}}
	fw := &fakeWriter{}
	o := newOrchestrator(fr, fw, Options{})

	res, err := o.Convert(context.Background(), sources(3))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if res.PageCount != 2 {
		t.Errorf("expected 2 surviving pages, got %d", res.PageCount)
	}
	if len(fw.slides) != 2 || fw.slides[0].Number != 1 || fw.slides[1].Number != 3 {
		t.Errorf("expected slides 1 and 3, got %+v", fw.slides)
	}
	// A malformed page fails once, not once per strategy.
	if got := fr.callsFor(2); got != 1 {
		t.Errorf("expected a single attempt for the malformed page, got %d", got)
	}
}

func TestConvertAllPagesFail(t *testing.T) {
	fr := &fakeRenderer{fail: map[int]error{
		1: fmt.Errorf("%w: broken", render.ErrMalformedPage),
		2: fmt.Errorf("%w: broken", render.ErrMalformedPage),
	}}
	o := newOrchestrator(fr, &fakeWriter{}, Options{})

	_, err := o.Convert(context.Background(), sources(2))
	var e *NoPagesConvertedError
	if !errors.As(err, &e) {
		t.Fatalf("expected NoPagesConvertedError, got %v", err)
	}
	if e.Pages != 2 || e.LastErr == nil {
		t.Errorf("unexpected error detail: %+v", e)
	}
}

func TestConvertFailsOverToNextStrategy(t *testing.T) {
	reject := strategy.NativeDrawingML
	fr := &fakeRenderer{rejectStrategy: &reject}
	fw := &fakeWriter{}
	o := newOrchestrator(fr, fw, Options{})

	res, err := o.Convert(context.Background(), sources(1))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if res.PageCount != 1 {
		t.Fatalf("expected 1 page, got %d", res.PageCount)
	}
	// The simple page ranks native first; the ladder must move past it.
	if got := fr.callsFor(1); got < 2 {
		t.Errorf("expected at least 2 attempts, got %d", got)
	}
	last := fr.calls[len(fr.calls)-1]
	if last.strat == strategy.NativeDrawingML {
		t.Error("render succeeded on the rejected strategy")
	}
}

func TestConvertCancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newOrchestrator(&fakeRenderer{}, &fakeWriter{}, Options{})

	_, err := o.Convert(ctx, sources(3))
	var e *CancelledError
	if !errors.As(err, &e) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
	if e.Completed != 0 {
		t.Errorf("expected zero completed pages, got %d", e.Completed)
	}
}

func TestConvertWriteFailure(t *testing.T) {
	fw := &fakeWriter{err: errors.New("disk full")}
	o := newOrchestrator(&fakeRenderer{}, fw, Options{})

	_, err := o.Convert(context.Background(), sources(1))
	var e *WriteFailedError
	if !errors.As(err, &e) {
		t.Fatalf("expected WriteFailedError, got %v", err)
	}
}

func TestConvertConcurrentPreservesOrder(t *testing.T) {
	fr := &fakeRenderer{delay: func(page int) time.Duration {
		// Early pages finish last.
		return time.Duration(8-page) * 5 * time.Millisecond
	}}
	fw := &fakeWriter{}
	o := newOrchestrator(fr, fw, Options{Concurrency: 4})

	res, err := o.Convert(context.Background(), sources(8))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if res.PageCount != 8 {
		t.Fatalf("expected 8 pages, got %d", res.PageCount)
	}
	for i, s := range fw.slides {
		if s.Number != i+1 {
			t.Fatalf("slide order broken at %d: got page %d", i, s.Number)
		}
	}
}

func TestConvertProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	o := New(Dependencies{
		Renderer:    &fakeRenderer{},
		Writer:      &fakeWriter{},
		Analyzer:    analyze.New(),
		Recommender: strategy.NewRecommender(),
		OnProgress: func(done, total int) {
			mu.Lock()
			seen = append(seen, done)
			mu.Unlock()
			if total != 3 {
				t.Errorf("expected total 3, got %d", total)
			}
		},
	}, Options{})

	if _, err := o.Convert(context.Background(), sources(3)); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if len(seen) != 3 || seen[2] != 3 {
		t.Errorf("unexpected progress sequence %v", seen)
	}
}

func TestConvertDebugTrace(t *testing.T) {
	fr := &fakeRenderer{fail: map[int]error{
		2: fmt.Errorf("%w: broken", render.ErrMalformedPage),
	}}
	o := newOrchestrator(fr, &fakeWriter{}, Options{Debug: true})

	res, err := o.Convert(context.Background(), sources(2))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if res.Debug == nil {
		t.Fatal("expected debug trace")
	}
	if len(res.Debug.Pages) != 2 {
		t.Fatalf("expected 2 page traces, got %d", len(res.Debug.Pages))
	}
	if res.Debug.Pages[0].Skipped || !res.Debug.Pages[1].Skipped {
		t.Errorf("unexpected skip flags: %+v", res.Debug.Pages)
	}
	if res.Debug.Pages[0].Stages["analyze_ms"] < 0 {
		t.Error("expected analyze timing recorded")
	}
	if res.Debug.ZipStructure.Slides != 1 {
		t.Errorf("expected zip structure for 1 slide, got %+v", res.Debug.ZipStructure)
	}
}

func TestBreakerTripsStrategy(t *testing.T) {
	br := newBreaker(2)
	s := strategy.HybridApproach
	if br.isOpen(s) {
		t.Fatal("breaker open before any failure")
	}
	br.recordFailure(s)
	if br.isOpen(s) {
		t.Fatal("breaker open below the limit")
	}
	br.recordFailure(s)
	if !br.isOpen(s) {
		t.Fatal("breaker closed at the limit")
	}
	if br.isOpen(strategy.EmfHeavy) {
		t.Error("failure leaked across strategies")
	}
	br.recordSuccess(s)
	if br.isOpen(s) {
		t.Error("breaker still open after success")
	}
}

func TestBreakerSkipsRendererCalls(t *testing.T) {
	// Every attempt fails transiently; with limit 1 the first page trips
	// every strategy, so later pages are skipped without touching the
	// renderer.
	fr := &fakeRenderer{fail: map[int]error{
		1: errors.New("renderer crashed"),
		2: errors.New("renderer crashed"),
		3: errors.New("renderer crashed"),
	}}
	o := newOrchestrator(fr, &fakeWriter{}, Options{BreakerLimit: 1})

	_, err := o.Convert(context.Background(), sources(3))
	var e *NoPagesConvertedError
	if !errors.As(err, &e) {
		t.Fatalf("expected NoPagesConvertedError, got %v", err)
	}
	first := fr.callsFor(1)
	if first == 0 {
		t.Fatal("expected attempts on the first page")
	}
	if later := fr.callsFor(2) + fr.callsFor(3); later != 0 {
		t.Errorf("expected open breakers to skip later pages, got %d calls", later)
	}
	// Pages skipped without a render attempt still carry a concrete cause.
	if !errors.Is(err, errBreakersOpen) {
		t.Errorf("expected breakers-open cause, got %v", err)
	}
}

func TestTypedErrorMessages(t *testing.T) {
	cases := []error{
		&EmptyInputError{},
		&NoPagesConvertedError{Pages: 3, LastErr: errors.New("x")},
		&CancelledError{Completed: 1, Err: context.Canceled},
		&WriteFailedError{Err: errors.New("y")},
	}
	for _, err := range cases {
		if err.Error() == "" {
			t.Errorf("%T has empty message", err)
		}
	}
	if !errors.Is(&CancelledError{Err: context.Canceled}, context.Canceled) {
		t.Error("CancelledError should unwrap to its cause")
	}
}
