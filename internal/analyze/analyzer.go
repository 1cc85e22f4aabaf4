// Package analyze scores SVG documents for conversion difficulty. One
// structural pass collects counts, feature flags and content signals; the
// scorer folds them into a [0,1] complexity score; the analyzer wraps both
// into an immutable report. Analysis never fails: malformed input degrades
// to a moderate default report.
package analyze

import (
	"github.com/local/svg2pptx/internal/svg"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithIRAdjustment enables the optional second scoring pass: the heuristic
// score is multiplied by an IR-derived factor (capped at 2x) when IR
// construction succeeds. Off by default so scores stay comparable across
// documents unless a caller opts in.
func WithIRAdjustment() Option {
	return func(a *Analyzer) { a.irAdjust = true }
}

// Analyzer composes the feature scan, the complexity scorer and the
// optional IR pass. Safe for concurrent use; it holds no mutable state.
type Analyzer struct {
	scorer   *Scorer
	irAdjust bool
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{scorer: NewScorer()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeBytes parses and analyzes raw document bytes. Parse failures
// degrade to the default report.
func (a *Analyzer) AnalyzeBytes(data []byte) *Report {
	doc, err := svg.Parse(data)
	if err != nil {
		return defaultReport()
	}
	return a.Analyze(doc)
}

// Analyze produces the report for a parsed document. Two calls on the same
// document return identical reports.
func (a *Analyzer) Analyze(doc *svg.Document) *Report {
	scan := ScanDocument(doc)
	if scan == nil {
		return defaultReport()
	}

	score := a.scorer.Score(scan)
	irApplied := false
	if a.irAdjust {
		if ir, err := BuildIR(doc); err == nil {
			score = ir.AdjustScore(score)
			irApplied = true
		}
	}

	pathC, _ := pathComplexity(scan.PathData)
	textC, _ := textComplexity(scan.Texts)

	r := &Report{
		ComplexityScore:   clamp01(score),
		ElementCount:      scan.ElementCount,
		PathCount:         scan.Counts["path"],
		TextCount:         scan.Counts["text"],
		GroupCount:        scan.Counts["g"],
		ImageCount:        scan.Counts["image"],
		FilterCount:       scan.Counts["filter"],
		GradientCount:     scan.Counts["linearGradient"] + scan.Counts["radialGradient"],
		Features:          scan.Flags,
		TextComplexity:    clamp01(textC),
		PathComplexity:    clamp01(pathC),
		GroupNestingDepth: scan.GroupDepth,
		FilterPrimitives:  scan.FilterPrimitives,
		IRAdjusted:        irApplied,
	}
	r.EstimatedTimeMS = estimateTimeMS(r.ElementCount, r.ComplexityScore)
	r.RecommendedStrategies = advisoryStrategies(r)
	return r
}
