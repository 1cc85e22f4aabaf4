package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/local/svg2pptx/internal/analyze"
	"github.com/local/svg2pptx/internal/registry"
)

// Preference biases the ranking toward speed or output fidelity.
type Preference int

const (
	Balanced Preference = iota
	SpeedOptimized
	QualityOptimized
)

func (p Preference) String() string {
	switch p {
	case SpeedOptimized:
		return "speed"
	case QualityOptimized:
		return "quality"
	default:
		return "balanced"
	}
}

// ParsePreference maps a config/query string to a preference, defaulting
// to balanced.
func ParsePreference(s string) Preference {
	switch s {
	case "speed", "speed_optimized":
		return SpeedOptimized
	case "quality", "quality_optimized":
		return QualityOptimized
	default:
		return Balanced
	}
}

// Recommendation is one ranked strategy choice with its trade-off estimates
// and the human-readable trail of how it scored.
type Recommendation struct {
	Strategy             Strategy `json:"strategy"`
	Confidence           float64  `json:"confidence"`
	EstimatedQuality     float64  `json:"estimated_quality"`
	EstimatedPerformance float64  `json:"estimated_performance"`
	Reasoning            []string `json:"reasoning,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
	Optimizations        []string `json:"optimizations,omitempty"`
	Prerequisites        []string `json:"prerequisites,omitempty"`
}

// MarshalText makes the strategy render as its tag in JSON maps and logs.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.Tag()), nil }

// UnmarshalText resolves the wire tag back to its strategy, so encoded
// recommendations round-trip through JSON.
func (s *Strategy) UnmarshalText(b []byte) error {
	st, ok := FromTag(string(b))
	if !ok {
		return fmt.Errorf("unknown strategy tag %q", string(b))
	}
	*s = st
	return nil
}

const (
	// Candidates at or below this confidence are dropped outright.
	confidenceFloor = 0.1
	fallbackThreshold = 0.6 // confidence assigned to the synthetic fallback
	// Below this best confidence the fallback recommendation is appended.
	lowConfidenceBar = 0.5

	maxRecommendations = 3

	highComplexityBar     = 0.8
	highComplexityPenalty = 0.9
	missingAnimPenalty    = 0.7
	missingFilterPenalty  = 0.8

	unsupportedFeatureScore = 0.2

	perfComplexityWeight = 0.2
	perfElementCeiling   = 200.0
	perfElementMax       = 0.3
	perfFloor            = 0.1
)

var qualityBaseline = map[Strategy]float64{
	NativeDrawingML:    0.95,
	HybridApproach:     0.88,
	PreprocessingFirst: 0.85,
	EmfHeavy:           0.80,
	FallbackMode:       0.70,
}

var performanceBaseline = map[Strategy]float64{
	NativeDrawingML:    0.90,
	HybridApproach:     0.75,
	EmfHeavy:           0.70,
	PreprocessingFirst: 0.65,
	FallbackMode:       0.60,
}

// preferenceAdjust biases confidence per strategy: speed favors the cheap
// native path, quality favors the heavyweight ones.
var preferenceAdjust = map[Strategy][3]float64{
	// order: Balanced, SpeedOptimized, QualityOptimized
	NativeDrawingML:    {1.0, 1.3, 0.9},
	HybridApproach:     {1.0, 1.1, 1.1},
	EmfHeavy:           {1.0, 0.9, 1.2},
	PreprocessingFirst: {1.0, 0.8, 1.25},
	FallbackMode:       {1.0, 1.0, 0.7},
}

// rankedCandidates are the strategies scored as real candidates.
// FallbackMode is reserved as the safety net and never competes.
var rankedCandidates = []Strategy{
	NativeDrawingML, HybridApproach, EmfHeavy, PreprocessingFirst,
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithCapabilities overrides the capability table, for tests that want to
// exercise limit edges without fabricating documents.
func WithCapabilities(caps map[Strategy]Capability) Option {
	return func(r *Recommender) { r.caps = caps }
}

// WithRegistry injects the feature-capability registry so prerequisites can
// name the filter/gradient categories a document depends on.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Recommender) { r.registry = reg }
}

// Recommender ranks strategies for analyzed documents. Stateless and safe
// for concurrent use.
type Recommender struct {
	caps     map[Strategy]Capability
	registry *registry.Registry
}

func NewRecommender(opts ...Option) *Recommender {
	r := &Recommender{caps: defaultCapabilities}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend scores every candidate strategy against the report, ranks the
// survivors by confidence and returns at most three. The list is never
// empty: when nothing clears the confidence bar a FallbackMode entry with
// manual-review warnings is appended.
func (r *Recommender) Recommend(report *analyze.Report, pref Preference) []Recommendation {
	if report == nil {
		return []Recommendation{r.fallback("no analysis report available")}
	}

	recs := make([]Recommendation, 0, len(rankedCandidates))
	for _, s := range rankedCandidates {
		rec := r.score(s, report, pref)
		if rec.Confidence > confidenceFloor {
			recs = append(recs, rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		if recs[i].EstimatedQuality != recs[j].EstimatedQuality {
			return recs[i].EstimatedQuality > recs[j].EstimatedQuality
		}
		return recs[i].Strategy < recs[j].Strategy
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}

	if len(recs) == 0 {
		recs = append(recs, r.fallback("no strategy scored above the confidence floor"))
	} else if recs[0].Confidence < lowConfidenceBar {
		recs = append(recs, r.fallback(fmt.Sprintf(
			"best candidate %s scored only %.2f confidence", recs[0].Strategy, recs[0].Confidence)))
		if len(recs) > maxRecommendations {
			recs = recs[:maxRecommendations]
		}
	}
	return dedupe(recs)
}

func (r *Recommender) score(s Strategy, report *analyze.Report, pref Preference) Recommendation {
	limits := r.caps[s]
	rec := Recommendation{Strategy: s}

	complexityF := withinLimit(report.ComplexityScore, limits.MaxComplexity)
	pathF := withinLimit(report.PathComplexity, limits.MaxPathComplexity)
	textF := withinLimit(report.TextComplexity, limits.MaxTextComplexity)
	nestF := nestingFactor(report.GroupNestingDepth, limits.MaxNestingDepth)
	featureF := r.featureSupport(&rec, report, limits)

	if complexityF == 1 {
		rec.Reasoning = append(rec.Reasoning, fmt.Sprintf(
			"document complexity %.2f is within the %.2f limit", report.ComplexityScore, limits.MaxComplexity))
	} else {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"document complexity %.2f exceeds the %.2f limit", report.ComplexityScore, limits.MaxComplexity))
	}
	if pathF < 1 {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"path complexity %.2f exceeds the %.2f limit", report.PathComplexity, limits.MaxPathComplexity))
		rec.Optimizations = append(rec.Optimizations, "simplify path data before conversion")
	}
	if textF < 1 {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"text complexity %.2f exceeds the %.2f limit", report.TextComplexity, limits.MaxTextComplexity))
		rec.Optimizations = append(rec.Optimizations, "flatten tspan runs and positioned text")
	}
	if nestF < 1 {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"group nesting depth %d exceeds the supported %d", report.GroupNestingDepth, limits.MaxNestingDepth))
		rec.Optimizations = append(rec.Optimizations, "flatten nested groups")
	}

	base := (complexityF + pathF + textF + nestF + featureF) / 5
	adj := preferenceAdjust[s][pref]
	rec.Confidence = clamp01(base * adj)
	if adj != 1.0 {
		rec.Reasoning = append(rec.Reasoning, fmt.Sprintf(
			"%s preference adjusts confidence by %.2fx", pref, adj))
	}

	rec.EstimatedQuality = r.estimateQuality(s, report, limits)
	rec.EstimatedPerformance = estimatePerformance(s, report)
	r.registryPrerequisites(&rec, report, s)
	return rec
}

// withinLimit is 1.0 inside the limit and decays twice as fast as the
// overshoot outside it.
func withinLimit(value, limit float64) float64 {
	if value <= limit {
		return 1
	}
	return clamp01(1 - 2*(value-limit))
}

func nestingFactor(depth, maxDepth int) float64 {
	if depth <= maxDepth || depth == 0 {
		return 1
	}
	return float64(maxDepth) / float64(depth)
}

// featureSupport averages per-feature scores: a feature the document does
// not use never counts against a strategy; one it uses without support is
// penalized but not zeroed, so degradation stays graceful.
func (r *Recommender) featureSupport(rec *Recommendation, report *analyze.Report, limits Capability) float64 {
	checks := []struct {
		name      string
		used      bool
		supported bool
	}{
		{"transforms", report.Features.HasTransforms, limits.Transforms},
		{"clipping", report.Features.HasClipping, limits.Clipping},
		{"patterns", report.Features.HasPatterns, limits.Patterns},
		{"animations", report.Features.HasAnimations, limits.Animations},
		{"filters", report.Features.HasFilters, limits.Filters},
	}
	sum := 0.0
	for _, c := range checks {
		switch {
		case !c.used:
			sum += 1
		case c.supported:
			sum += 1
			rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("full %s support", c.name))
		default:
			sum += unsupportedFeatureScore
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("strategy has limited %s support", c.name))
		}
	}
	return sum / float64(len(checks))
}

func (r *Recommender) estimateQuality(s Strategy, report *analyze.Report, limits Capability) float64 {
	q := qualityBaseline[s]
	if report.ComplexityScore > highComplexityBar {
		q *= highComplexityPenalty
	}
	if report.Features.HasAnimations && !limits.Animations {
		q *= missingAnimPenalty
	}
	if report.Features.HasFilters && !limits.Filters {
		q *= missingFilterPenalty
	}
	return clamp01(q)
}

func estimatePerformance(s Strategy, report *analyze.Report) float64 {
	p := performanceBaseline[s]
	p -= report.ComplexityScore*perfComplexityWeight +
		math.Min(float64(report.ElementCount)/perfElementCeiling, perfElementMax)
	if p < perfFloor {
		return perfFloor
	}
	return p
}

// registryPrerequisites folds the capability registry into prerequisites:
// each filter/gradient category the document uses that the strategy cannot
// render natively becomes an explicit precondition.
func (r *Recommender) registryPrerequisites(rec *Recommendation, report *analyze.Report, s Strategy) {
	if r.registry == nil || len(report.FilterPrimitives) == 0 {
		return
	}
	seen := make(map[string]bool)
	for _, prim := range report.FilterPrimitives {
		name, ok := r.registry.PrimitiveCategory(prim)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		cat, err := r.registry.Lookup(name)
		if err != nil {
			continue
		}
		switch cat.SupportFor(s.Tag()) {
		case registry.SupportRasterized:
			rec.Prerequisites = append(rec.Prerequisites, fmt.Sprintf(
				"%s effects will be rasterized (%s)", name, cat.Description))
		case registry.SupportApproximate:
			rec.Prerequisites = append(rec.Prerequisites, fmt.Sprintf(
				"%s effects are approximated (%s)", name, cat.Description))
		case registry.SupportNone:
			rec.Prerequisites = append(rec.Prerequisites, fmt.Sprintf(
				"preprocess %s effects before using %s", name, s))
		}
	}
	sort.Strings(rec.Prerequisites)
}

// fallback is the synthetic safety-net recommendation appended when no real
// candidate clears the bar.
func (r *Recommender) fallback(reason string) Recommendation {
	return Recommendation{
		Strategy:             FallbackMode,
		Confidence:           fallbackThreshold,
		EstimatedQuality:     qualityBaseline[FallbackMode],
		EstimatedPerformance: performanceBaseline[FallbackMode],
		Reasoning:            []string{reason, "fallback mode trades fidelity for guaranteed output"},
		Warnings: []string{
			"no strategy cleared the confidence bar",
			"manual review of the converted output is recommended",
		},
	}
}

func dedupe(recs []Recommendation) []Recommendation {
	seen := make(map[Strategy]bool, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		if seen[rec.Strategy] {
			continue
		}
		seen[rec.Strategy] = true
		out = append(out, rec)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
