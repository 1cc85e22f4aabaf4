package analyze

import (
	"strings"
	"testing"
)

const simpleDoc = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <rect x="10" y="10" width="30" height="20" fill="#ff0000"/>
  <rect x="50" y="10" width="30" height="20"/>
  <circle cx="50" cy="70" r="15"/>
</svg>`

func complexDoc() string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600">`)
	b.WriteString(`<defs>`)
	b.WriteString(`<linearGradient id="grad"><stop offset="0" stop-color="#fff"/><stop offset="1" stop-color="#000"/></linearGradient>`)
	b.WriteString(`<filter id="soft"><feGaussianBlur stdDeviation="2.5"/><feOffset dx="1" dy="1"/></filter>`)
	b.WriteString(`</defs>`)
	b.WriteString(`<g transform="translate(10,10)">`)
	for i := 0; i < 20; i++ {
		b.WriteString(`<path d="M0,0 C10,20 30,40 50,10 S70,30 90,20 Q100,50 120,40 Z" fill="url(#grad)" filter="url(#soft)"/>`)
	}
	b.WriteString(`</g></svg>`)
	return b.String()
}

func TestAnalyzeSimpleDocument(t *testing.T) {
	r := New().AnalyzeBytes([]byte(simpleDoc))

	if r.ComplexityScore >= 0.3 {
		t.Errorf("expected simple document below 0.3, got %v", r.ComplexityScore)
	}
	if r.ElementCount != 3 {
		t.Errorf("expected 3 elements, got %d", r.ElementCount)
	}
	if r.PathCount != 0 || r.FilterCount != 0 || r.GradientCount != 0 {
		t.Errorf("expected no paths/filters/gradients, got %d/%d/%d",
			r.PathCount, r.FilterCount, r.GradientCount)
	}
	if r.Features != (FeatureFlags{}) {
		t.Errorf("expected no feature flags, got %+v", r.Features)
	}
	if r.EstimatedTimeMS <= 0 {
		t.Errorf("expected positive time estimate, got %v", r.EstimatedTimeMS)
	}
	if len(r.RecommendedStrategies) == 0 || r.RecommendedStrategies[0] != TagNative {
		t.Errorf("expected native-first advisory, got %v", r.RecommendedStrategies)
	}
}

func TestAnalyzeComplexDocument(t *testing.T) {
	r := New().AnalyzeBytes([]byte(complexDoc()))

	if r.ComplexityScore <= 0.5 {
		t.Errorf("expected complex document above 0.5, got %v", r.ComplexityScore)
	}
	if r.PathCount != 20 {
		t.Errorf("expected 20 paths, got %d", r.PathCount)
	}
	if !r.Features.HasFilters || !r.Features.HasGradients || !r.Features.HasTransforms {
		t.Errorf("expected filter/gradient/transform flags, got %+v", r.Features)
	}
	found := false
	for _, p := range r.FilterPrimitives {
		if p == "feGaussianBlur" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected feGaussianBlur in primitives, got %v", r.FilterPrimitives)
	}
}

func TestAnalyzeRanges(t *testing.T) {
	for name, doc := range map[string]string{
		"simple":  simpleDoc,
		"complex": complexDoc(),
		"empty":   `<svg/>`,
	} {
		r := New().AnalyzeBytes([]byte(doc))
		for field, v := range map[string]float64{
			"complexity": r.ComplexityScore,
			"text":       r.TextComplexity,
			"path":       r.PathComplexity,
		} {
			if v < 0 || v > 1 {
				t.Errorf("%s: %s score %v out of [0,1]", name, field, v)
			}
		}
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	a := New()
	first := a.AnalyzeBytes([]byte(complexDoc()))
	second := a.AnalyzeBytes([]byte(complexDoc()))
	if first.ComplexityScore != second.ComplexityScore {
		t.Errorf("scores differ across runs: %v vs %v",
			first.ComplexityScore, second.ComplexityScore)
	}
	if first.ElementCount != second.ElementCount || first.Features != second.Features {
		t.Error("structural results differ across runs")
	}
}

// Growing a document must not lower its score.
func TestAnalyzeMonotonic(t *testing.T) {
	a := New()
	base := `<svg><rect width="5" height="5"/></svg>`
	grown := `<svg><rect width="5" height="5"/>` +
		`<filter id="f"><feGaussianBlur stdDeviation="3"/></filter>` +
		`<path d="M0,0 C1,2 3,4 5,6"/><text dx="1">hello world, a longer run of characters here</text></svg>`

	lo := a.AnalyzeBytes([]byte(base)).ComplexityScore
	hi := a.AnalyzeBytes([]byte(grown)).ComplexityScore
	if hi < lo {
		t.Errorf("adding content lowered the score: %v -> %v", lo, hi)
	}
}

func TestAnalyzeMalformedDefaults(t *testing.T) {
	r := New().AnalyzeBytes([]byte("not markup at all <"))
	if r.ComplexityScore != 0.5 {
		t.Errorf("expected moderate default 0.5, got %v", r.ComplexityScore)
	}
	if len(r.RecommendedStrategies) == 0 {
		t.Error("expected advisory strategies on the default report")
	}
}

func TestAdvisoryBands(t *testing.T) {
	tests := []struct {
		score float64
		first string
	}{
		{0.1, TagNative},
		{0.45, TagHybrid},
		{0.7, TagPreprocessing},
		{0.9, TagEmf},
	}
	for _, tt := range tests {
		r := &Report{ComplexityScore: tt.score}
		got := advisoryStrategies(r)
		if got[0] != tt.first {
			t.Errorf("score %v: expected %s first, got %v", tt.score, tt.first, got)
		}
	}
}

func TestAdvisoryFeatureAppends(t *testing.T) {
	r := &Report{ComplexityScore: 0.1, Features: FeatureFlags{HasAnimations: true, HasFilters: true}}
	got := advisoryStrategies(r)
	if !containsTag(got, TagPreprocessing) {
		t.Errorf("expected preprocessing appended for animations, got %v", got)
	}
	if !containsTag(got, TagEmf) {
		t.Errorf("expected emf appended for filters, got %v", got)
	}
}
