package analyze

import (
	"math"
	"testing"

	"github.com/local/svg2pptx/internal/svg"
)

const curveHeavyDoc = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <path d="M0 0 C10 10 20 20 30 30 C40 40 50 50 60 60"/>
  <path d="M5 5 C15 15 25 25 35 35 S45 45 55 55"/>
  <path d="M1 1 Q10 10 20 20 C30 30 40 40 50 50"/>
</svg>`

func TestIRAdjustmentRaisesScore(t *testing.T) {
	base := New().AnalyzeBytes([]byte(curveHeavyDoc))
	adjusted := New(WithIRAdjustment()).AnalyzeBytes([]byte(curveHeavyDoc))

	if base.IRAdjusted {
		t.Error("default analyzer must not apply the IR pass")
	}
	if !adjusted.IRAdjusted {
		t.Fatal("expected IRAdjusted report with the option on")
	}
	if adjusted.ComplexityScore <= base.ComplexityScore {
		t.Errorf("curve-heavy document should score higher adjusted: %v <= %v",
			adjusted.ComplexityScore, base.ComplexityScore)
	}
	for name, score := range map[string]float64{
		"base": base.ComplexityScore, "adjusted": adjusted.ComplexityScore,
	} {
		if score < 0 || score > 1 {
			t.Errorf("%s score out of range: %v", name, score)
		}
	}
}

func TestAdjustFactorBounds(t *testing.T) {
	cases := []struct {
		name string
		ir   IR
		want float64
	}{
		{"empty", IR{}, 1},
		{"straight paths", IR{Paths: []IRPath{{Segments: 4}}}, 1},
		{"all curves", IR{Paths: []IRPath{{Segments: 2, Curves: 2}}}, 1.5},
		{"capped", IR{Paths: []IRPath{{Segments: 1, Curves: 10}}}, 2},
		{"half deep groups", IR{Groups: []IRGroup{{Depth: 5}, {Depth: 1}}}, 1.125},
		{"images only", IR{Images: 4}, 1.25},
	}
	for _, tc := range cases {
		got := tc.ir.AdjustFactor()
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected factor %v, got %v", tc.name, tc.want, got)
		}
		if got < 1 || got > 2 {
			t.Errorf("%s: factor %v outside [1,2]", tc.name, got)
		}
	}
}

func TestAdjustScoreClamped(t *testing.T) {
	ir := IR{Paths: []IRPath{{Segments: 2, Curves: 2}}} // factor 1.5

	if got := ir.AdjustScore(0.9); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	if got := ir.AdjustScore(0.2); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected 0.3, got %v", got)
	}
	if got := ir.AdjustScore(0); got != 0 {
		t.Errorf("expected zero to stay zero, got %v", got)
	}
}

func TestBuildIRNoDrawables(t *testing.T) {
	if _, err := BuildIR(nil); err == nil {
		t.Error("expected error for nil document")
	}

	// Shapes outside the IR vocabulary do not count as drawable content.
	doc, err := svg.Parse([]byte(`<svg viewBox="0 0 10 10"><rect width="5" height="5"/></svg>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := BuildIR(doc); err == nil {
		t.Error("expected error for a document with no IR content")
	}
}

func TestIRFailureLeavesScoreUntouched(t *testing.T) {
	// BuildIR fails on this document, so the adjusted analyzer must return
	// the plain heuristic score.
	raw := []byte(`<svg viewBox="0 0 10 10"><rect width="5" height="5"/><circle r="2"/></svg>`)

	base := New().AnalyzeBytes(raw)
	adjusted := New(WithIRAdjustment()).AnalyzeBytes(raw)

	if adjusted.IRAdjusted {
		t.Error("IRAdjusted should be false when IR construction fails")
	}
	if adjusted.ComplexityScore != base.ComplexityScore {
		t.Errorf("expected untouched score %v, got %v",
			base.ComplexityScore, adjusted.ComplexityScore)
	}
}
