package analyze

import (
	"errors"
	"math"
)

const (
	defaultElementWeight  = 0.5
	filterPrimitiveWeight = 2.0

	// Base scores saturate: fifty simple shapes are "busy", not "hard".
	saturationCount = 50.0
	maxBaseScore    = 2.0

	maxFeatureMultiplier = 3.0

	structuralWeight = 0.3
	contentWeight    = 0.2

	// Structural normalization ceilings.
	depthCeiling   = 10.0
	defsCeiling    = 20.0
	urlRefCeiling  = 30.0
	useCeiling     = 10.0
	hrefCeiling    = 15.0
	pathLenCeiling = 1000.0

	// Text complexity factors, additive, capped at 1.0 per element.
	textLongChars    = 50
	textManyTspans   = 3
	textLongFactor   = 0.3
	textTspanFactor  = 0.25
	textDxDyFactor   = 0.25
	textOnPathFactor = 0.2
)

// elementWeights ranks tags by conversion difficulty: curve-bearing, filter
// and text content far above simple shapes. Unknown tags fall back to
// defaultElementWeight.
var elementWeights = map[string]float64{
	"line": 0.2, "rect": 0.3, "circle": 0.3, "ellipse": 0.35,
	"polyline": 0.5, "polygon": 0.5,
	"g": 0.5, "defs": 0.5, "symbol": 0.6, "marker": 0.9, "use": 1.0,
	"image": 1.2, "text": 1.5, "tspan": 0.8, "path": 2.0, "textPath": 2.2,
	"linearGradient": 1.5, "radialGradient": 1.5, "stop": 0.2,
	"pattern": 1.8, "clipPath": 1.5, "mask": 1.8, "filter": 2.5,
	"switch": 1.5, "foreignObject": 2.5,
	"animate": 2.0, "animateTransform": 2.2, "animateMotion": 2.2, "set": 1.5,
}

var errNoScan = errors.New("analyze: no scan data")

// Scorer turns a Scan into a complexity score in [0,1]. Each sub-score is a
// separate computation returning (value, error); Score is the single seam
// where the default-on-error policy applies: a failed sub-score becomes 0.0
// (the multiplier becomes neutral 1.0), and only when every sub-computation
// fails does the scorer return the moderate default 0.5. Score never fails
// outward.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

func (s *Scorer) Score(scan *Scan) float64 {
	base, errBase := baseScore(scan)
	mult, errMult := featureMultiplier(scan)
	structural, errStructural := structuralScore(scan)
	content, errContent := contentScore(scan)

	if errBase != nil && errMult != nil && errStructural != nil && errContent != nil {
		return 0.5
	}
	if errBase != nil {
		base = 0
	}
	if errMult != nil {
		mult = 1
	}
	if errStructural != nil {
		structural = 0
	}
	if errContent != nil {
		content = 0
	}

	raw := base*mult + structural*structuralWeight + content*contentWeight
	return sigmoid(2 * (raw - 1))
}

func baseScore(scan *Scan) (float64, error) {
	if scan == nil || scan.Counts == nil {
		return 0, errNoScan
	}
	sum := 0.0
	for tag, count := range scan.Counts {
		if tag == "svg" {
			continue
		}
		w, ok := elementWeights[tag]
		if !ok {
			if isFilterPrimitive(tag) {
				w = filterPrimitiveWeight
			} else {
				w = defaultElementWeight
			}
		}
		sum += float64(count) * w
	}
	return math.Min(sum/saturationCount, maxBaseScore), nil
}

func featureMultiplier(scan *Scan) (float64, error) {
	if scan == nil {
		return 1, errNoScan
	}
	mult := 1.0
	f := scan.Flags
	if f.HasTransforms {
		mult *= 1.2
	}
	if f.HasGradients {
		mult *= 1.3
	}
	if f.HasClipping {
		mult *= 1.3
	}
	if f.HasPatterns {
		mult *= 1.4
	}
	if f.HasMasks {
		mult *= 1.4
	}
	if f.HasAnimations {
		mult *= 1.5
	}
	if f.HasFilters {
		mult *= 1.5
	}
	return math.Min(mult, maxFeatureMultiplier), nil
}

func structuralScore(scan *Scan) (float64, error) {
	if scan == nil {
		return 0, errNoScan
	}
	depth := math.Min(float64(scan.MaxDepth)/depthCeiling, 1)
	defs := (math.Min(float64(scan.DefsDescendants)/defsCeiling, 1) +
		math.Min(float64(scan.URLRefs)/urlRefCeiling, 1)) / 2
	refs := (math.Min(float64(scan.UseCount)/useCeiling, 1) +
		math.Min(float64(scan.HrefCount)/hrefCeiling, 1)) / 2
	return (depth + defs + refs) / 3, nil
}

func contentScore(scan *Scan) (float64, error) {
	if scan == nil {
		return 0, errNoScan
	}
	path, errPath := pathComplexity(scan.PathData)
	if errPath != nil {
		path = 0
	}
	text, errText := textComplexity(scan.Texts)
	if errText != nil {
		text = 0
	}
	precision, errPrecision := precisionComplexity(scan.PrecisionTotal, scan.PrecisionHigh)
	if errPrecision != nil {
		precision = 0
	}
	return (path + text + precision) / 3, nil
}

// pathComplexity averages per-path difficulty: curve share of the command
// stream weighted 0.7, data length weighted 0.3. Paths without parseable
// commands are skipped; if a document has paths and none parse, the
// sub-score is unavailable.
func pathComplexity(paths []string) (float64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	sum := 0.0
	valid := 0
	for _, d := range paths {
		commands, curves := countPathCommands(d)
		if commands == 0 {
			continue
		}
		curveRatio := float64(curves) / float64(commands)
		lengthFactor := math.Min(float64(len(d))/pathLenCeiling, 1)
		sum += 0.7*curveRatio + 0.3*lengthFactor
		valid++
	}
	if valid == 0 {
		return 0, errors.New("analyze: no parseable path data")
	}
	return clamp01(sum / float64(valid)), nil
}

func countPathCommands(d string) (commands, curves int) {
	for i := 0; i < len(d); i++ {
		switch d[i] {
		case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'Z', 'z':
			commands++
		case 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a':
			commands++
			curves++
		}
	}
	return commands, curves
}

func textComplexity(texts []TextStats) (float64, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, t := range texts {
		v := 0.0
		if t.Chars > textLongChars {
			v += textLongFactor
		}
		if t.Tspans > textManyTspans {
			v += textTspanFactor
		}
		if t.HasDxDy {
			v += textDxDyFactor
		}
		if t.OnPath {
			v += textOnPathFactor
		}
		sum += math.Min(v, 1)
	}
	return clamp01(sum / float64(len(texts))), nil
}

func precisionComplexity(total, high int) (float64, error) {
	if total < 0 || high < 0 || high > total {
		return 0, errors.New("analyze: inconsistent precision counts")
	}
	if total == 0 {
		return 0, nil
	}
	return float64(high) / float64(total), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
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
