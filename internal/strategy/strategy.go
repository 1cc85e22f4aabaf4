// Package strategy holds the fixed set of conversion strategies and the
// rule-based recommender that ranks them for a document. Recommendation is
// a pure function over an analysis report; it never returns an empty list.
package strategy

// Strategy is a named conversion approach with fixed capability, quality
// and performance characteristics.
type Strategy int

const (
	NativeDrawingML Strategy = iota
	HybridApproach
	EmfHeavy
	PreprocessingFirst
	FallbackMode
)

var strategyNames = [...]string{
	"NativeDrawingML",
	"HybridApproach",
	"EmfHeavy",
	"PreprocessingFirst",
	"FallbackMode",
}

var strategyTags = [...]string{
	"native_drawingml",
	"hybrid",
	"emf_heavy",
	"preprocessing_first",
	"fallback",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "Unknown"
	}
	return strategyNames[s]
}

// Tag returns the snake_case wire/label form, shared with the analyzer's
// advisory tags and metric labels.
func (s Strategy) Tag() string {
	if s < 0 || int(s) >= len(strategyTags) {
		return "unknown"
	}
	return strategyTags[s]
}

// FromTag resolves a wire tag back to its strategy.
func FromTag(tag string) (Strategy, bool) {
	for i, t := range strategyTags {
		if t == tag {
			return Strategy(i), true
		}
	}
	return FallbackMode, false
}

// Capability is the static limit sheet for one strategy: the complexity it
// can absorb and the features it can express.
type Capability struct {
	MaxComplexity     float64
	MaxPathComplexity float64
	MaxTextComplexity float64
	MaxNestingDepth   int

	Transforms bool
	Clipping   bool
	Patterns   bool
	Animations bool
	Filters    bool
}

// defaultCapabilities is the production limit sheet. FallbackMode is
// effectively unbounded; it is the safety net, not a ranked candidate.
var defaultCapabilities = map[Strategy]Capability{
	NativeDrawingML: {
		MaxComplexity: 0.40, MaxPathComplexity: 0.50, MaxTextComplexity: 0.50,
		MaxNestingDepth: 5,
		Transforms:      true, Clipping: true,
	},
	HybridApproach: {
		MaxComplexity: 0.70, MaxPathComplexity: 0.80, MaxTextComplexity: 0.70,
		MaxNestingDepth: 8,
		Transforms:      true, Clipping: true, Patterns: true, Filters: true,
	},
	EmfHeavy: {
		MaxComplexity: 1.00, MaxPathComplexity: 1.00, MaxTextComplexity: 0.90,
		MaxNestingDepth: 15,
		Transforms:      true, Clipping: true, Patterns: true, Filters: true,
	},
	PreprocessingFirst: {
		MaxComplexity: 0.80, MaxPathComplexity: 0.90, MaxTextComplexity: 0.95,
		MaxNestingDepth: 12,
		Transforms:      true, Clipping: true, Patterns: true, Animations: true, Filters: true,
	},
	FallbackMode: {
		MaxComplexity: 1.00, MaxPathComplexity: 1.00, MaxTextComplexity: 1.00,
		MaxNestingDepth: 1000,
		Transforms:      true, Clipping: true, Patterns: true, Animations: true, Filters: true,
	},
}

// CapabilityOf returns the production capability sheet for a strategy.
func CapabilityOf(s Strategy) Capability {
	return defaultCapabilities[s]
}
