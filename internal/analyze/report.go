package analyze

// Advisory strategy tags, shared wire names with the strategy layer.
const (
	TagNative        = "native_drawingml"
	TagHybrid        = "hybrid"
	TagEmf           = "emf_heavy"
	TagPreprocessing = "preprocessing_first"
	TagFallback      = "fallback"
)

// Report is the immutable outcome of analyzing one document or page. Every
// ratio field is clamped to [0,1] before the report leaves this package;
// consumers do not re-validate.
type Report struct {
	ComplexityScore float64 `json:"complexity_score"`

	ElementCount  int `json:"element_count"`
	PathCount     int `json:"path_count"`
	TextCount     int `json:"text_count"`
	GroupCount    int `json:"group_count"`
	ImageCount    int `json:"image_count"`
	FilterCount   int `json:"filter_count"`
	GradientCount int `json:"gradient_count"`

	Features FeatureFlags `json:"features"`

	TextComplexity    float64 `json:"text_complexity"`
	PathComplexity    float64 `json:"path_complexity"`
	GroupNestingDepth int     `json:"group_nesting_depth"`

	EstimatedTimeMS float64 `json:"estimated_conversion_time_ms"`

	// Advisory ordering; the recommender makes the binding decision.
	RecommendedStrategies []string `json:"recommended_strategies"`

	FilterPrimitives []string `json:"filter_primitives,omitempty"`
	IRAdjusted       bool     `json:"ir_adjusted,omitempty"`
}

// defaultReport is the safe analysis outcome when parsing or scanning
// fails: moderate complexity, nothing counted, nothing flagged.
func defaultReport() *Report {
	r := &Report{ComplexityScore: 0.5}
	r.EstimatedTimeMS = estimateTimeMS(0, r.ComplexityScore)
	r.RecommendedStrategies = advisoryStrategies(r)
	return r
}

func estimateTimeMS(elements int, score float64) float64 {
	return 5 + 0.8*float64(elements) + 400*score
}

func advisoryStrategies(r *Report) []string {
	var tags []string
	switch {
	case r.ComplexityScore < 0.3:
		tags = []string{TagNative, TagHybrid}
	case r.ComplexityScore < 0.6:
		tags = []string{TagHybrid, TagPreprocessing}
	case r.ComplexityScore < 0.8:
		tags = []string{TagPreprocessing, TagEmf}
	default:
		tags = []string{TagEmf, TagFallback}
	}
	if r.Features.HasAnimations && !containsTag(tags, TagPreprocessing) {
		tags = append(tags, TagPreprocessing)
	}
	if r.Features.HasFilters && !containsTag(tags, TagEmf) {
		tags = append(tags, TagEmf)
	}
	return tags
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
