package analyze

import (
	"sort"
	"strings"

	"github.com/local/svg2pptx/internal/svg"
)

// FeatureFlags is the fixed set of document features the scorer and the
// recommender reason about. Unknown feature names cannot exist: adding one
// means adding a field here and teaching the scan about it.
type FeatureFlags struct {
	HasTransforms bool `json:"has_transforms"`
	HasClipping   bool `json:"has_clipping"`
	HasPatterns   bool `json:"has_patterns"`
	HasAnimations bool `json:"has_animations"`
	HasFilters    bool `json:"has_filters"`
	HasGradients  bool `json:"has_gradients"`
	HasMasks      bool `json:"has_masks"`
}

// TextStats captures what the content scorer needs from one text element.
type TextStats struct {
	Chars   int
	Tspans  int
	HasDxDy bool
	OnPath  bool
}

// Scan is everything a single structural pass collects from a document.
// The scorer is pure arithmetic over one of these.
type Scan struct {
	Counts           map[string]int
	Flags            FeatureFlags
	ElementCount     int // elements excluding the root svg
	MaxDepth         int
	GroupDepth       int
	DefsDescendants  int
	URLRefs          int
	UseCount         int
	HrefCount        int
	PathData         []string
	Texts            []TextStats
	PrecisionTotal   int
	PrecisionHigh    int
	FilterPrimitives []string
}

// Attributes whose values carry coordinates, sampled for precision scoring.
var numericAttrs = map[string]struct{}{
	"d": {}, "points": {}, "x": {}, "y": {}, "cx": {}, "cy": {},
	"r": {}, "rx": {}, "ry": {}, "x1": {}, "y1": {}, "x2": {}, "y2": {},
	"width": {}, "height": {}, "dx": {}, "dy": {}, "offset": {},
	"stdDeviation": {}, "transform": {},
}

var animationTags = map[string]struct{}{
	"animate": {}, "animateTransform": {}, "animateMotion": {},
	"animateColor": {}, "set": {},
}

type scanFrame struct {
	id         svg.NodeID
	depth      int
	groupDepth int
	inDefs     bool
}

// ScanDocument walks the tree once with an explicit stack and collects
// counts, feature flags and the structural signals the scorer consumes.
// A nil document yields a nil scan.
func ScanDocument(doc *svg.Document) *Scan {
	if doc == nil || doc.Root() == svg.NoNode {
		return nil
	}
	s := &Scan{Counts: make(map[string]int)}
	primitives := make(map[string]struct{})

	stack := make([]scanFrame, 0, 64)
	stack = append(stack, scanFrame{id: doc.Root()})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := doc.Node(f.id)
		tag := n.Tag

		s.Counts[tag]++
		if f.depth > 0 {
			s.ElementCount++
		}
		if f.depth > s.MaxDepth {
			s.MaxDepth = f.depth
		}
		if f.inDefs && tag != "defs" {
			s.DefsDescendants++
		}

		groupDepth := f.groupDepth
		if tag == "g" {
			groupDepth++
			if groupDepth > s.GroupDepth {
				s.GroupDepth = groupDepth
			}
		}

		s.scanTag(doc, f.id, tag, primitives)
		s.scanAttrs(doc, f.id)

		inDefs := f.inDefs || tag == "defs"
		kids := doc.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, scanFrame{
				id:         kids[i],
				depth:      f.depth + 1,
				groupDepth: groupDepth,
				inDefs:     inDefs,
			})
		}
	}

	s.FilterPrimitives = make([]string, 0, len(primitives))
	for p := range primitives {
		s.FilterPrimitives = append(s.FilterPrimitives, p)
	}
	sort.Strings(s.FilterPrimitives)
	return s
}

func (s *Scan) scanTag(doc *svg.Document, id svg.NodeID, tag string, primitives map[string]struct{}) {
	switch {
	case tag == "clipPath":
		s.Flags.HasClipping = true
	case tag == "pattern":
		s.Flags.HasPatterns = true
	case tag == "mask":
		s.Flags.HasMasks = true
	case tag == "linearGradient" || tag == "radialGradient":
		s.Flags.HasGradients = true
		primitives[tag] = struct{}{}
	case tag == "filter":
		s.Flags.HasFilters = true
	case isFilterPrimitive(tag):
		s.Flags.HasFilters = true
		primitives[tag] = struct{}{}
	case tag == "use":
		s.UseCount++
	case tag == "path":
		d, _ := doc.Attr(id, "d")
		s.PathData = append(s.PathData, d)
	case tag == "text":
		s.Texts = append(s.Texts, textStats(doc, id))
	}
	if _, ok := animationTags[tag]; ok {
		s.Flags.HasAnimations = true
	}
}

func (s *Scan) scanAttrs(doc *svg.Document, id svg.NodeID) {
	for _, a := range doc.Node(id).Attrs {
		switch a.Name {
		case "transform", "gradientTransform", "patternTransform":
			s.Flags.HasTransforms = true
		case "clip-path":
			s.Flags.HasClipping = true
		case "mask":
			s.Flags.HasMasks = true
		case "filter":
			s.Flags.HasFilters = true
		case "href":
			s.HrefCount++
		}
		s.URLRefs += strings.Count(a.Value, "url(#")
		if _, ok := numericAttrs[a.Name]; ok {
			total, high := countNumericTokens(a.Value)
			s.PrecisionTotal += total
			s.PrecisionHigh += high
		}
	}
}

// textStats aggregates one text element's subtree.
func textStats(doc *svg.Document, id svg.NodeID) TextStats {
	var st TextStats
	doc.WalkFrom(id, func(n svg.NodeID, depth int) bool {
		node := doc.Node(n)
		st.Chars += len(node.Text)
		if node.Tag == "tspan" {
			st.Tspans++
		}
		if node.Tag == "textPath" {
			st.OnPath = true
		}
		if doc.HasAttr(n, "dx") || doc.HasAttr(n, "dy") {
			st.HasDxDy = true
		}
		return true
	})
	return st
}

func isFilterPrimitive(tag string) bool {
	return len(tag) > 2 && tag[0] == 'f' && tag[1] == 'e' && tag[2] >= 'A' && tag[2] <= 'Z'
}

// countNumericTokens scans a coordinate-bearing attribute value and reports
// how many numeric tokens it holds and how many of those carry more than
// three decimal digits. Exponents are treated as token breaks; this is a
// precision heuristic, not a number parser.
func countNumericTokens(v string) (total, high int) {
	i := 0
	for i < len(v) {
		c := v[i]
		if !isNumStart(c) {
			i++
			continue
		}
		j := i
		dot := -1
		digits := false
		for j < len(v) {
			d := v[j]
			switch {
			case d >= '0' && d <= '9':
				digits = true
			case d == '.' && dot < 0:
				dot = j
			case (d == '-' || d == '+') && j == i:
				// leading sign
			default:
				goto tokenEnd
			}
			j++
		}
	tokenEnd:
		if digits {
			total++
			if dot >= 0 && j-dot-1 > 3 {
				high++
			}
		}
		if j == i {
			j++
		}
		i = j
	}
	return total, high
}

func isNumStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}
