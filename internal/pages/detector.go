// Package pages splits input documents into ordered page sources. A single
// document is scanned for page boundaries (markers, then grouped content,
// then a size split); a batch of documents becomes one page each. Detection
// always copies content: sources never alias the input they came from.
package pages

import (
	"fmt"
	"strings"

	"github.com/local/svg2pptx/internal/svg"
)

// Source is one page's standalone content, owned independently of whatever
// document it was cut from.
type Source struct {
	Content    []byte            `json:"-"`
	Title      string            `json:"title,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	PageNumber int               `json:"page_number"`
}

// Detection strategy names recorded in Source.Metadata["detection"].
const (
	DetectionMarkers = "markers"
	DetectionGroups  = "groups"
	DetectionSize    = "size"
	DetectionSingle  = "single"
	DetectionBatch   = "batch"
)

// Options tunes the heuristics. Zero values fall back to the defaults.
type Options struct {
	// MinGroupChildren is the smallest child count a top-level group needs
	// to count as a page in the grouped-content heuristic.
	MinGroupChildren int
	// MaxPages caps how many pages the grouped-content heuristic emits.
	MaxPages int
	// SizeThreshold is the serialized byte size above which the size-based
	// split activates.
	SizeThreshold int
}

const (
	defaultMinGroupChildren = 3
	defaultMaxPages         = 10
	defaultSizeThreshold    = 10000

	sizeSplitMin = 2
	sizeSplitMax = 5
)

func (o Options) withDefaults() Options {
	if o.MinGroupChildren <= 0 {
		o.MinGroupChildren = defaultMinGroupChildren
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	if o.SizeThreshold <= 0 {
		o.SizeThreshold = defaultSizeThreshold
	}
	return o
}

// markerPatterns are matched case-sensitively as substrings of id/class.
var markerPatterns = []string{"page", "slide"}

// Detector finds page boundaries. Stateless; safe for concurrent use.
type Detector struct {
	opts Options
}

func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts.withDefaults()}
}

// DetectPages splits one document into ordered pages. Exactly one strategy
// wins, tried in fixed priority: explicit markers, grouped content, size
// split, single page. The result is never empty for non-empty input; a
// malformed document degrades to a single untitled page carrying the raw
// bytes.
func (d *Detector) DetectPages(data []byte) []Source {
	doc, err := svg.Parse(data)
	if err != nil {
		return []Source{singlePage(data)}
	}

	if srcs := d.detectMarkers(doc); len(srcs) > 0 {
		return number(srcs)
	}
	if srcs := d.detectGroups(doc); len(srcs) > 0 {
		return number(srcs)
	}
	if srcs := d.detectSizeSplit(doc, len(data)); len(srcs) > 0 {
		return number(srcs)
	}
	return []Source{singlePage(data)}
}

func singlePage(data []byte) Source {
	content := make([]byte, len(data))
	copy(content, data)
	return Source{
		Content:    content,
		Metadata:   map[string]string{"detection": DetectionSingle},
		PageNumber: 1,
	}
}

func number(srcs []Source) []Source {
	for i := range srcs {
		srcs[i].PageNumber = i + 1
	}
	return srcs
}

// detectMarkers collects elements whose id or class names a page or slide.
// Nested markers are skipped: once an element matches, its subtree belongs
// to that page.
func (d *Detector) detectMarkers(doc *svg.Document) []Source {
	var markers []svg.NodeID
	root := doc.Root()
	doc.Walk(func(id svg.NodeID, depth int) bool {
		if id == root {
			return true
		}
		if isMarker(doc, id) {
			markers = append(markers, id)
			return false
		}
		return true
	})
	if len(markers) == 0 {
		return nil
	}

	rootAttrs := svg.RootAttrs(doc)
	srcs := make([]Source, 0, len(markers))
	for _, m := range markers {
		srcs = append(srcs, Source{
			Content:  svg.SubtreeDocument(doc, []svg.NodeID{m}, rootAttrs),
			Title:    markerTitle(doc, m),
			Metadata: map[string]string{"detection": DetectionMarkers},
		})
	}
	return srcs
}

func isMarker(doc *svg.Document, id svg.NodeID) bool {
	for _, attr := range []string{"id", "class"} {
		v, ok := doc.Attr(id, attr)
		if !ok {
			continue
		}
		for _, p := range markerPatterns {
			if strings.Contains(v, p) {
				return true
			}
		}
	}
	return false
}

// markerTitle resolves a page title: explicit title attributes first, then
// the marker's own id/class, then a child <title> or <desc>.
func markerTitle(doc *svg.Document, id svg.NodeID) string {
	for _, attr := range []string{"title", "data-title", "aria-label", "id", "class"} {
		if v, ok := doc.Attr(id, attr); ok && v != "" {
			return v
		}
	}
	for _, c := range doc.Children(id) {
		n := doc.Node(c)
		if (n.Tag == "title" || n.Tag == "desc") && n.Text != "" {
			return n.Text
		}
	}
	return ""
}

// detectGroups treats substantial top-level groups as pages: direct <g>
// children of the root with enough element children each.
func (d *Detector) detectGroups(doc *svg.Document) []Source {
	root := doc.Root()
	var groups []svg.NodeID
	for _, c := range doc.Children(root) {
		if doc.Node(c).Tag != "g" {
			continue
		}
		if len(doc.Children(c)) >= d.opts.MinGroupChildren {
			groups = append(groups, c)
		}
		if len(groups) == d.opts.MaxPages {
			break
		}
	}
	if len(groups) == 0 {
		return nil
	}

	rootAttrs := svg.RootAttrs(doc)
	srcs := make([]Source, 0, len(groups))
	for i, g := range groups {
		title := markerTitle(doc, g)
		if title == "" {
			title = fmt.Sprintf("Page %d", i+1)
		}
		srcs = append(srcs, Source{
			Content:  svg.SubtreeDocument(doc, []svg.NodeID{g}, rootAttrs),
			Title:    title,
			Metadata: map[string]string{"detection": DetectionGroups},
		})
	}
	return srcs
}

// detectSizeSplit slices a large flat document into roughly equal
// partitions of the root's direct children.
func (d *Detector) detectSizeSplit(doc *svg.Document, size int) []Source {
	if size <= d.opts.SizeThreshold {
		return nil
	}
	kids := doc.Children(doc.Root())
	if len(kids) < sizeSplitMin {
		return nil
	}

	parts := size / d.opts.SizeThreshold
	if parts < sizeSplitMin {
		parts = sizeSplitMin
	}
	if parts > sizeSplitMax {
		parts = sizeSplitMax
	}
	if parts > len(kids) {
		parts = len(kids)
	}

	rootAttrs := svg.RootAttrs(doc)
	per := (len(kids) + parts - 1) / parts
	srcs := make([]Source, 0, parts)
	for i := 0; i < len(kids); i += per {
		end := i + per
		if end > len(kids) {
			end = len(kids)
		}
		srcs = append(srcs, Source{
			Content:  svg.SubtreeDocument(doc, kids[i:end], rootAttrs),
			Title:    fmt.Sprintf("Auto Page %d", len(srcs)+1),
			Metadata: map[string]string{"detection": DetectionSize},
		})
	}
	return srcs
}
