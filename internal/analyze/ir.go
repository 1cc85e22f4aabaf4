package analyze

import (
	"errors"
	"math"

	"github.com/local/svg2pptx/internal/svg"
)

// IR is a small strategy-agnostic model of drawable content: paths with
// their command mix, text frames, group depths and image count. It exists
// so the optional second scoring pass can reason about content shape
// without re-walking raw XML.
type IR struct {
	Paths  []IRPath
	Texts  []IRText
	Groups []IRGroup
	Images int
}

type IRPath struct {
	Segments int
	Curves   int
}

type IRText struct {
	Runs int
}

type IRGroup struct {
	Depth int
}

const (
	irMaxFactor      = 2.0
	irCurveWeight    = 0.5
	irImageWeight    = 0.25
	irDeepWeight     = 0.25
	irDeepGroupDepth = 3
)

// BuildIR lowers a parsed document into the IR. It fails on missing input;
// callers leave the base score untouched in that case.
func BuildIR(doc *svg.Document) (*IR, error) {
	if doc == nil || doc.Root() == svg.NoNode {
		return nil, errors.New("analyze: no document for IR")
	}
	ir := &IR{}
	doc.Walk(func(id svg.NodeID, depth int) bool {
		n := doc.Node(id)
		switch n.Tag {
		case "path":
			d, _ := doc.Attr(id, "d")
			segments, curves := countPathCommands(d)
			ir.Paths = append(ir.Paths, IRPath{Segments: segments, Curves: curves})
		case "text":
			runs := 1 + len(doc.Children(id))
			ir.Texts = append(ir.Texts, IRText{Runs: runs})
		case "g":
			ir.Groups = append(ir.Groups, IRGroup{Depth: depth})
		case "image":
			ir.Images++
		}
		return true
	})
	if len(ir.Paths)+len(ir.Texts)+len(ir.Groups)+ir.Images == 0 {
		return nil, errors.New("analyze: document has no drawable content for IR")
	}
	return ir, nil
}

// AdjustFactor derives the second-pass multiplier in [1, 2] from the IR's
// content mix: curve-dominated paths, image density and deep grouping all
// push it up.
func (ir *IR) AdjustFactor() float64 {
	elements := len(ir.Paths) + len(ir.Texts) + len(ir.Groups) + ir.Images
	if elements == 0 {
		return 1
	}

	curveShare := 0.0
	segments, curves := 0, 0
	for _, p := range ir.Paths {
		segments += p.Segments
		curves += p.Curves
	}
	if segments > 0 {
		curveShare = float64(curves) / float64(segments)
	}

	imageShare := float64(ir.Images) / float64(elements)

	deepShare := 0.0
	if len(ir.Groups) > 0 {
		deep := 0
		for _, g := range ir.Groups {
			if g.Depth > irDeepGroupDepth {
				deep++
			}
		}
		deepShare = float64(deep) / float64(len(ir.Groups))
	}

	factor := 1 + irCurveWeight*curveShare + irImageWeight*imageShare + irDeepWeight*deepShare
	return math.Min(factor, irMaxFactor)
}

// AdjustScore applies the factor to a base score, clamped back to [0,1].
func (ir *IR) AdjustScore(score float64) float64 {
	return clamp01(score * ir.AdjustFactor())
}
