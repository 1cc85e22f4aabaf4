package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/pptx"
	"github.com/local/svg2pptx/internal/strategy"
	"github.com/local/svg2pptx/internal/svg"
)

// Tags that never render as slide content.
var nonDrawableTags = map[string]struct{}{
	"svg": {}, "defs": {}, "title": {}, "desc": {}, "metadata": {},
	"symbol": {}, "style": {}, "script": {},
	"linearGradient": {}, "radialGradient": {}, "stop": {},
	"clipPath": {}, "mask": {}, "pattern": {}, "marker": {}, "filter": {},
}

// Tags the native DrawingML path can express directly.
var nativeTags = map[string]struct{}{
	"rect": {}, "circle": {}, "ellipse": {}, "line": {}, "g": {},
	"polyline": {}, "polygon": {}, "text": {}, "tspan": {},
}

// Builtin is the reference renderer: it parses the page, routes each
// drawable element to the native or EMF path per the strategy's
// capabilities, and emits DrawingML for the basic geometry it can express
// itself. Deterministic: the same page and strategy always produce the
// same output bytes.
type Builtin struct{}

func NewBuiltin() *Builtin { return &Builtin{} }

func (b *Builtin) Name() string { return "builtin" }

func (b *Builtin) Render(ctx context.Context, src pages.Source, strat strategy.Strategy) (*PageResult, error) {
	start := time.Now()
	doc, err := svg.Parse(src.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	parseMS := msSince(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limits := strategy.CapabilityOf(strat)
	res := &PageResult{
		PageNumber: src.PageNumber,
		Title:      src.Title,
		Strategy:   strat,
	}
	if w, h, ok := svg.Viewport(doc); ok {
		res.ViewportW, res.ViewportH = w, h
	}

	mapStart := time.Now()
	var body strings.Builder
	shapeID := 10 // ids 1..9 are reserved for the slide scaffold
	doc.Walk(func(id svg.NodeID, depth int) bool {
		n := doc.Node(id)
		if _, skip := nonDrawableTags[n.Tag]; skip {
			return n.Tag == "svg" // descend only through the root
		}
		res.ElementsProcessed++

		if b.routeNative(doc, id, n.Tag, limits) {
			res.NativeElements++
			if xml := nativeShape(doc, id, n.Tag, shapeID); xml != "" {
				body.WriteString(xml)
				shapeID++
			}
		} else {
			res.EmfElements++
		}
		return true
	})
	mapMS := msSince(mapStart)

	if res.ElementsProcessed == 0 {
		return nil, fmt.Errorf("%w: page has no drawable content", ErrMalformedPage)
	}
	if strat == strategy.NativeDrawingML && res.EmfElements > res.NativeElements {
		// Mostly-EMF content means the native strategy is the wrong tool.
		return nil, fmt.Errorf("%w: %d of %d elements need EMF",
			ErrUnsupportedContent, res.EmfElements, res.ElementsProcessed)
	}

	res.Output = []byte(body.String())
	nativeShare := float64(res.NativeElements) / float64(res.ElementsProcessed)
	res.EstimatedQuality = clamp01(0.6 + 0.4*nativeShare)
	res.EstimatedPerformance = clamp01(1 - float64(res.ElementsProcessed)/500)
	res.Debug = map[string]float64{
		"parse_ms": parseMS,
		"map_ms":   mapMS,
	}
	return res, nil
}

// routeNative decides whether one element goes down the native DrawingML
// path or is delegated to EMF embedding.
func (b *Builtin) routeNative(doc *svg.Document, id svg.NodeID, tag string, limits strategy.Capability) bool {
	if _, ok := nativeTags[tag]; !ok {
		return false
	}
	if !limits.Transforms && doc.HasAttr(id, "transform") {
		return false
	}
	if !limits.Clipping && doc.HasAttr(id, "clip-path") {
		return false
	}
	if !limits.Filters && doc.HasAttr(id, "filter") {
		return false
	}
	return true
}

// nativeShape emits DrawingML for the geometry the builtin renderer can
// express directly. Anything else contributes to the counts only.
func nativeShape(doc *svg.Document, id svg.NodeID, tag string, shapeID int) string {
	attrEMU := func(name string) int64 {
		v, _ := doc.Attr(id, name)
		emu, _ := pptx.ParseLength(v)
		return emu
	}
	switch tag {
	case "rect":
		return shapeXML(shapeID, "rect",
			attrEMU("x"), attrEMU("y"), attrEMU("width"), attrEMU("height"),
			fillColor(doc, id))
	case "circle":
		r := attrEMU("r")
		return shapeXML(shapeID, "ellipse",
			attrEMU("cx")-r, attrEMU("cy")-r, 2*r, 2*r, fillColor(doc, id))
	case "ellipse":
		rx, ry := attrEMU("rx"), attrEMU("ry")
		return shapeXML(shapeID, "ellipse",
			attrEMU("cx")-rx, attrEMU("cy")-ry, 2*rx, 2*ry, fillColor(doc, id))
	case "line":
		x1, y1 := attrEMU("x1"), attrEMU("y1")
		x2, y2 := attrEMU("x2"), attrEMU("y2")
		return shapeXML(shapeID, "line", min64(x1, x2), min64(y1, y2),
			abs64(x2-x1), abs64(y2-y1), fillColor(doc, id))
	}
	return ""
}

func shapeXML(id int, preset string, x, y, w, h int64, fill string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="shape%d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, id)
	b.WriteString(`<p:spPr><a:xfrm>`)
	fmt.Fprintf(&b, `<a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/>`, x, y, w, h)
	b.WriteString(`</a:xfrm>`)
	fmt.Fprintf(&b, `<a:prstGeom prst="%s"><a:avLst/></a:prstGeom>`, preset)
	fmt.Fprintf(&b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, fill)
	b.WriteString(`</p:spPr></p:sp>`)
	return b.String()
}

// fillColor resolves a fill to a hex sRGB value, defaulting to black the
// way SVG does. Non-hex paint (named colors, url references) degrades to
// the default.
func fillColor(doc *svg.Document, id svg.NodeID) string {
	v, ok := doc.Attr(id, "fill")
	if !ok || v == "" || v == "none" {
		return "000000"
	}
	if strings.HasPrefix(v, "#") {
		hex := strings.ToUpper(v[1:])
		if len(hex) == 3 {
			var b strings.Builder
			for _, c := range hex {
				b.WriteRune(c)
				b.WriteRune(c)
			}
			hex = b.String()
		}
		if len(hex) == 6 && isHex(hex) {
			return hex
		}
	}
	return "000000"
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if _, err := strconv.ParseUint(s[i:i+1], 16, 8); err != nil {
			return false
		}
	}
	return true
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
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
