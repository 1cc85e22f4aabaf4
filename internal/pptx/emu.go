// Package pptx assembles the OOXML presentation container and owns the
// unit conversion into English Metric Units. Everything here is
// deterministic: the same slides always produce the same bytes.
package pptx

import (
	"strconv"
	"strings"
)

// English Metric Units per physical unit. OOXML coordinates are fixed
// point; 96 dpi maps one CSS pixel to 9525 EMU.
const (
	EMUPerInch  = 914400
	EMUPerPoint = 12700
	EMUPerPixel = 9525
)

// Default slide canvas: 16:9, 13.333 x 7.5 inches.
const (
	DefaultSlideWidthEMU  = 12192000
	DefaultSlideHeightEMU = 6858000
)

func FromPixels(px float64) int64 { return int64(px*EMUPerPixel + 0.5) }
func FromPoints(pt float64) int64 { return int64(pt*EMUPerPoint + 0.5) }
func FromInches(in float64) int64 { return int64(in*EMUPerInch + 0.5) }

// emuUnits maps SVG/CSS length units to EMU per unit.
var emuUnits = map[string]float64{
	"px": EMUPerPixel,
	"pt": EMUPerPoint,
	"pc": 12 * EMUPerPoint,
	"in": EMUPerInch,
	"mm": EMUPerInch / 25.4,
	"cm": EMUPerInch / 2.54,
}

// ParseLength converts a unit-suffixed length ("210mm", "14pt", "640") to
// EMU. Bare numbers are pixels. Percentages and garbage report ok=false.
func ParseLength(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	factor := float64(EMUPerPixel)
	for unit, f := range emuUnits {
		if strings.HasSuffix(s, unit) {
			factor = f
			s = strings.TrimSuffix(s, unit)
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return int64(v*factor + 0.5), true
}

// Placement is a slide-space rectangle in EMU.
type Placement struct {
	X, Y, W, H int64
}

// FitSlide maps a viewport (CSS pixels) onto the slide canvas preserving
// aspect ratio, centered. A degenerate viewport fills the whole canvas.
func FitSlide(viewportW, viewportH float64, slideW, slideH int64) Placement {
	if viewportW <= 0 || viewportH <= 0 || slideW <= 0 || slideH <= 0 {
		return Placement{W: slideW, H: slideH}
	}
	scaleW := float64(slideW) / viewportW
	scaleH := float64(slideH) / viewportH
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	w := int64(viewportW*scale + 0.5)
	h := int64(viewportH*scale + 0.5)
	return Placement{
		X: (slideW - w) / 2,
		Y: (slideH - h) / 2,
		W: w,
		H: h,
	}
}
