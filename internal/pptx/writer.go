package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
)

// Media is one binary payload referenced from a slide (an embedded EMF
// blob, a raster fallback image).
type Media struct {
	// Name is the file name under ppt/media/, unique within the package.
	Name        string
	ContentType string
	Data        []byte
}

// Slide is one page's contribution to the package. Body is DrawingML
// injected verbatim into the slide's shape tree; an empty body produces a
// blank slide. Placement positions the page content on the canvas.
type Slide struct {
	Number    int
	Title     string
	Body      []byte
	Media     []Media
	Placement Placement
}

// WriteResult is the assembled package.
type WriteResult struct {
	Bytes            []byte
	Size             int
	CompressionRatio float64
	Debug            *WriteDebug
}

// WriteDebug is populated only when Write is asked for debug data.
type WriteDebug struct {
	ZipMS     float64      `json:"zip_ms"`
	Structure ZipStructure `json:"zip_structure"`
}

// ZipStructure summarizes what went into the container.
type ZipStructure struct {
	Slides       int `json:"slides"`
	Parts        int `json:"parts"`
	MediaObjects int `json:"media_objects"`
}

// WriteError reports a failed package assembly.
type WriteError struct {
	Part string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("pptx: write %s: %v", e.Part, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Options configures the writer. Zero values mean the default 16:9 canvas.
type Options struct {
	SlideWidthEMU  int64
	SlideHeightEMU int64
}

// Writer assembles complete .pptx containers. Safe for concurrent use.
type Writer struct {
	slideW int64
	slideH int64
}

func NewWriter(opts Options) *Writer {
	w := &Writer{slideW: opts.SlideWidthEMU, slideH: opts.SlideHeightEMU}
	if w.slideW <= 0 {
		w.slideW = DefaultSlideWidthEMU
	}
	if w.slideH <= 0 {
		w.slideH = DefaultSlideHeightEMU
	}
	return w
}

// Fixed docProps timestamp so identical input yields identical bytes.
const packageCreated = "2024-01-01T00:00:00Z"

// Write assembles the container with slides strictly in input order. Zero
// media entries is fine. Rejects an empty slide list.
func (w *Writer) Write(ctx context.Context, slides []Slide, debug bool) (*WriteResult, error) {
	if len(slides) == 0 {
		return nil, &WriteError{Part: "package", Err: fmt.Errorf("no slides to write")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &WriteError{Part: "package", Err: err}
	}

	start := time.Now()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := 0
	rawSize := 0
	add := func(name string, data []byte) error {
		// Zeroed timestamps keep the archive byte-stable across runs.
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		})
		if err != nil {
			return &WriteError{Part: name, Err: err}
		}
		if _, err := fw.Write(data); err != nil {
			return &WriteError{Part: name, Err: err}
		}
		parts++
		rawSize += len(data)
		return nil
	}

	mediaCount := 0
	writeParts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", contentTypes(slides)},
		{"_rels/.rels", []byte(rootRels)},
		{"docProps/core.xml", []byte(coreProps)},
		{"docProps/app.xml", appProps(slides)},
		{"ppt/presentation.xml", presentationXML(slides, w.slideW, w.slideH)},
		{"ppt/_rels/presentation.xml.rels", presentationRels(slides)},
		{"ppt/slideMasters/slideMaster1.xml", []byte(slideMaster)},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", []byte(slideMasterRels)},
		{"ppt/slideLayouts/slideLayout1.xml", []byte(slideLayout)},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", []byte(slideLayoutRels)},
		{"ppt/theme/theme1.xml", []byte(themeXML)},
	}
	for _, p := range writeParts {
		if err := add(p.name, p.data); err != nil {
			return nil, err.(*WriteError)
		}
	}

	for i, s := range slides {
		n := i + 1
		if err := add(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(s)); err != nil {
			return nil, err.(*WriteError)
		}
		if err := add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRels(s)); err != nil {
			return nil, err.(*WriteError)
		}
		for _, m := range s.Media {
			if err := add("ppt/media/"+m.Name, m.Data); err != nil {
				return nil, err.(*WriteError)
			}
			mediaCount++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &WriteError{Part: "package", Err: err}
	}

	res := &WriteResult{
		Bytes: buf.Bytes(),
		Size:  buf.Len(),
	}
	if rawSize > 0 {
		res.CompressionRatio = float64(res.Size) / float64(rawSize)
	}
	if debug {
		res.Debug = &WriteDebug{
			ZipMS: float64(time.Since(start).Microseconds()) / 1000,
			Structure: ZipStructure{
				Slides:       len(slides),
				Parts:        parts,
				MediaObjects: mediaCount,
			},
		}
	}
	return res, nil
}

func contentTypes(slides []Slide) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="emf" ContentType="image/x-emf"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := range slides {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return []byte(b.String())
}

func appProps(slides []Slide) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
	b.WriteString(`<Application>svg2pptx</Application>`)
	fmt.Fprintf(&b, `<Slides>%d</Slides>`, len(slides))
	fmt.Fprintf(&b, `<TitlesOfParts><vt:vector size="%d" baseType="lpstr">`, len(slides))
	for _, s := range slides {
		fmt.Fprintf(&b, `<vt:lpstr>%s</vt:lpstr>`, escapeXML(s.Title))
	}
	b.WriteString(`</vt:vector></TitlesOfParts>`)
	b.WriteString(`</Properties>`)
	return []byte(b.String())
}

func presentationXML(slides []Slide, slideW, slideH int64) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := range slides {
		// Slide IDs start at 256 per the OOXML convention.
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, 2+i)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/>`, slideW, slideH)
	fmt.Fprintf(&b, `<p:notesSz cx="%d" cy="%d"/>`, slideH, slideW)
	b.WriteString(`</p:presentation>`)
	return []byte(b.String())
}

func presentationRels(slides []Slide) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := range slides {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, 2+i, i+1)
	}
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`, 2+len(slides))
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

// slideXML builds one slide part: an optional title placeholder followed by
// the renderer's body, verbatim, inside the shape tree.
func slideXML(s Slide) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:cSld><p:spTree>`)
	b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	b.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)
	if s.Title != "" {
		b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/>`)
		b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:t>`)
		b.WriteString(escapeXML(s.Title))
		b.WriteString(`</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	b.Write(s.Body)
	b.WriteString(`</p:spTree></p:cSld>`)
	b.WriteString(`<p:clrMapOvr><a:overrideClrMapping bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/></p:clrMapOvr>`)
	b.WriteString(`</p:sld>`)
	return []byte(b.String())
}

func slideRels(s Slide) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`)
	for i, m := range s.Media {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/%s"/>`, 2+i, m.Name)
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
	).Replace(s)
}
