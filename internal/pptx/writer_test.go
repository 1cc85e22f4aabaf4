package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func twoSlides() []Slide {
	return []Slide{
		{
			Number:    1,
			Title:     "Revenue & Growth",
			Body:      []byte(`<p:sp><p:nvSpPr><p:cNvPr id="10" name="shape10"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp>`),
			Placement: Placement{W: DefaultSlideWidthEMU, H: DefaultSlideHeightEMU},
		},
		{
			Number: 2,
			Title:  "Details",
			Media: []Media{
				{Name: "image1.emf", ContentType: "image/x-emf", Data: []byte{0x01, 0x02, 0x03}},
			},
		},
	}
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("package is not a zip: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out
}

func TestWriteDeterministic(t *testing.T) {
	w := NewWriter(Options{})
	first, err := w.Write(context.Background(), twoSlides(), false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	second, err := w.Write(context.Background(), twoSlides(), false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.Equal(first.Bytes, second.Bytes) {
		t.Error("identical input produced different package bytes")
	}
	if first.Size != len(first.Bytes) {
		t.Errorf("Size %d disagrees with byte length %d", first.Size, len(first.Bytes))
	}
	if first.CompressionRatio <= 0 {
		t.Errorf("expected positive compression ratio, got %v", first.CompressionRatio)
	}
}

func TestWriteStructure(t *testing.T) {
	res, err := NewWriter(Options{}).Write(context.Background(), twoSlides(), true)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	parts := readArchive(t, res.Bytes)

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/media/image1.emf",
	} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing part %s", name)
		}
	}

	slide1 := string(parts["ppt/slides/slide1.xml"])
	if !strings.Contains(slide1, "Revenue &amp; Growth") {
		t.Error("expected escaped title in slide 1")
	}
	if !strings.Contains(slide1, `name="shape10"`) {
		t.Error("expected renderer body injected verbatim")
	}

	pres := string(parts["ppt/presentation.xml"])
	if !strings.Contains(pres, `<p:sldId id="256" r:id="rId2"/>`) ||
		!strings.Contains(pres, `<p:sldId id="257" r:id="rId3"/>`) {
		t.Errorf("unexpected slide id list in %s", pres)
	}
	if !strings.Contains(pres, `cx="12192000" cy="6858000"`) {
		t.Error("expected default canvas size in presentation.xml")
	}

	rels2 := string(parts["ppt/slides/_rels/slide2.xml.rels"])
	if !strings.Contains(rels2, "../media/image1.emf") {
		t.Error("expected media relationship on slide 2")
	}

	if res.Debug == nil {
		t.Fatal("expected debug data when requested")
	}
	if res.Debug.Structure.Slides != 2 || res.Debug.Structure.MediaObjects != 1 {
		t.Errorf("unexpected structure %+v", res.Debug.Structure)
	}
	if res.Debug.Structure.Parts != len(parts) {
		t.Errorf("debug reports %d parts, archive has %d",
			res.Debug.Structure.Parts, len(parts))
	}
}

func TestWriteRejectsEmpty(t *testing.T) {
	_, err := NewWriter(Options{}).Write(context.Background(), nil, false)
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if werr.Part != "package" {
		t.Errorf("unexpected failing part %q", werr.Part)
	}
}

func TestWriteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewWriter(Options{}).Write(ctx, twoSlides(), false); err == nil {
		t.Error("expected error on cancelled context")
	}
}

func TestWriteCustomCanvas(t *testing.T) {
	res, err := NewWriter(Options{SlideWidthEMU: 9144000, SlideHeightEMU: 6858000}).
		Write(context.Background(), twoSlides()[:1], false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	parts := readArchive(t, res.Bytes)
	if !strings.Contains(string(parts["ppt/presentation.xml"]), `cx="9144000" cy="6858000"`) {
		t.Error("expected 4:3 canvas size in presentation.xml")
	}
}

func TestUntitledSlideHasNoTitleShape(t *testing.T) {
	slides := []Slide{{Number: 1}}
	res, err := NewWriter(Options{}).Write(context.Background(), slides, false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	parts := readArchive(t, res.Bytes)
	if strings.Contains(string(parts["ppt/slides/slide1.xml"]), `type="title"`) {
		t.Error("untitled slide should not carry a title placeholder")
	}
}
