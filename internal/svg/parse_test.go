package svg

import (
	"strings"
	"testing"
)

const sample = `<?xml version="1.0"?>
<!-- header comment -->
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 100 50">
  <title>Sample &amp; Co</title>
  <!-- ignored -->
  <g id="layer1">
    <rect x="1" y="2" width="10" height="5"/>
    <use xlink:href="#sym"/>
  </g>
  <?pi ignored?>
</svg>`

func TestParseBuildsTree(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	root := doc.Root()
	if got := doc.Node(root).Tag; got != "svg" {
		t.Fatalf("expected svg root, got %q", got)
	}
	kids := doc.Children(root)
	if len(kids) != 2 {
		t.Fatalf("expected 2 root children (title, g), got %d", len(kids))
	}
	if got := doc.Node(kids[0]).Tag; got != "title" {
		t.Errorf("expected first child title, got %q", got)
	}
	if got := doc.Node(kids[0]).Text; got != "Sample & Co" {
		t.Errorf("expected unescaped title text, got %q", got)
	}
	g := kids[1]
	if v, ok := doc.Attr(g, "id"); !ok || v != "layer1" {
		t.Errorf("expected id=layer1 on group, got %q ok=%v", v, ok)
	}
	gKids := doc.Children(g)
	if len(gKids) != 2 {
		t.Fatalf("expected 2 group children, got %d", len(gKids))
	}
	if doc.Node(gKids[0]).Parent != g {
		t.Error("expected rect parent to be the group")
	}
}

func TestParseNormalizesNamespacedAttrs(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	var use NodeID = NoNode
	doc.Walk(func(id NodeID, depth int) bool {
		if doc.Node(id).Tag == "use" {
			use = id
		}
		return true
	})
	if use == NoNode {
		t.Fatal("use element not found")
	}
	if v, ok := doc.Attr(use, "href"); !ok || v != "#sym" {
		t.Errorf("expected xlink:href exposed as href=#sym, got %q ok=%v", v, ok)
	}
}

func TestParseFiltersNonElements(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	// svg, title, g, rect, use
	if doc.Len() != 5 {
		t.Errorf("expected 5 elements after filtering comments/PIs, got %d", doc.Len())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"unclosed", "<svg><g></svg>"},
		{"not xml", "definitely not markup <"},
		{"two roots", "<svg/><svg/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Errorf("expected error for %q, got nil", tt.input)
			}
		})
	}
}

func TestWalkDepthAndPrune(t *testing.T) {
	doc, err := Parse([]byte(`<svg><g><g><rect/></g></g><circle/></svg>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	depths := map[string]int{}
	doc.Walk(func(id NodeID, depth int) bool {
		depths[doc.Node(id).Tag] = depth
		return true
	})
	if depths["rect"] != 3 {
		t.Errorf("expected rect at depth 3, got %d", depths["rect"])
	}
	if depths["circle"] != 1 {
		t.Errorf("expected circle at depth 1, got %d", depths["circle"])
	}

	var seen []string
	doc.Walk(func(id NodeID, depth int) bool {
		tag := doc.Node(id).Tag
		seen = append(seen, tag)
		return tag != "g" // prune below the first group
	})
	for _, tag := range seen {
		if tag == "rect" {
			t.Error("expected pruned walk to skip rect")
		}
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"640", 640, true},
		{"640px", 640, true},
		{"72pt", 96, true},
		{"1in", 96, true},
		{"25.4mm", 96, true},
		{"2.54cm", 96, true},
		{"1pc", 16, true},
		{"50%", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLength(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseLength(%q) ok = %v, expected %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (got < tt.want-0.001 || got > tt.want+0.001) {
			t.Errorf("ParseLength(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestViewport(t *testing.T) {
	doc, err := Parse([]byte(`<svg width="10in" height="7.5in"/>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	w, h, ok := Viewport(doc)
	if !ok || w != 960 || h != 720 {
		t.Errorf("expected 960x720 from explicit size, got %vx%v ok=%v", w, h, ok)
	}

	doc, err = Parse([]byte(`<svg viewBox="0 0 300 150"/>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	w, h, ok = Viewport(doc)
	if !ok || w != 300 || h != 150 {
		t.Errorf("expected 300x150 from viewBox, got %vx%v ok=%v", w, h, ok)
	}

	doc, err = Parse([]byte(`<svg><rect/></svg>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, _, ok = Viewport(doc); ok {
		t.Error("expected no viewport when size attributes are absent")
	}
}

func TestSubtreeDocumentRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10" id="all">` +
		`<g id="page1"><text x="1">A &lt; B</text></g><g id="page2"><rect width="3"/></g></svg>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	groups := doc.Children(doc.Root())
	out := SubtreeDocument(doc, groups[:1], RootAttrs(doc))

	re, err := Parse(out)
	if err != nil {
		t.Fatalf("serialized page does not reparse: %v\n%s", err, out)
	}
	root := re.Root()
	if v, ok := re.Attr(root, "viewBox"); !ok || v != "0 0 10 10" {
		t.Errorf("expected viewBox carried over, got %q ok=%v", v, ok)
	}
	if re.HasAttr(root, "id") {
		t.Error("expected source root id to be stripped")
	}
	kids := re.Children(root)
	if len(kids) != 1 || re.Node(kids[0]).Tag != "g" {
		t.Fatalf("expected single g child, got %d", len(kids))
	}
	var text string
	re.Walk(func(id NodeID, depth int) bool {
		if re.Node(id).Tag == "text" {
			text = re.Node(id).Text
		}
		return true
	})
	if text != "A < B" {
		t.Errorf("expected escaped text to survive round trip, got %q", text)
	}
}

func TestSubtreeDocumentAddsNamespace(t *testing.T) {
	doc, err := Parse([]byte(`<svg viewBox="0 0 4 4"><rect/></svg>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	out := SubtreeDocument(doc, doc.Children(doc.Root()), RootAttrs(doc))
	if !strings.Contains(string(out), `xmlns="http://www.w3.org/2000/svg"`) {
		t.Errorf("expected xmlns added to standalone page, got %s", out)
	}
}
