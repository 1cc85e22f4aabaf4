package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrEmptyDocument = errors.New("svg: empty document")
	ErrNoElements    = errors.New("svg: document has no elements")
)

// Parse decodes data into an arena tree. Comments, processing instructions
// and directives are dropped during decoding, so consumers only ever see
// elements, attributes and character data. Tag and attribute names are
// reduced to their local part.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	doc := &Document{nodes: make([]Node, 0, 64)}

	// open tracks the ancestor chain, lastChild the tail of each node's
	// child list so sibling linking stays O(1).
	var open []NodeID
	var lastChild []NodeID

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("svg: parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(open) == 0 && len(doc.nodes) > 0 {
				return nil, errors.New("svg: multiple root elements")
			}
			id := NodeID(len(doc.nodes))
			n := Node{
				Tag:         t.Name.Local,
				Parent:      NoNode,
				FirstChild:  NoNode,
				NextSibling: NoNode,
			}
			if len(t.Attr) > 0 {
				n.Attrs = make([]Attr, 0, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs = append(n.Attrs, Attr{Name: attrName(a.Name), Value: a.Value})
				}
			}
			doc.nodes = append(doc.nodes, n)
			lastChild = append(lastChild, NoNode)
			if len(open) > 0 {
				parent := open[len(open)-1]
				doc.nodes[id].Parent = parent
				if doc.nodes[parent].FirstChild == NoNode {
					doc.nodes[parent].FirstChild = id
				} else {
					doc.nodes[lastChild[parent]].NextSibling = id
				}
				lastChild[parent] = id
			}
			open = append(open, id)
		case xml.EndElement:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		case xml.CharData:
			if len(open) == 0 {
				continue
			}
			s := strings.TrimSpace(string(t))
			if s == "" {
				continue
			}
			cur := open[len(open)-1]
			if doc.nodes[cur].Text == "" {
				doc.nodes[cur].Text = s
			} else {
				doc.nodes[cur].Text += " " + s
			}
		}
	}
	if len(doc.nodes) == 0 {
		return nil, ErrNoElements
	}
	if len(open) != 0 {
		return nil, errors.New("svg: unclosed elements")
	}
	return doc, nil
}

// attrName reduces an attribute name to its local part while keeping xmlns
// declarations addressable by their full prefixed form.
func attrName(n xml.Name) string {
	if n.Space == "xmlns" {
		return "xmlns:" + n.Local
	}
	return n.Local
}

// lengthUnits maps SVG length units to CSS pixels at 96 dpi.
var lengthUnits = map[string]float64{
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"in": 96,
	"mm": 96.0 / 25.4,
	"cm": 96.0 / 2.54,
}

// ParseLength converts an SVG length ("210mm", "14pt", "640") to CSS pixels.
// Percentages and unparseable values report ok=false.
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	factor := 1.0
	for unit, f := range lengthUnits {
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
	return v * factor, true
}

// Viewport resolves the document's drawing surface in CSS pixels from the
// root width/height attributes, falling back to the viewBox.
func Viewport(d *Document) (w, h float64, ok bool) {
	root := d.Root()
	if root == NoNode {
		return 0, 0, false
	}
	if ws, found := d.Attr(root, "width"); found {
		if hs, found2 := d.Attr(root, "height"); found2 {
			pw, okW := ParseLength(ws)
			ph, okH := ParseLength(hs)
			if okW && okH && pw > 0 && ph > 0 {
				return pw, ph, true
			}
		}
	}
	if vb, found := d.Attr(root, "viewBox"); found {
		fields := strings.Fields(strings.ReplaceAll(vb, ",", " "))
		if len(fields) == 4 {
			pw, err1 := strconv.ParseFloat(fields[2], 64)
			ph, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 == nil && err2 == nil && pw > 0 && ph > 0 {
				return pw, ph, true
			}
		}
	}
	return 0, 0, false
}
