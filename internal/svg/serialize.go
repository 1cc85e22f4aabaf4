package svg

import (
	"bytes"
	"encoding/xml"
)

const xmlnsSVG = "http://www.w3.org/2000/svg"

type serializeFrame struct {
	id    NodeID
	close bool
}

// SubtreeDocument builds a standalone SVG document: a fresh <svg> root
// carrying rootAttrs, wrapping deep copies of the given subtrees in order.
// An xmlns declaration is added when rootAttrs lacks one. The returned
// bytes are owned by the caller and share nothing with the source document.
func SubtreeDocument(d *Document, roots []NodeID, rootAttrs []Attr) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<svg`)
	hasNS := false
	for _, a := range rootAttrs {
		if a.Name == "xmlns" {
			hasNS = true
		}
		writeAttr(&buf, a)
	}
	if !hasNS {
		writeAttr(&buf, Attr{Name: "xmlns", Value: xmlnsSVG})
	}
	buf.WriteString(">")
	for _, root := range roots {
		writeSubtree(&buf, d, root)
	}
	buf.WriteString("</svg>")
	return buf.Bytes()
}

// writeSubtree serializes one subtree with an explicit stack; close frames
// are pushed under the children so end tags come out after them.
func writeSubtree(buf *bytes.Buffer, d *Document, start NodeID) {
	if start == NoNode {
		return
	}
	stack := make([]serializeFrame, 0, 16)
	stack = append(stack, serializeFrame{start, false})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := d.Node(f.id)
		if f.close {
			buf.WriteString("</")
			buf.WriteString(n.Tag)
			buf.WriteString(">")
			continue
		}
		buf.WriteString("<")
		buf.WriteString(n.Tag)
		for _, a := range n.Attrs {
			writeAttr(buf, a)
		}
		kids := d.Children(f.id)
		if len(kids) == 0 && n.Text == "" {
			buf.WriteString("/>")
			continue
		}
		buf.WriteString(">")
		if n.Text != "" {
			escapeInto(buf, n.Text)
		}
		stack = append(stack, serializeFrame{f.id, true})
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, serializeFrame{kids[i], false})
		}
	}
}

func writeAttr(buf *bytes.Buffer, a Attr) {
	buf.WriteString(" ")
	buf.WriteString(a.Name)
	buf.WriteString(`="`)
	escapeInto(buf, a.Value)
	buf.WriteString(`"`)
}

func escapeInto(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

// RootAttrs returns a copy of the root element's attributes with id and
// class stripped, the shape page extraction wants when it re-homes content
// under a fresh root.
func RootAttrs(d *Document) []Attr {
	root := d.Root()
	if root == NoNode {
		return nil
	}
	src := d.Node(root).Attrs
	out := make([]Attr, 0, len(src))
	for _, a := range src {
		if a.Name == "id" || a.Name == "class" {
			continue
		}
		out = append(out, a)
	}
	return out
}
