package svg

// Arena-backed SVG document tree. Nodes live in one flat slice and point at
// each other by index, so every traversal runs on an explicit stack and
// deeply nested documents cannot exhaust the call stack.

// NodeID indexes a node inside its Document arena.
type NodeID int32

// NoNode marks a missing parent, child or sibling link.
const NoNode NodeID = -1

// Attr is a single attribute with its name normalized to the local part
// (xlink:href is stored as href). Namespace declarations keep their xmlns
// prefix so serialized subtrees stay valid.
type Attr struct {
	Name  string
	Value string
}

// Node is one element. Text holds the element's direct character data,
// trimmed, with inner runs joined by single spaces.
type Node struct {
	Tag         string
	Attrs       []Attr
	Text        string
	Parent      NodeID
	FirstChild  NodeID
	NextSibling NodeID
}

// Document is an immutable parsed tree. The zero value is empty.
type Document struct {
	nodes []Node
}

// Len reports the number of elements, root included.
func (d *Document) Len() int { return len(d.nodes) }

// Root returns the root element or NoNode for an empty document.
func (d *Document) Root() NodeID {
	if len(d.nodes) == 0 {
		return NoNode
	}
	return 0
}

// Node returns the node for id. The pointer stays valid for the document's
// lifetime; callers must not mutate through it.
func (d *Document) Node(id NodeID) *Node {
	return &d.nodes[id]
}

// Children collects the direct element children of id in document order.
func (d *Document) Children(id NodeID) []NodeID {
	if id == NoNode {
		return nil
	}
	var kids []NodeID
	for c := d.nodes[id].FirstChild; c != NoNode; c = d.nodes[c].NextSibling {
		kids = append(kids, c)
	}
	return kids
}

// Attr returns the first attribute named name on id.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	if id == NoNode {
		return "", false
	}
	for _, a := range d.nodes[id].Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether id carries an attribute named name.
func (d *Document) HasAttr(id NodeID, name string) bool {
	_, ok := d.Attr(id, name)
	return ok
}

type walkFrame struct {
	id    NodeID
	depth int
}

// Walk visits every element depth-first in document order. The root is
// visited at depth 0. Returning false from fn prunes the subtree below the
// visited node.
func (d *Document) Walk(fn func(id NodeID, depth int) bool) {
	root := d.Root()
	if root == NoNode {
		return
	}
	stack := make([]walkFrame, 0, 32)
	stack = append(stack, walkFrame{root, 0})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.id, f.depth) {
			continue
		}
		kids := d.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{kids[i], f.depth + 1})
		}
	}
}

// WalkFrom behaves like Walk but starts at the given node instead of the
// root. The start node is visited at depth 0.
func (d *Document) WalkFrom(start NodeID, fn func(id NodeID, depth int) bool) {
	if start == NoNode {
		return
	}
	stack := make([]walkFrame, 0, 16)
	stack = append(stack, walkFrame{start, 0})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.id, f.depth) {
			continue
		}
		kids := d.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{kids[i], f.depth + 1})
		}
	}
}
