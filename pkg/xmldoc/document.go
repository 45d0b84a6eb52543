// Package xmldoc decodes XML payloads into a plain element tree.
//
// Element and attribute names keep their literal prefix ("ns:item"); namespace URIs are
// not resolved. Text is the element's character data with surrounding whitespace trimmed.
// Comments, processing instructions and directives are dropped. General entities declared
// in the internal DOCTYPE subset are expanded as literal text; external entities are not
// fetched.
package xmldoc

import "maps"

// Document is a decoded payload.
type Document struct {
	Root *Node `json:"root" yaml:"root"`
}

// Node is one element of the tree.
type Node struct {
	Name     string            `json:"name" yaml:"name"`
	Attrs    map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Text     string            `json:"text,omitempty" yaml:"text,omitempty"`
	Children []*Node           `json:"children,omitempty" yaml:"children,omitempty"`
}

// Attr returns the attribute value and whether it was present.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Count returns the number of elements in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Equal reports whether two documents have the same structure. Attribute order is
// irrelevant; child order is not.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalNode(a.Root, b.Root)
}

func equalNode(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Text != b.Text || len(a.Children) != len(b.Children) {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) || (len(a.Attrs) > 0 && !maps.Equal(a.Attrs, b.Attrs)) {
		return false
	}
	for i := range a.Children {
		if !equalNode(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
