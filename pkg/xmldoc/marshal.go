package xmldoc

import (
	"bytes"
	"encoding/xml"
	"slices"
)

// Marshal serializes a document back to XML. Attributes are written in sorted order and
// text precedes child elements, so Decode(Marshal(d)) is structurally equal to d.
func Marshal(doc *Document) []byte {
	var buf bytes.Buffer
	if doc != nil && doc.Root != nil {
		writeNode(&buf, doc.Root)
	}
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	buf.WriteByte('<')
	buf.WriteString(n.Name)

	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		buf.WriteByte(' ')
		buf.WriteString(name)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(n.Attrs[name])) //nolint:errcheck
		buf.WriteByte('"')
	}

	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}

	buf.WriteByte('>')
	xml.EscapeText(buf, []byte(n.Text)) //nolint:errcheck
	for _, c := range n.Children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}
