package xmldoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderXML = `<?xml version="1.0" encoding="UTF-8"?>
<order id="42">
  <item sku="A1">pen</item>
</order>`

func TestDecodeOrder(t *testing.T) {
	doc, err := Decode([]byte(orderXML))
	require.NoError(t, err)
	require.NotNil(t, doc.Root)

	root := doc.Root
	assert.Equal(t, "order", root.Name)
	id, ok := root.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "42", id)
	assert.Empty(t, root.Text)
	require.Len(t, root.Children, 1)

	item := root.Child("item")
	require.NotNil(t, item)
	sku, _ := item.Attr("sku")
	assert.Equal(t, "A1", sku)
	assert.Equal(t, "pen", item.Text)
	assert.Empty(t, item.Children)
	assert.Equal(t, 2, root.Count())
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, root *Node)
	}{
		{
			name:  "entities",
			input: `<a title="x &amp; y">1 &lt; 2 &#x263A;</a>`,
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "1 < 2 ☺", root.Text)
				assert.Equal(t, "x & y", root.Attrs["title"])
			},
		},
		{
			name:  "cdata",
			input: `<a><![CDATA[<not an element>]]></a>`,
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "<not an element>", root.Text)
				assert.Empty(t, root.Children)
			},
		},
		{
			name:  "self closing",
			input: `<a><b/><c x="1"/></a>`,
			check: func(t *testing.T, root *Node) {
				require.Len(t, root.Children, 2)
				assert.Equal(t, "b", root.Children[0].Name)
				assert.Equal(t, "c", root.Children[1].Name)
				assert.Nil(t, root.Children[0].Attrs)
			},
		},
		{
			name:  "child order preserved",
			input: `<list><i>3</i><i>1</i><i>2</i></list>`,
			check: func(t *testing.T, root *Node) {
				var got []string
				for _, c := range root.Children {
					got = append(got, c.Text)
				}
				assert.Equal(t, []string{"3", "1", "2"}, got)
			},
		},
		{
			name:  "prefixed names",
			input: `<ns:doc xmlns:ns="urn:x" ns:lang="en"><ns:p>hi</ns:p></ns:doc>`,
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "ns:doc", root.Name)
				assert.Equal(t, "urn:x", root.Attrs["xmlns:ns"])
				assert.Equal(t, "en", root.Attrs["ns:lang"])
				assert.Equal(t, "ns:p", root.Children[0].Name)
			},
		},
		{
			name:  "mixed content concatenated",
			input: `<p>one <b>two</b> three</p>`,
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "one  three", root.Text)
				assert.Equal(t, "two", root.Children[0].Text)
			},
		},
		{
			name:  "comments and processing instructions dropped",
			input: "<!-- lead --><?pi x?><a><!-- inner -->v</a><!-- tail -->",
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "v", root.Text)
				assert.Empty(t, root.Children)
			},
		},
		{
			name:  "doctype entities",
			input: `<!DOCTYPE a [<!ENTITY e "x"><!ENTITY who 'world'><!ENTITY % p "ignored">]><a title="&who;">&e; &amp; &who;</a>`,
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "x & world", root.Text)
				assert.Equal(t, "world", root.Attrs["title"])
			},
		},
		{
			name:  "byte order mark",
			input: "\xEF\xBB\xBF<a>v</a>",
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "v", root.Text)
			},
		},
		{
			name:  "latin1 declared charset",
			input: "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a>caf\xE9</a>",
			check: func(t *testing.T, root *Node) {
				assert.Equal(t, "café", root.Text)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			tt.check(t, doc.Root)
		})
	}
}

func TestDecodeDeepNesting(t *testing.T) {
	const depth = 2000
	input := strings.Repeat("<n>", depth) + "leaf" + strings.Repeat("</n>", depth)

	doc, err := Decode([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, depth, doc.Root.Count())

	n := doc.Root
	for len(n.Children) > 0 {
		n = n.Children[0]
	}
	assert.Equal(t, "leaf", n.Text)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{name: "empty", input: "", msg: "no root element"},
		{name: "whitespace only", input: "  \n ", msg: "no root element"},
		{name: "mismatched close", input: "<a><b></a>", msg: "element <b> closed by </a>"},
		{name: "unclosed", input: "<a><b></b>", msg: "unclosed element <a>"},
		{name: "stray close", input: "<a></a></b>", msg: "unexpected end element </b>"},
		{name: "two roots", input: "<a/><b/>", msg: "multiple root elements"},
		{name: "text after root", input: "<a/>tail", msg: "text outside the root element"},
		{name: "text before root", input: "lead<a/>", msg: "text outside the root element"},
		{name: "duplicate attribute", input: `<a x="1" x="2"/>`, msg: `duplicate attribute "x" on <a>`},
		{name: "undefined entity", input: "<a>&bogus;</a>"},
		{name: "external entity not expanded", input: `<!DOCTYPE a [<!ENTITY ext SYSTEM "file:///etc/passwd">]><a>&ext;</a>`},
		{name: "unquoted attribute", input: "<a x=1/>"},
		{name: "truncated tag", input: "<a><b"},
		{name: "not xml", input: `{"order": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrMalformedInput))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, KindMalformedInput, de.Kind)
			assert.GreaterOrEqual(t, de.Line, 1)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, de.Msg)
			}
		})
	}
}

func TestDecodeErrorPosition(t *testing.T) {
	_, err := Decode([]byte("<a>\n  <b>\n</a>"))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 3, de.Line)
	assert.Contains(t, de.Error(), "line 3")
}

func TestDecodeIsRepeatable(t *testing.T) {
	data := []byte(orderXML)
	first, err := Decode(data)
	require.NoError(t, err)
	second, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Equal(first, second))
	assert.Equal(t, orderXML, string(data))
}
