package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// Kind classifies a decode failure.
type Kind string

const KindMalformedInput Kind = "malformed-input"

// ErrMalformedInput matches every DecodeError of kind KindMalformedInput via errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// DecodeError reports where parsing failed.
type DecodeError struct {
	Kind   Kind
	Msg    string
	Line   int
	Column int
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode xml: %s (line %d, column %d, offset %d)", e.Msg, e.Line, e.Column, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedInput && e.Kind == KindMalformedInput
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses a well-formed XML document. It has no side effects, so decoding the same
// bytes twice yields equal trees.
func Decode(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = map[string]string{}

	fail := func(msg string, cause error) error {
		line, col := dec.InputPos()
		var syn *xml.SyntaxError
		if errors.As(cause, &syn) {
			msg = syn.Msg
			line = syn.Line
		}
		return &DecodeError{
			Kind:   KindMalformedInput,
			Msg:    msg,
			Line:   line,
			Column: col,
			Offset: dec.InputOffset(),
			Err:    cause,
		}
	}

	var (
		root  *Node
		stack []*Node
		texts []*strings.Builder
	)

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fail(err.Error(), err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fail("multiple root elements", nil)
			}
			n := &Node{Name: qualified(t.Name)}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					name := qualified(a.Name)
					if _, dup := n.Attrs[name]; dup {
						return nil, fail(fmt.Sprintf("duplicate attribute %q on <%s>", name, n.Name), nil)
					}
					n.Attrs[name] = a.Value
				}
			}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})

		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 {
				return nil, fail(fmt.Sprintf("unexpected end element </%s>", name), nil)
			}
			top := stack[len(stack)-1]
			if top.Name != name {
				return nil, fail(fmt.Sprintf("element <%s> closed by </%s>", top.Name, name), nil)
			}
			top.Text = strings.TrimSpace(texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]

		case xml.Directive:
			if root == nil {
				declareEntities(dec.Entity, t)
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fail("text outside the root element", nil)
				}
				continue
			}
			texts[len(texts)-1].Write(t)
		}
	}

	if len(stack) > 0 {
		return nil, fail(fmt.Sprintf("unclosed element <%s>", stack[len(stack)-1].Name), io.ErrUnexpectedEOF)
	}
	if root == nil {
		return nil, fail("no root element", io.ErrUnexpectedEOF)
	}
	return &Document{Root: root}, nil
}

var entityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_:][-A-Za-z0-9._:]*)\s+(?:"([^"]*)"|'([^']*)')\s*>`)

// declareEntities registers the internal general entities of a DOCTYPE. Parameter and
// external entities are ignored.
func declareEntities(entities map[string]string, d xml.Directive) {
	if !bytes.HasPrefix(d, []byte("DOCTYPE")) {
		return
	}
	for _, m := range entityDecl.FindAllSubmatch(d, -1) {
		name := string(m[1])
		if _, ok := entities[name]; ok {
			continue
		}
		if m[2] != nil {
			entities[name] = string(m[2])
		} else {
			entities[name] = string(m[3])
		}
	}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
