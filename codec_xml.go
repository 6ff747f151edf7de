// codec_xml.go — XML decode/encode.
//
// Decoding maps an element to a single-key object: the key is the element
// name, the value holds the children. Repeated sibling names collapse to
// an array, attributes land on Meta.Attrs, the namespace URI on Meta.Ns,
// and text-only elements become Str scalars (so <price>9.99</price>
// decodes to the string "9.99"; numeric coercion is the transformation's
// job via parseNumber). Encoding walks the tree back out, re-emitting
// attributes from Meta and honoring the !version, !encoding and !cdata
// output directives.
package utlx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func decodeXML(data []byte) (Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Node{}, fmt.Errorf("xml: no root element")
		}
		if err != nil {
			return Node{}, fmt.Errorf("xml: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			child, err := decodeXMLElement(dec, start)
			if err != nil {
				return Node{}, fmt.Errorf("xml: %w", err)
			}
			root := NewFields()
			root.Set(start.Name.Local, child)
			n := ObjNode(root)
			n.ensureMeta().Hint = "xml"
			return n, nil
		}
		// Skip the prolog, comments and whitespace before the root.
	}
}

// decodeXMLElement consumes one element's content after its start tag.
func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (Node, error) {
	fields := NewFields()
	var text strings.Builder
	sawChild := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return Node{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawChild = true
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return Node{}, err
			}
			name := t.Name.Local
			if prev, ok := fields.Get(name); ok {
				// Second sibling with the same name: collapse to array.
				if prev.Kind == KArray {
					fields.Set(name, ArrNode(append(prev.Elems(), child)))
				} else {
					fields.Set(name, ArrNode([]Node{prev, child}))
				}
			} else {
				fields.Set(name, child)
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return finishXMLElement(start, fields, text.String(), sawChild), nil
		}
	}
}

func finishXMLElement(start xml.StartElement, fields *Fields, text string, sawChild bool) Node {
	attrs := xmlAttrs(start)
	trimmed := strings.TrimSpace(text)
	if !sawChild && trimmed != "" && len(attrs) == 0 {
		// Text-only element without attributes is a plain scalar.
		return StrNode(trimmed)
	}
	if trimmed != "" && !sawChild {
		// Attributes force an object; the text lands under "$text" so
		// it survives next to them.
		fields.Set("$text", StrNode(trimmed))
	}
	n := ObjNode(fields)
	if len(attrs) > 0 {
		m := n.ensureMeta()
		m.Attrs = NewFields()
		for _, a := range attrs {
			m.Attrs.Set(a.Name.Local, StrNode(a.Value))
		}
	}
	if start.Name.Space != "" {
		n.ensureMeta().Ns = start.Name.Space
	}
	return n
}

// xmlAttrs drops namespace declarations, which ride on Meta.Ns instead.
func xmlAttrs(start xml.StartElement) []xml.Attr {
	out := start.Attr[:0:0]
	for _, a := range start.Attr {
		if a.Name.Local == "xmlns" || a.Name.Space == "xmlns" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func encodeXML(n Node) ([]byte, error) {
	if n.Kind != KObject || n.Fields().Len() != 1 {
		return nil, fmt.Errorf("xml: output must be an object with exactly one root element")
	}
	var buf bytes.Buffer
	version := directiveString(n, "version", "1.0")
	encoding := directiveString(n, "encoding", "UTF-8")
	cdata := directiveBool(n, "cdata", false)
	fmt.Fprintf(&buf, "<?xml version=%q encoding=%q?>\n", version, encoding)

	root := n.Fields().Keys[0]
	if err := writeXMLElement(&buf, root, n.Fields().Entries[root], cdata, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeXMLElement(buf *bytes.Buffer, name string, n Node, cdata bool, depth int) error {
	// Arrays repeat the element name once per item.
	if n.Kind == KArray {
		for i, x := range n.Elems() {
			if i > 0 {
				buf.WriteByte('\n')
			}
			if err := writeXMLElement(buf, name, x, cdata, depth); err != nil {
				return err
			}
		}
		return nil
	}

	xmlIndent(buf, depth)
	buf.WriteByte('<')
	buf.WriteString(name)
	if n.Meta != nil && n.Meta.Attrs != nil {
		for _, k := range n.Meta.Attrs.Keys {
			v, _ := n.Meta.Attrs.Get(k)
			fmt.Fprintf(buf, " %s=%q", k, scalarText(v))
		}
	}

	switch n.Kind {
	case KNull:
		buf.WriteString("/>")
		return nil
	case KBool, KInt, KNum, KStr:
		buf.WriteByte('>')
		writeXMLText(buf, scalarText(n), cdata)
		buf.WriteString("</" + name + ">")
		return nil
	case KObject:
		f := n.Fields()
		if f.Len() == 0 {
			buf.WriteString("/>")
			return nil
		}
		buf.WriteByte('>')
		if text, ok := f.Get("$text"); ok && f.Len() == 1 {
			writeXMLText(buf, scalarText(text), cdata)
			buf.WriteString("</" + name + ">")
			return nil
		}
		for _, k := range f.Keys {
			buf.WriteByte('\n')
			if k == "$text" {
				xmlIndent(buf, depth+1)
				writeXMLText(buf, scalarText(f.Entries[k]), cdata)
				continue
			}
			if err := writeXMLElement(buf, k, f.Entries[k], cdata, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('\n')
		xmlIndent(buf, depth)
		buf.WriteString("</" + name + ">")
		return nil
	}
	return fmt.Errorf("xml: cannot encode %s as element <%s>", n.Kind, name)
}

func writeXMLText(buf *bytes.Buffer, s string, cdata bool) {
	if cdata {
		buf.WriteString("<![CDATA[" + s + "]]>")
		return
	}
	xml.EscapeText(buf, []byte(s))
}

func scalarText(n Node) string {
	switch n.Kind {
	case KStr:
		return n.Data.(string)
	case KBool:
		return strconv.FormatBool(n.Data.(bool))
	case KInt:
		return strconv.FormatInt(n.Data.(int64), 10)
	case KNum:
		return strconv.FormatFloat(n.Data.(float64), 'g', -1, 64)
	case KNull:
		return ""
	}
	return n.String()
}

func xmlIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
