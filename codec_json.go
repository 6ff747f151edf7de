// codec_json.go — JSON decode/encode.
//
// The stdlib json package unmarshals objects into unordered maps, which
// would destroy field order. Both directions therefore run on the token
// stream: the decoder walks json.Decoder tokens and records keys in
// encounter order, and the encoder writes fields back in that order.
package utlx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func decodeJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeJSONValue(dec)
	if err != nil {
		return Node{}, fmt.Errorf("json: %w", err)
	}
	// Anything after the first value is junk.
	if dec.More() {
		return Node{}, fmt.Errorf("json: trailing data after top-level value")
	}
	return n, nil
}

func decodeJSONValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Node, error) {
	switch t := tok.(type) {
	case nil:
		return NullNode, nil
	case bool:
		return BoolNode(t), nil
	case string:
		return StrNode(t), nil
	case json.Number:
		return numberNode(t)
	case json.Delim:
		switch t {
		case '{':
			fields := NewFields()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Node{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Node{}, fmt.Errorf("object key is not a string")
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return Node{}, err
				}
				fields.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // closing }
				return Node{}, err
			}
			return ObjNode(fields), nil
		case '[':
			var xs []Node
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return Node{}, err
				}
				xs = append(xs, v)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return Node{}, err
			}
			return ArrNode(xs), nil
		}
	}
	return Node{}, fmt.Errorf("unexpected token %v", tok)
}

// numberNode keeps integral literals as Int and everything else as Num.
func numberNode(num json.Number) (Node, error) {
	s := num.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntNode(i), nil
		}
	}
	f, err := num.Float64()
	if err != nil {
		return Node{}, fmt.Errorf("bad number %q", s)
	}
	return NumNode(f), nil
}

func encodeJSON(n Node) ([]byte, error) {
	var buf bytes.Buffer
	indent := ""
	if directiveBool(n, "pretty", true) {
		indent = "  "
	}
	if err := writeJSON(&buf, n, indent, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n Node, indent string, depth int) error {
	switch n.Kind {
	case KNull:
		buf.WriteString("null")
	case KBool:
		buf.WriteString(strconv.FormatBool(n.Data.(bool)))
	case KInt:
		buf.WriteString(strconv.FormatInt(n.Data.(int64), 10))
	case KNum:
		b, err := json.Marshal(n.Data.(float64))
		if err != nil {
			return err
		}
		buf.Write(b)
	case KStr:
		b, err := json.Marshal(n.Data.(string))
		if err != nil {
			return err
		}
		buf.Write(b)
	case KArray:
		xs := n.Elems()
		if len(xs) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, x := range xs {
			if i > 0 {
				buf.WriteByte(',')
			}
			jsonBreak(buf, indent, depth+1)
			if err := writeJSON(buf, x, indent, depth+1); err != nil {
				return err
			}
		}
		jsonBreak(buf, indent, depth)
		buf.WriteByte(']')
	case KObject:
		f := n.Fields()
		if f == nil || f.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, k := range f.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			jsonBreak(buf, indent, depth+1)
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := writeJSON(buf, f.Entries[k], indent, depth+1); err != nil {
				return err
			}
		}
		jsonBreak(buf, indent, depth)
		buf.WriteByte('}')
	case KFunc:
		return fmt.Errorf("json: cannot encode a function value")
	default:
		return fmt.Errorf("json: cannot encode %s", n.Kind)
	}
	return nil
}

func jsonBreak(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString(indent)
	}
}
