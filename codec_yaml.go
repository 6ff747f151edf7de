// codec_yaml.go — YAML decode/encode via gopkg.in/yaml.v3.
//
// Both directions go through yaml.Node rather than map[string]any so that
// mapping key order survives the round trip. Anchors and aliases are
// resolved during decode; the encoder never emits them.
package utlx

import (
	"fmt"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

func decodeYAML(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Node{}, fmt.Errorf("yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NullNode, nil
	}
	n, err := fromYAMLNode(doc.Content[0])
	if err != nil {
		return Node{}, fmt.Errorf("yaml: %w", err)
	}
	return n, nil
}

func fromYAMLNode(y *yaml.Node) (Node, error) {
	switch y.Kind {
	case yaml.AliasNode:
		return fromYAMLNode(y.Alias)
	case yaml.ScalarNode:
		return yamlScalar(y)
	case yaml.SequenceNode:
		xs := make([]Node, 0, len(y.Content))
		for _, c := range y.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return Node{}, err
			}
			xs = append(xs, v)
		}
		return ArrNode(xs), nil
	case yaml.MappingNode:
		fields := NewFields()
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return Node{}, fmt.Errorf("non-scalar mapping key at line %d", k.Line)
			}
			v, err := fromYAMLNode(y.Content[i+1])
			if err != nil {
				return Node{}, err
			}
			fields.Set(k.Value, v)
		}
		return ObjNode(fields), nil
	}
	return Node{}, fmt.Errorf("unsupported node kind %d at line %d", y.Kind, y.Line)
}

func yamlScalar(y *yaml.Node) (Node, error) {
	switch y.Tag {
	case "!!null":
		return NullNode, nil
	case "!!bool":
		b, err := strconv.ParseBool(y.Value)
		if err != nil {
			return Node{}, fmt.Errorf("bad bool %q at line %d", y.Value, y.Line)
		}
		return BoolNode(b), nil
	case "!!int":
		i, err := strconv.ParseInt(y.Value, 0, 64)
		if err != nil {
			return Node{}, fmt.Errorf("bad int %q at line %d", y.Value, y.Line)
		}
		return IntNode(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(y.Value, 64)
		if err != nil {
			return Node{}, fmt.Errorf("bad float %q at line %d", y.Value, y.Line)
		}
		return NumNode(f), nil
	default:
		return StrNode(y.Value), nil
	}
}

func encodeYAML(n Node) ([]byte, error) {
	y, err := toYAMLNode(n)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(y)
}

func toYAMLNode(n Node) (*yaml.Node, error) {
	switch n.Kind {
	case KNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Data.(bool))}, nil
	case KInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.Data.(int64), 10)}, nil
	case KNum:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(n.Data.(float64), 'g', -1, 64)}, nil
	case KStr:
		y := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Data.(string)}
		// Quote strings the YAML scanner would otherwise retype.
		if looksTyped(n.Data.(string)) {
			y.Style = yaml.DoubleQuotedStyle
		}
		return y, nil
	case KArray:
		y := &yaml.Node{Kind: yaml.SequenceNode}
		for _, x := range n.Elems() {
			c, err := toYAMLNode(x)
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content, c)
		}
		return y, nil
	case KObject:
		y := &yaml.Node{Kind: yaml.MappingNode}
		f := n.Fields()
		for _, k := range f.Keys {
			c, err := toYAMLNode(f.Entries[k])
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, c)
		}
		return y, nil
	}
	return nil, fmt.Errorf("yaml: cannot encode %s", n.Kind)
}

func looksTyped(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "~", "true", "false", "yes", "no", "on", "off":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}
