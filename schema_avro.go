// schema_avro.go — TypeDef -> Avro schema (generate only).
//
// Objects become records, nullable fields become ["null", T] unions,
// scalar kinds map to Avro primitives (dates use the logicalType
// annotations on string, keeping the wire form readable). Record names
// are synthesized from the field path since TypeDefs are anonymous.
package utlx

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

func generateAvro(t *TypeDef) ([]byte, error) {
	gen := &avroGen{names: map[string]int{}}
	doc, err := gen.schema(t, "Root")
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

type avroGen struct {
	names map[string]int // disambiguates synthesized record names
}

func (g *avroGen) schema(t *TypeDef, hint string) (any, error) {
	if t == nil {
		return avroAny(), nil
	}
	switch t.Kind {
	case TAny:
		return avroAny(), nil
	case TScalar:
		return avroScalar(t.Scalar), nil
	case TArray:
		items, err := g.schema(t.Elem, hint+"Item")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case TTuple:
		// Avro has no positional tuples; emit an array of the union.
		var u *TypeDef
		for _, it := range t.Items {
			u = Unify(u, it)
		}
		items, err := g.schema(u, hint+"Item")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case TMap:
		values, err := g.schema(t.Value, hint+"Value")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "map", "values": values}, nil
	case TObject:
		return g.record(t, hint)
	case TUnion:
		var alts []any
		seen := map[string]bool{}
		for _, a := range t.Alts {
			s, err := g.schema(a, hint)
			if err != nil {
				return nil, err
			}
			key := fmt.Sprint(s)
			if !seen[key] {
				seen[key] = true
				alts = append(alts, s)
			}
		}
		return alts, nil
	case TIntersection:
		// no Avro counterpart; fall back to the first alternative
		if len(t.Alts) > 0 {
			return g.schema(t.Alts[0], hint)
		}
		return avroAny(), nil
	case TFunction:
		return nil, fmt.Errorf("avro: cannot express a function type")
	}
	return avroAny(), nil
}

func (g *avroGen) record(t *TypeDef, hint string) (any, error) {
	name := g.recordName(hint)
	fields := make([]any, 0, len(t.Props))
	for _, p := range t.Props {
		fs, err := g.schema(p.Type, name+avroName(p.Name))
		if err != nil {
			return nil, err
		}
		if p.Nullable || !t.Required[p.Name] {
			fs = []any{"null", fs}
		}
		field := map[string]any{"name": avroName(p.Name), "type": fs}
		if p.Description != "" {
			field["doc"] = p.Description
		}
		fields = append(fields, field)
	}
	return map[string]any{
		"type":   "record",
		"name":   name,
		"fields": fields,
	}, nil
}

func (g *avroGen) recordName(hint string) string {
	name := avroName(hint)
	if name == "" {
		name = "Record"
	}
	g.names[name]++
	if n := g.names[name]; n > 1 {
		return fmt.Sprintf("%s%d", name, n)
	}
	return name
}

// avroName sanitizes a field path fragment into a valid Avro name
// ([A-Za-z_][A-Za-z0-9_]*).
func avroName(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) && r < 128, r == '_':
			sb.WriteRune(r)
		case unicode.IsDigit(r) && r < 128:
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func avroScalar(k ScalarKind) any {
	switch k {
	case SString:
		return "string"
	case SInteger:
		return "long"
	case SNumber:
		return "double"
	case SBoolean:
		return "boolean"
	case SNull:
		return "null"
	case SDate:
		return map[string]any{"type": "string", "logicalType": "date"}
	case SDateTime:
		return map[string]any{"type": "string", "logicalType": "timestamp-millis"}
	}
	return avroAny()
}

// avroAny is the loosest type Avro offers without schema references.
func avroAny() any {
	return []any{"null", "boolean", "long", "double", "string"}
}
