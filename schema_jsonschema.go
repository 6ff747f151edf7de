// schema_jsonschema.go — TypeDef ⇄ JSON Schema (draft 2020-12).
//
// Generation builds a map[string]any document and marshals it; parsing
// walks the decoded document and widens anything it does not model to
// Any, so any valid schema imports without failing.
package utlx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SchemaDialect names a schema output language.
type SchemaDialect string

const (
	DialectJSONSchema SchemaDialect = "jsonschema"
	DialectXSD        SchemaDialect = "xsd"
	DialectAvro       SchemaDialect = "avro"
)

// ParseDialect maps a CLI flag value to a SchemaDialect.
func ParseDialect(name string) (SchemaDialect, error) {
	switch name {
	case "jsonschema", "json-schema":
		return DialectJSONSchema, nil
	case "xsd":
		return DialectXSD, nil
	case "avro":
		return DialectAvro, nil
	}
	return "", fmt.Errorf("unknown schema dialect %q", name)
}

// GenerateSchema renders a TypeDef in the chosen dialect.
func GenerateSchema(dialect SchemaDialect, t *TypeDef) ([]byte, error) {
	switch dialect {
	case DialectJSONSchema:
		return generateJSONSchema(t)
	case DialectXSD:
		return generateXSD(t)
	case DialectAvro:
		return generateAvro(t)
	}
	return nil, fmt.Errorf("unknown schema dialect %q", dialect)
}

func generateJSONSchema(t *TypeDef) ([]byte, error) {
	doc := typeToSchema(t)
	doc["$schema"] = "https://json-schema.org/draft/2020-12/schema"
	return marshalSchemaDoc(doc)
}

// marshalSchemaDoc emits deterministic, indented JSON. Key order inside
// one object follows a fixed precedence so regenerated schemas diff
// cleanly.
func marshalSchemaDoc(doc map[string]any) ([]byte, error) {
	b, err := json.MarshalIndent(orderedDoc(doc), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func typeToSchema(t *TypeDef) map[string]any {
	if t == nil {
		return map[string]any{}
	}
	out := map[string]any{}
	switch t.Kind {
	case TAny:
		// empty schema accepts everything
	case TScalar:
		scalarToSchema(t, out)
	case TArray:
		out["type"] = "array"
		out["items"] = typeToSchema(t.Elem)
		if t.MinItems != nil {
			out["minItems"] = *t.MinItems
		}
		if t.MaxItems != nil {
			out["maxItems"] = *t.MaxItems
		}
	case TObject:
		out["type"] = "object"
		props := map[string]any{}
		var required []string
		for _, p := range t.Props {
			ps := typeToSchema(p.Type)
			if p.Nullable {
				ps = map[string]any{"anyOf": []any{ps, map[string]any{"type": "null"}}}
			}
			if p.Description != "" {
				ps["description"] = p.Description
			}
			props[p.Name] = ps
			if t.Required[p.Name] {
				required = append(required, p.Name)
			}
		}
		if len(props) > 0 {
			out["properties"] = props
		}
		if len(required) > 0 {
			out["required"] = required
		}
		out["additionalProperties"] = t.Open
	case TUnion:
		var alts []any
		for _, a := range t.Alts {
			alts = append(alts, typeToSchema(a))
		}
		out["anyOf"] = alts
	case TIntersection:
		var alts []any
		for _, a := range t.Alts {
			alts = append(alts, typeToSchema(a))
		}
		out["allOf"] = alts
	case TMap:
		out["type"] = "object"
		out["additionalProperties"] = typeToSchema(t.Value)
	case TTuple:
		out["type"] = "array"
		var items []any
		for _, it := range t.Items {
			items = append(items, typeToSchema(it))
		}
		out["prefixItems"] = items
		out["minItems"] = len(t.Items)
		out["maxItems"] = len(t.Items)
	case TFunction:
		// functions do not serialize; closest honest schema is "nothing"
		out["not"] = map[string]any{}
	}
	if t.Description != "" {
		out["description"] = t.Description
	}
	return out
}

func scalarToSchema(t *TypeDef, out map[string]any) {
	switch t.Scalar {
	case SString:
		out["type"] = "string"
	case SInteger:
		out["type"] = "integer"
	case SNumber:
		out["type"] = "number"
	case SBoolean:
		out["type"] = "boolean"
	case SNull:
		out["type"] = "null"
	case SDate:
		out["type"] = "string"
		out["format"] = "date"
	case SDateTime:
		out["type"] = "string"
		out["format"] = "date-time"
	}
	c := t.Constr
	if c == nil {
		return
	}
	if c.MinLength != nil {
		out["minLength"] = *c.MinLength
	}
	if c.MaxLength != nil {
		out["maxLength"] = *c.MaxLength
	}
	if c.Pattern != "" {
		out["pattern"] = c.Pattern
	}
	if c.Min != nil {
		out["minimum"] = *c.Min
	}
	if c.Max != nil {
		out["maximum"] = *c.Max
	}
	if len(c.Enum) > 0 {
		var vals []any
		for _, v := range c.Enum {
			vals = append(vals, nodeToPlain(v))
		}
		if len(vals) == 1 {
			out["const"] = vals[0]
		} else {
			out["enum"] = vals
		}
	}
}

func nodeToPlain(n Node) any {
	switch n.Kind {
	case KNull:
		return nil
	case KBool, KInt, KNum, KStr:
		return n.Data
	case KArray:
		var out []any
		for _, e := range n.Elems() {
			out = append(out, nodeToPlain(e))
		}
		return out
	case KObject:
		out := map[string]any{}
		for _, k := range n.Fields().Keys {
			out[k] = nodeToPlain(n.Fields().Entries[k])
		}
		return out
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
//                         JSON Schema -> TypeDef
////////////////////////////////////////////////////////////////////////////////

// ParseJSONSchema imports a JSON Schema document as a TypeDef. $ref
// within the same document resolves through $defs (and the legacy
// "definitions" key); constructs outside the structural model widen to
// Any.
func ParseJSONSchema(data []byte) (*TypeDef, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	imp := &schemaImporter{root: doc, visiting: map[string]bool{}}
	return imp.node(doc), nil
}

type schemaImporter struct {
	root     map[string]any
	visiting map[string]bool // cycle guard on $ref targets
}

func (imp *schemaImporter) node(s map[string]any) *TypeDef {
	if s == nil {
		return AnyType
	}
	if ref, ok := s["$ref"].(string); ok {
		return imp.resolveRef(ref)
	}
	if alts, ok := s["anyOf"].([]any); ok {
		return imp.altsOf(alts, false)
	}
	if alts, ok := s["oneOf"].([]any); ok {
		return imp.altsOf(alts, false)
	}
	if alts, ok := s["allOf"].([]any); ok {
		return imp.altsOf(alts, true)
	}
	if c, ok := s["const"]; ok {
		return imp.enumType(s, []any{c})
	}
	if e, ok := s["enum"].([]any); ok {
		return imp.enumType(s, e)
	}

	switch typ, _ := s["type"].(string); typ {
	case "string":
		t := &TypeDef{Kind: TScalar, Scalar: SString}
		switch s["format"] {
		case "date":
			t.Scalar = SDate
		case "date-time":
			t.Scalar = SDateTime
		}
		t.Constr = stringConstraints(s)
		return imp.described(t, s)
	case "integer":
		return imp.described(&TypeDef{Kind: TScalar, Scalar: SInteger, Constr: numberConstraints(s)}, s)
	case "number":
		return imp.described(&TypeDef{Kind: TScalar, Scalar: SNumber, Constr: numberConstraints(s)}, s)
	case "boolean":
		return imp.described(BooleanType, s)
	case "null":
		return NullType
	case "array":
		t := &TypeDef{Kind: TArray, Elem: AnyType}
		if items, ok := s["items"].(map[string]any); ok {
			t.Elem = imp.node(items)
		}
		if prefix, ok := s["prefixItems"].([]any); ok {
			tup := &TypeDef{Kind: TTuple}
			for _, it := range prefix {
				if m, ok := it.(map[string]any); ok {
					tup.Items = append(tup.Items, imp.node(m))
				} else {
					tup.Items = append(tup.Items, AnyType)
				}
			}
			return imp.described(tup, s)
		}
		if v, ok := schemaInt(s, "minItems"); ok {
			t.MinItems = &v
		}
		if v, ok := schemaInt(s, "maxItems"); ok {
			t.MaxItems = &v
		}
		return imp.described(t, s)
	case "object":
		return imp.described(imp.objectType(s), s)
	}
	return AnyType
}

func (imp *schemaImporter) objectType(s map[string]any) *TypeDef {
	props, _ := s["properties"].(map[string]any)
	if props == nil {
		// pure additionalProperties object imports as a map
		if ap, ok := s["additionalProperties"].(map[string]any); ok {
			return MapOf(imp.node(ap))
		}
		return &TypeDef{Kind: TObject, Required: map[string]bool{}, Open: true}
	}
	required := map[string]bool{}
	if rs, ok := s["required"].([]any); ok {
		for _, r := range rs {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}
	out := &TypeDef{Kind: TObject, Required: required}
	// JSON objects are unordered; sort property names for stable output.
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		var pt *TypeDef = AnyType
		if m, ok := props[name].(map[string]any); ok {
			pt = imp.node(m)
		}
		out.Props = append(out.Props, Prop{Name: name, Type: pt})
	}
	switch ap := s["additionalProperties"].(type) {
	case bool:
		out.Open = ap
	case map[string]any:
		out.Open = true
	case nil:
		out.Open = true // JSON Schema default
	}
	return out
}

func (imp *schemaImporter) altsOf(alts []any, intersect bool) *TypeDef {
	var ts []*TypeDef
	for _, a := range alts {
		if m, ok := a.(map[string]any); ok {
			ts = append(ts, imp.node(m))
		} else {
			ts = append(ts, AnyType)
		}
	}
	if intersect {
		if len(ts) == 1 {
			return ts[0]
		}
		return &TypeDef{Kind: TIntersection, Alts: ts}
	}
	return UnionOf(ts...)
}

func (imp *schemaImporter) enumType(s map[string]any, vals []any) *TypeDef {
	kind := SString
	if typ, ok := s["type"].(string); ok {
		switch typ {
		case "integer":
			kind = SInteger
		case "number":
			kind = SNumber
		case "boolean":
			kind = SBoolean
		}
	} else if len(vals) > 0 {
		switch vals[0].(type) {
		case float64:
			kind = SNumber
		case bool:
			kind = SBoolean
		}
	}
	var nodes []Node
	for _, v := range vals {
		nodes = append(nodes, plainToNode(v))
	}
	return &TypeDef{Kind: TScalar, Scalar: kind, Constr: &Constraints{Enum: nodes}}
}

func plainToNode(v any) Node {
	switch x := v.(type) {
	case nil:
		return NullNode
	case bool:
		return BoolNode(x)
	case float64:
		if x == float64(int64(x)) {
			return IntNode(int64(x))
		}
		return NumNode(x)
	case string:
		return StrNode(x)
	case []any:
		var out []Node
		for _, e := range x {
			out = append(out, plainToNode(e))
		}
		return ArrNode(out)
	case map[string]any:
		fields := NewFields()
		names := make([]string, 0, len(x))
		for k := range x {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fields.Set(k, plainToNode(x[k]))
		}
		return ObjNode(fields)
	}
	return NullNode
}

func (imp *schemaImporter) resolveRef(ref string) *TypeDef {
	name, ok := strings.CutPrefix(ref, "#/$defs/")
	if !ok {
		name, ok = strings.CutPrefix(ref, "#/definitions/")
	}
	if !ok {
		return AnyType // external refs widen
	}
	if imp.visiting[ref] {
		return AnyType // recursive definition
	}
	defs, _ := imp.root["$defs"].(map[string]any)
	if defs == nil {
		defs, _ = imp.root["definitions"].(map[string]any)
	}
	target, _ := defs[name].(map[string]any)
	if target == nil {
		return AnyType
	}
	imp.visiting[ref] = true
	defer delete(imp.visiting, ref)
	return imp.node(target)
}

func (imp *schemaImporter) described(t *TypeDef, s map[string]any) *TypeDef {
	if d, ok := s["description"].(string); ok && d != "" {
		cp := *t
		cp.Description = d
		return &cp
	}
	return t
}

func stringConstraints(s map[string]any) *Constraints {
	var c Constraints
	used := false
	if v, ok := schemaInt(s, "minLength"); ok {
		c.MinLength = &v
		used = true
	}
	if v, ok := schemaInt(s, "maxLength"); ok {
		c.MaxLength = &v
		used = true
	}
	if p, ok := s["pattern"].(string); ok {
		c.Pattern = p
		used = true
	}
	if !used {
		return nil
	}
	return &c
}

func numberConstraints(s map[string]any) *Constraints {
	var c Constraints
	used := false
	if v, ok := s["minimum"].(float64); ok {
		c.Min = &v
		used = true
	}
	if v, ok := s["maximum"].(float64); ok {
		c.Max = &v
		used = true
	}
	if !used {
		return nil
	}
	return &c
}

func schemaInt(s map[string]any, key string) (int, bool) {
	if v, ok := s[key].(float64); ok {
		return int(v), true
	}
	return 0, false
}

////////////////////////////////////////////////////////////////////////////////
//                        deterministic marshalling
////////////////////////////////////////////////////////////////////////////////

// schemaKeyOrder fixes the emission order of known schema keys.
var schemaKeyOrder = []string{
	"$schema", "$ref", "description", "type", "format", "const", "enum",
	"minLength", "maxLength", "pattern", "minimum", "maximum",
	"items", "prefixItems", "minItems", "maxItems",
	"properties", "required", "additionalProperties",
	"anyOf", "allOf", "not", "$defs",
}

// orderedDoc wraps a schema map so json.Marshal emits keys in
// schemaKeyOrder (unknown keys last, alphabetically).
type orderedDoc map[string]any

func (d orderedDoc) MarshalJSON() ([]byte, error) {
	rank := map[string]int{}
	for i, k := range schemaKeyOrder {
		rank[k] = i
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return keys[i] < keys[j]
	})
	var buf strings.Builder
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := d[k]
		if m, ok := v.(map[string]any); ok {
			v = orderedDoc(m)
		}
		vb, err := json.Marshal(wrapOrdered(v))
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// wrapOrdered recursively converts nested maps so ordering applies all
// the way down.
func wrapOrdered(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return orderedDoc(x)
	case orderedDoc:
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = wrapOrdered(e)
		}
		return out
	}
	return v
}
