// typedef.go — structural types for static inference and schema generation.
//
// TypeDef is a tagged union over Any/Scalar/Array/Object/Union/Intersection/
// Map/Tuple/Function. The relations here (Subtype, Unify, Equal) are the
// semantic core of the inference engine: Subtype answers "can a value of A
// flow where B is expected", Unify computes the type of an expression with
// several possible shapes (widening to a Union instead of collapsing to a
// least upper bound, so branch information survives into schemas).
package utlx

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the TypeDef union.
type TypeKind int

const (
	TAny TypeKind = iota
	TScalar
	TArray
	TObject
	TUnion
	TIntersection
	TMap
	TTuple
	TFunction
)

// ScalarKind refines TScalar.
type ScalarKind int

const (
	SString ScalarKind = iota
	SInteger
	SNumber
	SBoolean
	SNull
	SDate
	SDateTime
)

func (s ScalarKind) String() string {
	switch s {
	case SString:
		return "String"
	case SInteger:
		return "Integer"
	case SNumber:
		return "Number"
	case SBoolean:
		return "Boolean"
	case SNull:
		return "Null"
	case SDate:
		return "Date"
	case SDateTime:
		return "DateTime"
	}
	return fmt.Sprintf("ScalarKind(%d)", int(s))
}

// Constraints restrict a scalar type. Nil pointers mean "unconstrained".
type Constraints struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	Min       *float64
	Max       *float64
	Enum      []Node // literal values; scalar kinds only
}

// Prop is one property of an object type, in declaration order.
type Prop struct {
	Name        string
	Type        *TypeDef
	Nullable    bool
	Description string
}

// TypeDef is one structural type. Which fields are meaningful depends on
// Kind; the rest stay zero.
type TypeDef struct {
	Kind TypeKind

	// TScalar
	Scalar ScalarKind
	Constr *Constraints

	// TArray
	Elem     *TypeDef
	MinItems *int
	MaxItems *int

	// TObject
	Props    []Prop
	Required map[string]bool
	Open     bool // additional properties allowed

	// TUnion / TIntersection
	Alts []*TypeDef

	// TMap
	Value *TypeDef

	// TTuple
	Items []*TypeDef

	// TFunction
	Params []*TypeDef
	Ret    *TypeDef

	// NonConstant marks values influenced by impure functions (clock reads),
	// so downstream tooling does not treat them as literals.
	NonConstant bool

	Description string
}

// ----- constructors -----

var (
	AnyType      = &TypeDef{Kind: TAny}
	StringType   = &TypeDef{Kind: TScalar, Scalar: SString}
	IntegerType  = &TypeDef{Kind: TScalar, Scalar: SInteger}
	NumberType   = &TypeDef{Kind: TScalar, Scalar: SNumber}
	BooleanType  = &TypeDef{Kind: TScalar, Scalar: SBoolean}
	NullType     = &TypeDef{Kind: TScalar, Scalar: SNull}
	DateType     = &TypeDef{Kind: TScalar, Scalar: SDate}
	DateTimeType = &TypeDef{Kind: TScalar, Scalar: SDateTime}
)

func ArrayOf(elem *TypeDef) *TypeDef { return &TypeDef{Kind: TArray, Elem: elem} }
func MapOf(value *TypeDef) *TypeDef  { return &TypeDef{Kind: TMap, Value: value} }
func FuncType(params []*TypeDef, ret *TypeDef) *TypeDef {
	return &TypeDef{Kind: TFunction, Params: params, Ret: ret}
}

// ObjectOf builds a closed object type; every listed prop is required.
func ObjectOf(props ...Prop) *TypeDef {
	req := map[string]bool{}
	for _, p := range props {
		req[p.Name] = true
	}
	return &TypeDef{Kind: TObject, Props: props, Required: req}
}

// UnionOf flattens nested unions, drops duplicates, and collapses a
// single-member union to that member.
func UnionOf(alts ...*TypeDef) *TypeDef {
	var flat []*TypeDef
	var add func(t *TypeDef)
	add = func(t *TypeDef) {
		if t == nil {
			return
		}
		if t.Kind == TUnion {
			for _, a := range t.Alts {
				add(a)
			}
			return
		}
		for _, have := range flat {
			if TypeEqual(have, t) {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, a := range alts {
		add(a)
	}
	switch len(flat) {
	case 0:
		return AnyType
	case 1:
		return flat[0]
	}
	// Any absorbs everything
	for _, a := range flat {
		if a.Kind == TAny {
			return AnyType
		}
	}
	return &TypeDef{Kind: TUnion, Alts: flat}
}

// Nullable widens t to accept null.
func Nullable(t *TypeDef) *TypeDef { return UnionOf(t, NullType) }

// prop lookup
func (t *TypeDef) propNamed(name string) (Prop, bool) {
	for _, p := range t.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Prop{}, false
}

// String renders a compact human-readable form for diagnostics.
func (t *TypeDef) String() string {
	if t == nil {
		return "Any"
	}
	switch t.Kind {
	case TAny:
		return "Any"
	case TScalar:
		return t.Scalar.String()
	case TArray:
		return "Array<" + t.Elem.String() + ">"
	case TObject:
		var parts []string
		for _, p := range t.Props {
			s := p.Name
			if !t.Required[p.Name] {
				s += "?"
			}
			parts = append(parts, s+": "+p.Type.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TUnion:
		var parts []string
		for _, a := range t.Alts {
			parts = append(parts, a.String())
		}
		return strings.Join(parts, " | ")
	case TIntersection:
		var parts []string
		for _, a := range t.Alts {
			parts = append(parts, a.String())
		}
		return strings.Join(parts, " & ")
	case TMap:
		return "Map<String, " + t.Value.String() + ">"
	case TTuple:
		var parts []string
		for _, a := range t.Items {
			parts = append(parts, a.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TFunction:
		var parts []string
		for _, a := range t.Params {
			parts = append(parts, a.String())
		}
		return "(" + strings.Join(parts, ", ") + ") => " + t.Ret.String()
	}
	return "Any"
}

////////////////////////////////////////////////////////////////////////////////
//                              RELATIONS
////////////////////////////////////////////////////////////////////////////////

// TypeEqual reports structural equality, ignoring descriptions.
func TypeEqual(a, b *TypeDef) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TAny:
		return true
	case TScalar:
		return a.Scalar == b.Scalar && constrEqual(a.Constr, b.Constr)
	case TArray:
		return TypeEqual(a.Elem, b.Elem)
	case TObject:
		if len(a.Props) != len(b.Props) || a.Open != b.Open {
			return false
		}
		for i, p := range a.Props {
			q := b.Props[i]
			if p.Name != q.Name || p.Nullable != q.Nullable || !TypeEqual(p.Type, q.Type) {
				return false
			}
			if a.Required[p.Name] != b.Required[q.Name] {
				return false
			}
		}
		return true
	case TUnion, TIntersection:
		if len(a.Alts) != len(b.Alts) {
			return false
		}
		for i := range a.Alts {
			if !TypeEqual(a.Alts[i], b.Alts[i]) {
				return false
			}
		}
		return true
	case TMap:
		return TypeEqual(a.Value, b.Value)
	case TTuple:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !TypeEqual(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case TFunction:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !TypeEqual(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return TypeEqual(a.Ret, b.Ret)
	}
	return false
}

func constrEqual(a, b *Constraints) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !intPtrEqual(a.MinLength, b.MinLength) || !intPtrEqual(a.MaxLength, b.MaxLength) {
		return false
	}
	if a.Pattern != b.Pattern {
		return false
	}
	if !floatPtrEqual(a.Min, b.Min) || !floatPtrEqual(a.Max, b.Max) {
		return false
	}
	if len(a.Enum) != len(b.Enum) {
		return false
	}
	for i := range a.Enum {
		if !Equal(a.Enum[i], b.Enum[i]) {
			return false
		}
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Subtype reports whether a value of type a can flow where b is expected.
//
// Rules: Any is top; Integer <: Number; arrays are covariant; objects
// require b's required props to exist in a with subtyped prop types, and a
// closed b rejects extra props in a; a union on the left must have every
// alternative accepted, on the right at least one; enum scalars are
// accepted by their base kind; function params are contravariant and
// returns covariant.
func Subtype(a, b *TypeDef) bool {
	if a == nil || b == nil {
		return true
	}
	if b.Kind == TAny {
		return true
	}
	if a.Kind == TAny {
		// Any flows everywhere only dynamically; statically we accept it to
		// keep accumulation low-noise (strictness is the caller's knob).
		return true
	}
	if a.Kind == TUnion {
		for _, alt := range a.Alts {
			if !Subtype(alt, b) {
				return false
			}
		}
		return true
	}
	if b.Kind == TUnion {
		for _, alt := range b.Alts {
			if Subtype(a, alt) {
				return true
			}
		}
		return false
	}
	if b.Kind == TIntersection {
		for _, alt := range b.Alts {
			if !Subtype(a, alt) {
				return false
			}
		}
		return true
	}
	if a.Kind == TIntersection {
		for _, alt := range a.Alts {
			if Subtype(alt, b) {
				return true
			}
		}
		return false
	}

	switch b.Kind {
	case TScalar:
		if a.Kind != TScalar {
			return false
		}
		if a.Scalar == b.Scalar {
			return constrAccepts(b.Constr, a.Constr)
		}
		// numeric widening
		if a.Scalar == SInteger && b.Scalar == SNumber {
			return true
		}
		// dates serialize as strings
		if (a.Scalar == SDate || a.Scalar == SDateTime) && b.Scalar == SString {
			return true
		}
		return false
	case TArray:
		if a.Kind == TTuple {
			for _, it := range a.Items {
				if !Subtype(it, b.Elem) {
					return false
				}
			}
			return true
		}
		return a.Kind == TArray && Subtype(a.Elem, b.Elem)
	case TTuple:
		if a.Kind != TTuple || len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Subtype(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case TObject:
		if a.Kind == TMap {
			// a map can satisfy an open object with compatible prop types
			if !b.Open && len(b.Props) > 0 {
				return false
			}
			for _, p := range b.Props {
				if !Subtype(a.Value, p.Type) {
					return false
				}
			}
			return true
		}
		if a.Kind != TObject {
			return false
		}
		for _, p := range b.Props {
			ap, ok := a.propNamed(p.Name)
			if !ok {
				if b.Required[p.Name] {
					return false
				}
				continue
			}
			if !Subtype(ap.Type, p.Type) {
				return false
			}
		}
		if !b.Open {
			for _, p := range a.Props {
				if _, ok := b.propNamed(p.Name); !ok {
					return false
				}
			}
		}
		return true
	case TMap:
		switch a.Kind {
		case TMap:
			return Subtype(a.Value, b.Value)
		case TObject:
			for _, p := range a.Props {
				if !Subtype(p.Type, b.Value) {
					return false
				}
			}
			return true
		}
		return false
	case TFunction:
		if a.Kind != TFunction || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Subtype(b.Params[i], a.Params[i]) { // contravariant
				return false
			}
		}
		return Subtype(a.Ret, b.Ret) // covariant
	}
	return false
}

// constrAccepts reports whether constraints want (on the expected type)
// accept everything constraints have (on the actual type) could produce.
// Unconstrained expectations accept anything; a constrained expectation
// against an unconstrained actual is rejected only for enums, where the
// value set genuinely shrinks.
func constrAccepts(want, have *Constraints) bool {
	if want == nil {
		return true
	}
	if len(want.Enum) > 0 {
		if have == nil || len(have.Enum) == 0 {
			return false
		}
		for _, hv := range have.Enum {
			found := false
			for _, wv := range want.Enum {
				if Equal(hv, wv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Unify computes the static type of an expression that may produce either
// a or b. Identical types stay put; Integer and Number meet at Number;
// Null widens the other side to nullable; objects unify fieldwise with
// required-ness preserved only when both sides require the field;
// otherwise the result is the Union of both (widening, not LUB collapse).
func Unify(a, b *TypeDef) *TypeDef {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if TypeEqual(a, b) {
		return a
	}
	if a.Kind == TAny || b.Kind == TAny {
		return AnyType
	}
	if a.Kind == TScalar && b.Kind == TScalar {
		if a.Scalar == b.Scalar {
			// same kind, differing constraints: drop the constraints
			return &TypeDef{Kind: TScalar, Scalar: a.Scalar}
		}
		if (a.Scalar == SInteger && b.Scalar == SNumber) || (a.Scalar == SNumber && b.Scalar == SInteger) {
			return NumberType
		}
		if a.Scalar == SNull {
			return Nullable(b)
		}
		if b.Scalar == SNull {
			return Nullable(a)
		}
	}
	if a.Kind == TArray && b.Kind == TArray {
		return ArrayOf(Unify(a.Elem, b.Elem))
	}
	if a.Kind == TObject && b.Kind == TObject {
		out := &TypeDef{Kind: TObject, Required: map[string]bool{}, Open: a.Open || b.Open}
		for _, p := range a.Props {
			if q, ok := b.propNamed(p.Name); ok {
				out.Props = append(out.Props, Prop{
					Name:     p.Name,
					Type:     Unify(p.Type, q.Type),
					Nullable: p.Nullable || q.Nullable,
				})
				out.Required[p.Name] = a.Required[p.Name] && b.Required[p.Name]
			} else {
				out.Props = append(out.Props, p)
				out.Required[p.Name] = false
			}
		}
		for _, q := range b.Props {
			if _, ok := a.propNamed(q.Name); !ok {
				out.Props = append(out.Props, q)
				out.Required[q.Name] = false
			}
		}
		return out
	}
	return UnionOf(a, b)
}

// ShapeOf infers the structural type of a concrete value. Arrays unify
// their element types; objects become closed object types in key order.
func ShapeOf(n Node) *TypeDef {
	switch n.Kind {
	case KNull:
		return NullType
	case KBool:
		return BooleanType
	case KInt:
		return IntegerType
	case KNum:
		return NumberType
	case KStr:
		return StringType
	case KArray:
		var elem *TypeDef
		for _, e := range n.Elems() {
			elem = Unify(elem, ShapeOf(e))
		}
		if elem == nil {
			elem = AnyType
		}
		return ArrayOf(elem)
	case KObject:
		f := n.Fields()
		out := &TypeDef{Kind: TObject, Required: map[string]bool{}}
		for _, k := range f.Keys {
			out.Props = append(out.Props, Prop{Name: k, Type: ShapeOf(f.Entries[k])})
			out.Required[k] = true
		}
		return out
	case KFunc:
		c := n.Data.(*Closure)
		params := make([]*TypeDef, len(c.Params))
		for i := range params {
			params[i] = AnyType
		}
		return FuncType(params, AnyType)
	}
	return AnyType
}
