// udm.go — the Universal Data Model: the format-neutral tree every codec
// decodes into and every transformation produces.
//
// A Node is a tagged union over Null/Bool/Int/Num/Str/Array/Object plus a
// runtime-only Func kind for closures. Null is an explicit variant:
// navigation distinguishes "present but null" from "absent" by lookup, not
// by a nil sentinel. Objects keep insertion order (Fields mirrors an
// ordered map). Format-specific extras (XML attributes, namespaces, source
// hints) live in the Meta side-channel so the core model stays uniform
// across formats.
package utlx

import (
	"fmt"
	"sort"
	"strings"
)

// NodeKind discriminates the Node union.
type NodeKind int

const (
	KNull NodeKind = iota
	KBool
	KInt
	KNum
	KStr
	KArray
	KObject
	KFunc // closures; never produced by codecs
)

func (k NodeKind) String() string {
	switch k {
	case KNull:
		return "Null"
	case KBool:
		return "Bool"
	case KInt:
		return "Int"
	case KNum:
		return "Num"
	case KStr:
		return "Str"
	case KArray:
		return "Array"
	case KObject:
		return "Object"
	case KFunc:
		return "Func"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is one value in the Universal Data Model.
//
// Data holds, per kind: nil, bool, int64, float64, string, []Node,
// *Fields, *Closure.
type Node struct {
	Kind NodeKind
	Data any
	Meta *Meta
}

// Meta is the metadata side-channel attached to a Node. All fields are
// optional; a nil *Meta means "no metadata".
type Meta struct {
	Attrs      *Fields // attributes (XML attributes, @keys from object literals)
	Directives *Fields // output directives (!keys), consumed by encoders
	Ns         string  // namespace URI
	Name       string  // original element/column name when it differs from the key
	Hint       string  // source format hint ("json", "xml", "csv", "yaml")
}

// ensureMeta returns n's Meta, allocating it when absent.
func (n *Node) ensureMeta() *Meta {
	if n.Meta == nil {
		n.Meta = &Meta{}
	}
	return n.Meta
}

// Fields is an insertion-ordered string-keyed map of Nodes.
type Fields struct {
	Entries map[string]Node
	Keys    []string
}

// NewFields returns an empty ordered field set.
func NewFields() *Fields {
	return &Fields{Entries: map[string]Node{}}
}

// Set inserts or replaces a field, preserving first-insertion order.
func (f *Fields) Set(key string, v Node) {
	if _, ok := f.Entries[key]; !ok {
		f.Keys = append(f.Keys, key)
	}
	f.Entries[key] = v
}

// Get returns the field and whether it exists.
func (f *Fields) Get(key string) (Node, bool) {
	if f == nil {
		return Node{}, false
	}
	v, ok := f.Entries[key]
	return v, ok
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Keys)
}

// ----- constructors -----

var NullNode = Node{Kind: KNull}

func BoolNode(b bool) Node      { return Node{Kind: KBool, Data: b} }
func IntNode(i int64) Node      { return Node{Kind: KInt, Data: i} }
func NumNode(f float64) Node    { return Node{Kind: KNum, Data: f} }
func StrNode(s string) Node     { return Node{Kind: KStr, Data: s} }
func ArrNode(xs []Node) Node    { return Node{Kind: KArray, Data: xs} }
func ObjNode(f *Fields) Node    { return Node{Kind: KObject, Data: f} }
func FuncNode(c *Closure) Node  { return Node{Kind: KFunc, Data: c} }

// WithMeta returns a copy of n carrying m.
func WithMeta(n Node, m *Meta) Node {
	n.Meta = m
	return n
}

// Elems returns the array elements, or nil for non-arrays.
func (n Node) Elems() []Node {
	if n.Kind != KArray {
		return nil
	}
	return n.Data.([]Node)
}

// Fields returns the object fields, or nil for non-objects.
func (n Node) Fields() *Fields {
	if n.Kind != KObject {
		return nil
	}
	return n.Data.(*Fields)
}

// Truthy reports the boolean value of a Bool node; any other kind is not
// a condition and the caller decides how to fail.
func (n Node) Truthy() (bool, bool) {
	if n.Kind != KBool {
		return false, false
	}
	return n.Data.(bool), true
}

// String renders a node for diagnostics and the REPL (JSON-ish, ordered).
func (n Node) String() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch n.Kind {
	case KNull:
		b.WriteString("null")
	case KBool:
		fmt.Fprintf(b, "%v", n.Data)
	case KInt:
		fmt.Fprintf(b, "%d", n.Data)
	case KNum:
		fmt.Fprintf(b, "%v", n.Data)
	case KStr:
		fmt.Fprintf(b, "%q", n.Data)
	case KArray:
		b.WriteByte('[')
		for i, e := range n.Elems() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, e)
		}
		b.WriteByte(']')
	case KObject:
		f := n.Fields()
		b.WriteByte('{')
		for i, k := range f.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q: ", k)
			writeNode(b, f.Entries[k])
		}
		b.WriteByte('}')
	case KFunc:
		b.WriteString("<function>")
	default:
		fmt.Fprintf(b, "<%v>", n.Kind)
	}
}

// Equal reports deep structural equality. Metadata participates only
// through attributes (namespace and hints are carriers, not values).
func Equal(a, b Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KNull:
		return true
	case KBool:
		return a.Data.(bool) == b.Data.(bool)
	case KInt:
		return a.Data.(int64) == b.Data.(int64)
	case KNum:
		return a.Data.(float64) == b.Data.(float64)
	case KStr:
		return a.Data.(string) == b.Data.(string)
	case KArray:
		xa, xb := a.Elems(), b.Elems()
		if len(xa) != len(xb) {
			return false
		}
		for i := range xa {
			if !Equal(xa[i], xb[i]) {
				return false
			}
		}
		return true
	case KObject:
		fa, fb := a.Fields(), b.Fields()
		if fa.Len() != fb.Len() {
			return false
		}
		for _, k := range fa.Keys {
			vb, ok := fb.Get(k)
			if !ok || !Equal(fa.Entries[k], vb) {
				return false
			}
		}
		return attrsEqual(a.Meta, b.Meta)
	case KFunc:
		return a.Data == b.Data
	}
	return false
}

func attrsEqual(ma, mb *Meta) bool {
	var fa, fb *Fields
	if ma != nil {
		fa = ma.Attrs
	}
	if mb != nil {
		fb = mb.Attrs
	}
	if fa.Len() != fb.Len() {
		return false
	}
	if fa == nil {
		return true
	}
	for _, k := range fa.Keys {
		vb, ok := fb.Get(k)
		if !ok || !Equal(fa.Entries[k], vb) {
			return false
		}
	}
	return true
}

////////////////////////////////////////////////////////////////////////////////
//                              NAVIGATION
////////////////////////////////////////////////////////////////////////////////

// SegKind discriminates path segments.
type SegKind int

const (
	SegName SegKind = iota // .name
	SegIndex               // [i]
	SegWild                // .*
	SegDescend             // ..name
	SegPred                // [cond], evaluated through a callback
)

// Segment is one step of a navigation path.
type Segment struct {
	Kind  SegKind
	Name  string
	Index int
	Pred  func(Node) (bool, error) // SegPred only
}

// ParsePath parses a dotted string path ("a.b[0].*", "..name") into
// segments. Predicates cannot be written in string form; they come from
// the interpreter. Used by the public Select helper and by tests.
func ParsePath(path string) ([]Segment, error) {
	var segs []Segment
	i := 0
	n := len(path)
	for i < n {
		switch {
		case path[i] == '.':
			if i+1 < n && path[i+1] == '.' {
				i += 2
				start := i
				for i < n && path[i] != '.' && path[i] != '[' {
					i++
				}
				if start == i {
					return nil, fmt.Errorf("empty descent name at %d", i)
				}
				segs = append(segs, Segment{Kind: SegDescend, Name: path[start:i]})
				continue
			}
			i++
		case path[i] == '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("unterminated '[' at %d", i)
			}
			idx := 0
			if _, err := fmt.Sscanf(path[i+1:i+j], "%d", &idx); err != nil {
				return nil, fmt.Errorf("bad index %q", path[i+1:i+j])
			}
			segs = append(segs, Segment{Kind: SegIndex, Index: idx})
			i += j + 1
		case path[i] == '*':
			segs = append(segs, Segment{Kind: SegWild})
			i++
		default:
			start := i
			for i < n && path[i] != '.' && path[i] != '[' {
				i++
			}
			segs = append(segs, Segment{Kind: SegName, Name: path[start:i]})
		}
	}
	return segs, nil
}

// GetMember performs a required member access: an absent member or a
// non-object receiver is reported, with the receiver kind in the message.
func GetMember(n Node, name string) (Node, error) {
	if n.Kind != KObject {
		return Node{}, fmt.Errorf("cannot access member %q of %s", name, n.Kind)
	}
	v, ok := n.Fields().Get(name)
	if !ok {
		return Node{}, fmt.Errorf("member %q not found (object has %s)", name, keyList(n.Fields()))
	}
	return v, nil
}

func keyList(f *Fields) string {
	if f.Len() == 0 {
		return "no members"
	}
	ks := f.Keys
	if len(ks) > 6 {
		ks = ks[:6]
	}
	return "members " + strings.Join(ks, ", ")
}

// named pairs a selected node with the key it was selected under. Template
// matching patterns match against this name.
type named struct {
	name string
	node Node
}

// Cursor walks the results of a Select lazily. Next returns nodes one at a
// time; the caller may stop early without visiting the rest. The cursor
// keeps an explicit work stack, so recursive descent over deep trees does
// not recurse on the Go stack.
type Cursor struct {
	segs []Segment
	work []cursorFrame
	err  error
}

type cursorFrame struct {
	n   named
	seg int // index of the next segment to apply
}

// Select starts a lazy navigation of path segments from root. Results are
// produced in document order. An error from a predicate stops the cursor.
func Select(root Node, segs []Segment) *Cursor {
	return &Cursor{
		segs: segs,
		work: []cursorFrame{{n: named{node: root}, seg: 0}},
	}
}

// Next returns the next matching node. ok is false when the walk is done
// or an error occurred (check Err).
func (c *Cursor) Next() (Node, bool) {
	nm, ok := c.nextNamed()
	return nm.node, ok
}

// Err returns the first predicate error, if any.
func (c *Cursor) Err() error { return c.err }

func (c *Cursor) nextNamed() (named, bool) {
	for len(c.work) > 0 && c.err == nil {
		// LIFO with reversed pushes keeps document order.
		f := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]

		if f.seg >= len(c.segs) {
			return f.n, true
		}
		seg := c.segs[f.seg]
		switch seg.Kind {
		case SegName:
			if f.n.node.Kind == KObject {
				if v, ok := f.n.node.Fields().Get(seg.Name); ok {
					c.push(cursorFrame{n: named{name: seg.Name, node: v}, seg: f.seg + 1})
				}
			} else if f.n.node.Kind == KArray {
				// name over an array maps across elements
				elems := f.n.node.Elems()
				for i := len(elems) - 1; i >= 0; i-- {
					c.push(cursorFrame{n: named{name: f.n.name, node: elems[i]}, seg: f.seg})
				}
			}
		case SegIndex:
			if f.n.node.Kind == KArray {
				xs := f.n.node.Elems()
				if seg.Index >= 0 && seg.Index < len(xs) {
					c.push(cursorFrame{n: named{name: f.n.name, node: xs[seg.Index]}, seg: f.seg + 1})
				}
			}
		case SegWild:
			c.pushChildren(f.n.node, f.seg+1)
		case SegDescend:
			// members named seg.Name at any depth, document order
			if f.n.node.Kind == KObject {
				if v, ok := f.n.node.Fields().Get(seg.Name); ok {
					// children first on the stack means the shallower match
					// emits first
					c.pushChildren(f.n.node, f.seg)
					c.push(cursorFrame{n: named{name: seg.Name, node: v}, seg: f.seg + 1})
					continue
				}
			}
			c.pushChildren(f.n.node, f.seg)
		case SegPred:
			ok, err := seg.Pred(f.n.node)
			if err != nil {
				c.err = err
				return named{}, false
			}
			if ok {
				c.push(cursorFrame{n: f.n, seg: f.seg + 1})
			}
		}
	}
	return named{}, false
}

func (c *Cursor) push(f cursorFrame) { c.work = append(c.work, f) }

// pushChildren pushes all children of n in reverse so they pop in document
// order. For descent frames the segment index stays put.
func (c *Cursor) pushChildren(n Node, seg int) {
	switch n.Kind {
	case KObject:
		keys := n.Fields().Keys
		for i := len(keys) - 1; i >= 0; i-- {
			child := n.Fields().Entries[keys[i]]
			c.push(cursorFrame{n: named{name: keys[i], node: child}, seg: seg})
		}
	case KArray:
		xs := n.Elems()
		for i := len(xs) - 1; i >= 0; i-- {
			c.push(cursorFrame{n: named{node: xs[i]}, seg: seg})
		}
	}
}

// SelectAll collects every result of a Select. Convenience for tests and
// builtins that need the full set anyway.
func SelectAll(root Node, segs []Segment) ([]Node, error) {
	cur := Select(root, segs)
	var out []Node
	for {
		n, ok := cur.Next()
		if !ok {
			break
		}
		out = append(out, n)
	}
	return out, cur.Err()
}

// sortedKeys returns the keys of a plain map in stable order; used by
// codecs when the source had no inherent order.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
