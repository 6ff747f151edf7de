// spans.go — sidecar source spans for S-expression ASTs.
//
// Spans are half-open byte intervals [StartByte, EndByte) into the UTF-8
// source. They live outside the AST: the parser records exactly one Span
// per node in post-order (children before parent, left to right among
// siblings) while it builds the tree, and BuildSpanIndexPostOrder binds
// that flat list to structural node addresses (NodePath). The evaluator
// and the inference engine carry a NodePath while walking and resolve it
// here when a diagnostic needs a source position.
package utlx

import (
	"strconv"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// Span represents a half-open byte interval [StartByte, EndByte) in the
// original source text. Line/column coordinates are derived on demand from
// the source (see OffsetToLineCol).
type Span struct {
	StartByte int // inclusive
	EndByte   int // exclusive
}

// NodePath is a stable structural address into an S-expression AST.
// Each integer selects a child in the node's children array:
//
//	path element k  → child at S[k+1] (since S[0] is the string tag).
//
// Example:
//
//	// ("call", callee, arg0, arg1)
//	path []int{0}   → callee
//	path []int{2}   → arg1
type NodePath []int

// SpanIndex stores a sidecar mapping from NodePath → Span for one AST.
// It is read-only after construction and safe for concurrent reads.
type SpanIndex struct {
	byPath map[string]Span
}

// Get returns the span associated with the given path, if present.
// The boolean is false if the path is unknown or the index is nil.
func (si *SpanIndex) Get(p NodePath) (Span, bool) {
	if si == nil {
		return Span{}, false
	}
	sp, ok := si.byPath[pathKey(p)]
	return sp, ok
}

// BuildSpanIndexPostOrder constructs a SpanIndex by walking the AST in
// post-order and binding each visited node to the next span from the
// provided postorder slice.
//
// Contract: postorder lists exactly one Span per node of root, in
// post-order. Extras are ignored; if it runs short the remaining nodes are
// left unindexed and Get returns (Span{}, false) for them. O(n) time and
// space in the number of AST nodes.
func BuildSpanIndexPostOrder(root S, postorder []Span) *SpanIndex {
	si := &SpanIndex{byPath: make(map[string]Span, len(postorder))}
	bindPostOrder(si, root, postorder)
	return si
}

// OffsetToLineCol maps a byte offset in src to a 1-based line and 0-based
// column, clamping out-of-range offsets.
func OffsetToLineCol(src string, off int) (int, int) {
	if off < 0 {
		off = 0
	}
	if off > len(src) {
		off = len(src)
	}
	line := 1 + strings.Count(src[:off], "\n")
	lastNL := strings.LastIndex(src[:off], "\n")
	if lastNL < 0 {
		return line, off
	}
	return line, off - lastNL - 1
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
//                                 PRIVATE
////////////////////////////////////////////////////////////////////////////////

// pathKey serializes a NodePath to a compact "a.b.c" string used as the map key.
func pathKey(p NodePath) string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, x := range p {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(x))
	}
	return sb.String()
}

// bindPostOrder walks root in post-order, assigning spans from postorder
// to each visited node, in order.
func bindPostOrder(si *SpanIndex, root S, postorder []Span) {
	i := 0
	var walk func(n S, path NodePath)
	walk = func(n S, path NodePath) {
		for ci := 1; ci < len(n); ci++ {
			if child, ok := n[ci].(S); ok {
				walk(child, append(path, ci-1))
			}
		}
		if i < len(postorder) {
			si.byPath[pathKey(path)] = postorder[i]
			i++
		}
	}
	walk(root, nil)
}
