// builtin_core.go — arrays, objects, and higher-order functions.
package utlx

import (
	"fmt"
	"sort"
	"strings"
)

func registerCoreBuiltins(r *Registry) {
	anyArr := ArrayOf(AnyType)
	fn1 := FuncType([]*TypeDef{AnyType}, AnyType)
	fn2 := FuncType([]*TypeDef{AnyType, AnyType}, AnyType)

	r.Register("map",
		Signature{Params: []*TypeDef{anyArr, fn1}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			f := c.Arg(1)
			out := make([]Node, len(xs))
			for i := range xs {
				out[i] = c.Invoke(f, xs[i])
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "map", `Transform each element of an array.

Params:
  xs: Array — input elements
  f:  (element) => Any

Returns:
  Array — f applied to each element, order preserved`)

	r.Register("filter",
		Signature{Params: []*TypeDef{anyArr, fn1}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			f := c.Arg(1)
			out := []Node{}
			for i := range xs {
				v := c.Invoke(f, xs[i])
				b, ok := v.Truthy()
				if !ok {
					c.Failf("filter predicate must return Bool, got %s", v.Kind)
				}
				if b {
					out = append(out, xs[i])
				}
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "filter", `Keep the elements a predicate accepts.

Params:
  xs: Array
  f:  (element) => Bool

Returns:
  Array — accepted elements, order preserved`)

	r.Register("reduce",
		Signature{Params: []*TypeDef{anyArr, fn2, AnyType}, Ret: AnyType},
		func(c *Call) Node {
			xs := c.Array(0)
			f := c.Arg(1)
			acc := c.Arg(2)
			for i := range xs {
				acc = c.Invoke(f, acc, xs[i])
			}
			return acc
		},
	)
	setBuiltinDoc(r, "reduce", `Fold an array left to right.

Params:
  xs:   Array
  f:    (acc, element) => Any
  init: Any — initial accumulator

Returns:
  Any — the final accumulator (init when xs is empty)`)

	r.Register("count",
		Signature{Params: []*TypeDef{AnyType}, Ret: IntegerType},
		func(c *Call) Node {
			switch a := c.Arg(0); a.Kind {
			case KArray:
				return IntNode(int64(len(a.Elems())))
			case KObject:
				return IntNode(int64(a.Fields().Len()))
			case KStr:
				return IntNode(int64(len([]rune(a.Data.(string)))))
			default:
				c.Failf("count takes an Array, Object or Str, got %s", a.Kind)
			}
			return Node{}
		},
	)

	r.Register("sum",
		Signature{Params: []*TypeDef{ArrayOf(NumberType)}, Ret: NumberType},
		func(c *Call) Node {
			xs := c.Array(0)
			allInt := true
			var fi int64
			var ff float64
			for _, x := range xs {
				switch x.Kind {
				case KInt:
					fi += x.Data.(int64)
					ff += float64(x.Data.(int64))
				case KNum:
					allInt = false
					ff += x.Data.(float64)
				default:
					c.Failf("sum needs numeric elements, got %s", x.Kind)
				}
			}
			if allInt {
				return IntNode(fi)
			}
			return NumNode(ff)
		},
	)
	setBuiltinDoc(r, "sum", `Sum the numbers in an array. Stays Int when every
element is Int, otherwise Num. The empty sum is 0.`)

	r.Register("avg",
		Signature{Params: []*TypeDef{ArrayOf(NumberType)}, Ret: NumberType},
		func(c *Call) Node {
			xs := c.Array(0)
			if len(xs) == 0 {
				c.Fail("avg of an empty array")
			}
			var total float64
			for _, x := range xs {
				if !isNumeric(x) {
					c.Failf("avg needs numeric elements, got %s", x.Kind)
				}
				total += asFloat(x)
			}
			return NumNode(total / float64(len(xs)))
		},
	)

	r.Register("min",
		Signature{Params: []*TypeDef{anyArr}, Ret: AnyType},
		func(c *Call) Node { return extremum(c, true) },
	)
	r.Register("max",
		Signature{Params: []*TypeDef{anyArr}, Ret: AnyType},
		func(c *Call) Node { return extremum(c, false) },
	)
	setBuiltinDoc(r, "min", `Smallest element of a numeric or string array.`)
	setBuiltinDoc(r, "max", `Largest element of a numeric or string array.`)

	r.Register("first",
		Signature{Params: []*TypeDef{anyArr}, Ret: AnyType},
		func(c *Call) Node {
			xs := c.Array(0)
			if len(xs) == 0 {
				return NullNode
			}
			return xs[0]
		},
	)
	r.Register("last",
		Signature{Params: []*TypeDef{anyArr}, Ret: AnyType},
		func(c *Call) Node {
			xs := c.Array(0)
			if len(xs) == 0 {
				return NullNode
			}
			return xs[len(xs)-1]
		},
	)

	r.Register("reverse",
		Signature{Params: []*TypeDef{anyArr}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			out := make([]Node, len(xs))
			for i := range xs {
				out[len(xs)-1-i] = xs[i]
			}
			return ArrNode(out)
		},
	)

	r.Register("distinct",
		Signature{Params: []*TypeDef{anyArr}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			out := []Node{}
			for _, x := range xs {
				dup := false
				for _, have := range out {
					if Equal(have, x) {
						dup = true
						break
					}
				}
				if !dup {
					out = append(out, x)
				}
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "distinct", `Remove duplicates, keeping first occurrences.`)

	r.Register("flatten",
		Signature{Params: []*TypeDef{anyArr}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			out := []Node{}
			for _, x := range xs {
				if x.Kind == KArray {
					out = append(out, x.Elems()...)
				} else {
					out = append(out, x)
				}
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "flatten", `Flatten one level of array nesting.`)

	r.Register("sort",
		Signature{Params: []*TypeDef{anyArr}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			out := append([]Node{}, xs...)
			var bad error
			sort.SliceStable(out, func(i, j int) bool {
				less, err := scalarLess(out[i], out[j])
				if err != nil && bad == nil {
					bad = err
				}
				return less
			})
			if bad != nil {
				c.Fail(bad.Error())
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "sort", `Sort numbers or strings ascending (stable).`)

	r.Register("sortBy",
		Signature{Params: []*TypeDef{anyArr, fn1}, Ret: anyArr},
		func(c *Call) Node {
			xs := c.Array(0)
			f := c.Arg(1)
			keys := make([]Node, len(xs))
			for i := range xs {
				keys[i] = c.Invoke(f, xs[i])
			}
			idx := make([]int, len(xs))
			for i := range idx {
				idx[i] = i
			}
			var bad error
			sort.SliceStable(idx, func(i, j int) bool {
				less, err := scalarLess(keys[idx[i]], keys[idx[j]])
				if err != nil && bad == nil {
					bad = err
				}
				return less
			})
			if bad != nil {
				c.Fail(bad.Error())
			}
			out := make([]Node, len(xs))
			for i, k := range idx {
				out[i] = xs[k]
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "sortBy", `Sort by a derived key (stable).

Params:
  xs: Array
  f:  (element) => Num | Str — the sort key`)

	r.Register("groupBy",
		Signature{Params: []*TypeDef{anyArr, fn1}, Ret: MapOf(anyArr)},
		func(c *Call) Node {
			xs := c.Array(0)
			f := c.Arg(1)
			groups := NewFields()
			for _, x := range xs {
				k := c.Invoke(f, x)
				if k.Kind != KStr {
					c.Failf("groupBy key must be Str, got %s", k.Kind)
				}
				key := k.Data.(string)
				cur, ok := groups.Get(key)
				if !ok {
					cur = ArrNode([]Node{})
				}
				groups.Set(key, ArrNode(append(cur.Elems(), x)))
			}
			return ObjNode(groups)
		},
	)
	setBuiltinDoc(r, "groupBy", `Group elements into an object keyed by a
derived string, first-seen key order.`)

	r.Register("zip",
		Signature{Params: []*TypeDef{anyArr, anyArr}, Ret: anyArr},
		func(c *Call) Node {
			xs, ys := c.Array(0), c.Array(1)
			n := len(xs)
			if len(ys) < n {
				n = len(ys)
			}
			out := make([]Node, n)
			for i := 0; i < n; i++ {
				out[i] = ArrNode([]Node{xs[i], ys[i]})
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "zip", `Pair elements of two arrays ([x, y] pairs); the
longer tail is dropped.`)

	r.Register("range",
		Signature{Params: []*TypeDef{IntegerType, IntegerType}, Ret: ArrayOf(IntegerType)},
		func(c *Call) Node {
			from, to := c.Int(0), c.Int(1)
			if to < from {
				return ArrNode([]Node{})
			}
			out := make([]Node, 0, to-from)
			for i := from; i < to; i++ {
				out = append(out, IntNode(i))
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "range", `Integers in the half-open interval [from, to).`)

	r.Register("keys",
		Signature{Params: []*TypeDef{MapOf(AnyType)}, Ret: ArrayOf(StringType)},
		func(c *Call) Node {
			a := c.Arg(0)
			if a.Kind != KObject {
				c.Failf("keys takes an Object, got %s", a.Kind)
			}
			f := a.Fields()
			out := make([]Node, 0, len(f.Keys))
			for _, k := range f.Keys {
				out = append(out, StrNode(k))
			}
			return ArrNode(out)
		},
	)

	r.Register("values",
		Signature{Params: []*TypeDef{MapOf(AnyType)}, Ret: anyArr},
		func(c *Call) Node {
			a := c.Arg(0)
			if a.Kind != KObject {
				c.Failf("values takes an Object, got %s", a.Kind)
			}
			return ArrNode(childValues(a))
		},
	)

	r.Register("entries",
		Signature{Params: []*TypeDef{MapOf(AnyType)}, Ret: anyArr},
		func(c *Call) Node {
			a := c.Arg(0)
			if a.Kind != KObject {
				c.Failf("entries takes an Object, got %s", a.Kind)
			}
			f := a.Fields()
			out := make([]Node, 0, len(f.Keys))
			for _, k := range f.Keys {
				e := NewFields()
				e.Set("key", StrNode(k))
				e.Set("value", f.Entries[k])
				out = append(out, ObjNode(e))
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "entries", `Object fields as [{key, value}] in order.`)

	r.Register("merge",
		Signature{Params: []*TypeDef{MapOf(AnyType), MapOf(AnyType)}, Ret: MapOf(AnyType)},
		func(c *Call) Node {
			a, b := c.Arg(0), c.Arg(1)
			if a.Kind != KObject || b.Kind != KObject {
				c.Failf("merge takes two Objects, got %s and %s", a.Kind, b.Kind)
			}
			return addNodes(a, b)
		},
	)
	setBuiltinDoc(r, "merge", `Merge two objects; the right side wins on key
collisions, key order is left-then-new.`)

	r.Register("contains",
		Signature{Params: []*TypeDef{AnyType, AnyType}, Ret: BooleanType},
		func(c *Call) Node {
			hay, needle := c.Arg(0), c.Arg(1)
			switch hay.Kind {
			case KArray:
				for _, x := range hay.Elems() {
					if Equal(x, needle) {
						return BoolNode(true)
					}
				}
				return BoolNode(false)
			case KStr:
				if needle.Kind != KStr {
					c.Failf("contains on Str needs a Str needle, got %s", needle.Kind)
				}
				return BoolNode(strings.Contains(hay.Data.(string), needle.Data.(string)))
			case KObject:
				if needle.Kind != KStr {
					c.Failf("contains on Object needs a Str key, got %s", needle.Kind)
				}
				_, ok := hay.Fields().Get(needle.Data.(string))
				return BoolNode(ok)
			}
			c.Failf("contains takes an Array, Str or Object, got %s", hay.Kind)
			return Node{}
		},
	)

	r.Register("isEmpty",
		Signature{Params: []*TypeDef{AnyType}, Ret: BooleanType},
		func(c *Call) Node {
			switch a := c.Arg(0); a.Kind {
			case KNull:
				return BoolNode(true)
			case KArray:
				return BoolNode(len(a.Elems()) == 0)
			case KObject:
				return BoolNode(a.Fields().Len() == 0)
			case KStr:
				return BoolNode(a.Data.(string) == "")
			default:
				return BoolNode(false)
			}
		},
	)

	r.Register("typeOf",
		Signature{Params: []*TypeDef{AnyType}, Ret: StringType},
		func(c *Call) Node { return StrNode(c.Arg(0).Kind.String()) },
	)

	r.Register("default",
		Signature{Params: []*TypeDef{AnyType, AnyType}, Ret: AnyType},
		func(c *Call) Node {
			if c.Arg(0).Kind == KNull {
				return c.Arg(1)
			}
			return c.Arg(0)
		},
	)
	setBuiltinDoc(r, "default", `Replace Null with a fallback; pairs with ?.
navigation: $input?.discount |> default(0).`)
}

func extremum(c *Call, wantMin bool) Node {
	xs := c.Array(0)
	if len(xs) == 0 {
		c.Failf("%s of an empty array", c.Name)
	}
	best := xs[0]
	for _, x := range xs[1:] {
		less, err := scalarLess(x, best)
		if err != nil {
			c.Fail(err.Error())
		}
		if less == wantMin {
			best = x
		}
	}
	return best
}

// scalarLess orders numbers and strings; mixed kinds are an error.
func scalarLess(a, b Node) (bool, error) {
	switch {
	case isNumeric(a) && isNumeric(b):
		return asFloat(a) < asFloat(b), nil
	case a.Kind == KStr && b.Kind == KStr:
		return a.Data.(string) < b.Data.(string), nil
	}
	return false, fmt.Errorf("cannot order %s against %s", a.Kind, b.Kind)
}
