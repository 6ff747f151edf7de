// builtin_core_test.go
package utlx

import (
	"strings"
	"testing"
)

func wantArgErr(t *testing.T, src string, frag string) {
	t.Helper()
	e := evalErr(t, src, NullNode)
	if e.Kind != DiagArg {
		t.Fatalf("kind: %v (%s)", e.Kind, e.Msg)
	}
	if !strings.Contains(e.Msg, frag) {
		t.Fatalf("error should mention %q: %s", frag, e.Msg)
	}
}

func Test_Builtin_MapFilterReduce(t *testing.T) {
	wantNode(t, evalX(t, `map([1, 2, 3], x => x * x)`, NullNode),
		arr(IntNode(1), IntNode(4), IntNode(9)))
	wantNode(t, evalX(t, `filter([1, 2, 3, 4], x => x > 2)`, NullNode),
		arr(IntNode(3), IntNode(4)))
	wantNode(t, evalX(t, `reduce([1, 2, 3], (a, b) => a + b, 10)`, NullNode),
		IntNode(16))
	// the empty fold returns the initial accumulator
	wantNode(t, evalX(t, `reduce([], (a, b) => a + b, 0)`, NullNode), IntNode(0))
	wantArgErr(t, `filter([1], x => x)`, "must return Bool")
	wantArgErr(t, `map([1], 2)`, "argument 2 of map")
}

func Test_Builtin_CountAndIsEmpty(t *testing.T) {
	wantNode(t, evalX(t, `count([1, 2, 3])`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `count({a: 1, b: 2})`, NullNode), IntNode(2))
	// strings count runes, not bytes
	wantNode(t, evalX(t, `count("héllo")`, NullNode), IntNode(5))
	wantArgErr(t, `count(42)`, "count")

	wantNode(t, evalX(t, `isEmpty([])`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `isEmpty({})`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `isEmpty("")`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `isEmpty(null)`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `isEmpty(0)`, NullNode), BoolNode(false))
	wantNode(t, evalX(t, `isEmpty([0])`, NullNode), BoolNode(false))
}

func Test_Builtin_SumAvgMinMax(t *testing.T) {
	// sum stays Int for all-Int input and promotes otherwise
	wantNode(t, evalX(t, `sum([1, 2, 3])`, NullNode), IntNode(6))
	wantNode(t, evalX(t, `sum([1, 2.5])`, NullNode), NumNode(3.5))
	wantNode(t, evalX(t, `sum([])`, NullNode), IntNode(0))
	wantNode(t, evalX(t, `avg([1, 2, 3, 4])`, NullNode), NumNode(2.5))
	wantArgErr(t, `avg([])`, "empty")

	wantNode(t, evalX(t, `min([3, 1, 2])`, NullNode), IntNode(1))
	wantNode(t, evalX(t, `max([3, 1, 2.5])`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `min(["pear", "apple"])`, NullNode), StrNode("apple"))
	wantArgErr(t, `min([])`, "empty")
	wantArgErr(t, `max([1, "a"])`, "cannot order")
}

func Test_Builtin_FirstLastReverse(t *testing.T) {
	wantNode(t, evalX(t, `first([7, 8])`, NullNode), IntNode(7))
	wantNode(t, evalX(t, `last([7, 8])`, NullNode), IntNode(8))
	// empty arrays yield Null rather than failing
	wantNode(t, evalX(t, `first([])`, NullNode), NullNode)
	wantNode(t, evalX(t, `last([])`, NullNode), NullNode)
	wantNode(t, evalX(t, `reverse([1, 2, 3])`, NullNode),
		arr(IntNode(3), IntNode(2), IntNode(1)))
}

func Test_Builtin_DistinctAndFlatten(t *testing.T) {
	wantNode(t, evalX(t, `distinct([1, 2, 1, 3, 2])`, NullNode),
		arr(IntNode(1), IntNode(2), IntNode(3)))
	// structural equality, so equal objects deduplicate too
	wantNode(t, evalX(t, `distinct([{a: 1}, {a: 1}])`, NullNode),
		arr(obj("a", IntNode(1))))
	// Int and Num never compare equal
	wantNode(t, evalX(t, `distinct([1, 1.0])`, NullNode),
		arr(IntNode(1), NumNode(1.0)))

	// one level only
	wantNode(t, evalX(t, `flatten([[1, 2], 3, [[4]]])`, NullNode),
		arr(IntNode(1), IntNode(2), IntNode(3), arr(IntNode(4))))
}

func Test_Builtin_SortAndSortBy(t *testing.T) {
	wantNode(t, evalX(t, `sort([3, 1.5, 2])`, NullNode),
		arr(NumNode(1.5), IntNode(2), IntNode(3)))
	wantNode(t, evalX(t, `sort(["b", "a"])`, NullNode),
		arr(StrNode("a"), StrNode("b")))
	wantArgErr(t, `sort([1, "a"])`, "cannot order")

	got := evalX(t, `sortBy([{n: "b", v: 2}, {n: "a", v: 1}], x => x.n)`, NullNode)
	wantNode(t, got, arr(
		obj("n", StrNode("a"), "v", IntNode(1)),
		obj("n", StrNode("b"), "v", IntNode(2)),
	))
	// stability: equal keys keep input order
	got = evalX(t, `sortBy([{k: 1, i: 1}, {k: 1, i: 2}], x => x.k)`, NullNode)
	wantNode(t, got, arr(
		obj("k", IntNode(1), "i", IntNode(1)),
		obj("k", IntNode(1), "i", IntNode(2)),
	))
}

func Test_Builtin_GroupBy(t *testing.T) {
	got := evalX(t, `groupBy([1, 2, 3, 4], x => if (x > 2) "big" else "small")`, NullNode)
	want := obj(
		"small", arr(IntNode(1), IntNode(2)),
		"big", arr(IntNode(3), IntNode(4)),
	)
	wantNode(t, got, want)
	// keys appear in first-seen order
	if got.Fields().Keys[0] != "small" {
		t.Fatalf("key order: %v", got.Fields().Keys)
	}
	wantArgErr(t, `groupBy([1], x => x)`, "key must be Str")
}

func Test_Builtin_ZipAndRange(t *testing.T) {
	wantNode(t, evalX(t, `zip([1, 2, 3], ["a", "b"])`, NullNode),
		arr(arr(IntNode(1), StrNode("a")), arr(IntNode(2), StrNode("b"))))
	wantNode(t, evalX(t, `range(2, 5)`, NullNode),
		arr(IntNode(2), IntNode(3), IntNode(4)))
	wantNode(t, evalX(t, `range(5, 2)`, NullNode), arr())
}

func Test_Builtin_ObjectHelpers(t *testing.T) {
	wantNode(t, evalX(t, `keys({b: 1, a: 2})`, NullNode),
		arr(StrNode("b"), StrNode("a")))
	wantNode(t, evalX(t, `values({b: 1, a: 2})`, NullNode),
		arr(IntNode(1), IntNode(2)))
	wantNode(t, evalX(t, `entries({a: 1})`, NullNode),
		arr(obj("key", StrNode("a"), "value", IntNode(1))))
	// the right side wins on collisions, key order is left-then-new
	got := evalX(t, `merge({a: 1, b: 2}, {b: 9, c: 3})`, NullNode)
	wantNode(t, got, obj("a", IntNode(1), "b", IntNode(9), "c", IntNode(3)))
	if got.Fields().Keys[1] != "b" {
		t.Fatalf("merge key order: %v", got.Fields().Keys)
	}
	wantArgErr(t, `keys([1])`, "Object")
}

func Test_Builtin_Contains(t *testing.T) {
	wantNode(t, evalX(t, `contains([1, 2], 2)`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `contains([1, 2], 3)`, NullNode), BoolNode(false))
	wantNode(t, evalX(t, `contains("hello", "ell")`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `contains({a: 1}, "a")`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `contains({a: 1}, "b")`, NullNode), BoolNode(false))
	wantArgErr(t, `contains(5, 5)`, "contains")
}

func Test_Builtin_TypeOfAndDefault(t *testing.T) {
	for src, want := range map[string]string{
		`typeOf(null)`:  "Null",
		`typeOf(true)`:  "Bool",
		`typeOf(1)`:     "Int",
		`typeOf(1.5)`:   "Num",
		`typeOf("x")`:   "Str",
		`typeOf([])`:    "Array",
		`typeOf({})`:    "Object",
		`typeOf(x => x)`: "Func",
	} {
		wantNode(t, evalX(t, src, NullNode), StrNode(want))
	}
	wantNode(t, evalX(t, `default(null, 5)`, NullNode), IntNode(5))
	wantNode(t, evalX(t, `default(3, 5)`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `$input?.ghost |> default("n/a")`, obj("a", IntNode(1))),
		StrNode("n/a"))
}

func Test_Builtin_ArityChecking(t *testing.T) {
	e := evalErr(t, `sum([1], [2])`, NullNode)
	if e.Kind != DiagArg || !strings.Contains(e.Msg, "sum takes 1 arguments") {
		t.Fatalf("arity error: %v", e)
	}
	wantArgErr(t, `sum("x")`, "argument 1 of sum")
}
