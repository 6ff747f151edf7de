// eval_test.go
package utlx

import (
	"strings"
	"testing"
	"time"
)

func evalProgram(t *testing.T, src string, input Node, opts Options) Node {
	t.Helper()
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v\nsource:\n%s", err, src)
	}
	out, err := Evaluate(prog, input, NewRegistry(), opts)
	if err != nil {
		t.Fatalf("Evaluate: %v\nsource:\n%s", err, src)
	}
	return out
}

func evalX(t *testing.T, src string, input Node) Node {
	t.Helper()
	out, err := EvaluateExpr("test", src, input, NewRegistry(), Options{})
	if err != nil {
		t.Fatalf("EvaluateExpr: %v\nsource:\n%s", err, src)
	}
	return out
}

func evalErr(t *testing.T, src string, input Node) *Error {
	t.Helper()
	_, err := EvaluateExpr("test", src, input, NewRegistry(), Options{})
	if err == nil {
		t.Fatalf("expected error\nsource:\n%s", src)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return e
}

func wantNode(t *testing.T, got, want Node) {
	t.Helper()
	if !Equal(got, want) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

// --- whole programs ----------------------------------------------------------

func Test_Eval_SimpleObjectProgram(t *testing.T) {
	src := `%utlx 1.0
%input json
%output json
---
{sum: $input.a + $input.b}
`
	got := evalProgram(t, src, obj("a", IntNode(1), "b", IntNode(2)), Options{})
	wantNode(t, got, obj("sum", IntNode(3)))
}

func Test_Eval_TopLevelLetBindings(t *testing.T) {
	src := `%utlx 1.0
let rate = 0.5
let double = x => x * 2
---
{v: double($input.n) * rate}
`
	got := evalProgram(t, src, obj("n", IntNode(6)), Options{})
	wantNode(t, got, obj("v", NumNode(6.0)))
}

func Test_Eval_PipeMapReduce(t *testing.T) {
	items := arr(
		obj("price", IntNode(1)),
		obj("price", IntNode(4)),
		obj("price", IntNode(10)),
	)
	got := evalX(t, `$input.items |> map(x => x.price) |> reduce((a, b) => a + b, 0)`,
		obj("items", items))
	wantNode(t, got, IntNode(15))
}

// --- navigation ---------------------------------------------------------------

func Test_Eval_RequiredMemberMissingIsPathError(t *testing.T) {
	e := evalErr(t, `$input.missing.field`, obj("present", IntNode(1)))
	if !IsPathError(e) {
		t.Fatalf("kind: %v", e.Kind)
	}
	if !strings.Contains(e.Msg, "missing") {
		t.Fatalf("message should name the member: %s", e.Msg)
	}
}

func Test_Eval_SafeNavigationReadsNull(t *testing.T) {
	in := obj("present", IntNode(1))
	wantNode(t, evalX(t, `$input?.missing`, in), NullNode)
	wantNode(t, evalX(t, `$input?.missing?.deeper`, in), NullNode)
	wantNode(t, evalX(t, `$input?.present`, in), IntNode(1))
}

func Test_Eval_MemberAccessMapsOverArrays(t *testing.T) {
	in := obj("items", arr(obj("n", IntNode(1)), obj("n", IntNode(2))))
	wantNode(t, evalX(t, `$input.items.n`, in), arr(IntNode(1), IntNode(2)))
}

func Test_Eval_Indexing(t *testing.T) {
	in := obj("xs", arr(StrNode("a"), StrNode("b")))
	wantNode(t, evalX(t, `$input.xs[1]`, in), StrNode("b"))
	e := evalErr(t, `$input.xs[5]`, in)
	if !IsPathError(e) || !strings.Contains(e.Msg, "out of bounds") {
		t.Fatalf("index error: %v", e)
	}
}

func Test_Eval_PredicateBindsContext(t *testing.T) {
	in := obj("items", arr(
		obj("sku", StrNode("A"), "price", IntNode(5)),
		obj("sku", StrNode("B"), "price", IntNode(25)),
	))
	got := evalX(t, `$input.items[$.price > 10]`, in)
	wantNode(t, got, arr(obj("sku", StrNode("B"), "price", IntNode(25))))
	// no survivors is an empty array, not an error
	wantNode(t, evalX(t, `$input.items[$.price > 100]`, in), ArrNode([]Node{}))
}

func Test_Eval_WildcardAndDescent(t *testing.T) {
	in := obj("o", obj("a", IntNode(1), "b", IntNode(2)),
		"deep", obj("x", obj("price", IntNode(7))))
	wantNode(t, evalX(t, `$input.o.*`, in), arr(IntNode(1), IntNode(2)))
	wantNode(t, evalX(t, `$input..price`, in), arr(IntNode(7)))
	wantNode(t, evalX(t, `$input..nothing`, in), ArrNode([]Node{}))
}

func Test_Eval_AttributesAndMeta(t *testing.T) {
	attrs := NewFields()
	attrs.Set("currency", StrNode("EUR"))
	order := obj("total", IntNode(100))
	order.Meta = &Meta{Attrs: attrs, Ns: "urn:orders", Hint: "xml"}
	in := obj("order", order)
	wantNode(t, evalX(t, `$input.order.@currency`, in), StrNode("EUR"))
	// absent attributes read as Null
	wantNode(t, evalX(t, `$input.order.@nope`, in), NullNode)
	wantNode(t, evalX(t, `$input.order.^ns`, in), StrNode("urn:orders"))
	wantNode(t, evalX(t, `$input.order.^hint`, in), StrNode("xml"))
	wantNode(t, evalX(t, `$input.order.^name`, in), NullNode)
}

// --- operators ------------------------------------------------------------------

func Test_Eval_PlusOverloads(t *testing.T) {
	wantNode(t, evalX(t, `1 + 2`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `1 + 2.5`, NullNode), NumNode(3.5))
	wantNode(t, evalX(t, `"a" + "b"`, NullNode), StrNode("ab"))
	wantNode(t, evalX(t, `[1] + [2, 3]`, NullNode), arr(IntNode(1), IntNode(2), IntNode(3)))
	// object merge, right side wins
	got := evalX(t, `{a: 1, b: 2} + {b: 9, c: 3}`, NullNode)
	wantNode(t, got, obj("a", IntNode(1), "b", IntNode(9), "c", IntNode(3)))
	e := evalErr(t, `1 + "x"`, NullNode)
	if !strings.Contains(e.Msg, "cannot add") {
		t.Fatalf("mixed add: %v", e)
	}
}

func Test_Eval_IntDivisionPromotes(t *testing.T) {
	wantNode(t, evalX(t, `10 / 2`, NullNode), IntNode(5))
	wantNode(t, evalX(t, `7 / 2`, NullNode), NumNode(3.5))
	wantNode(t, evalX(t, `7.0 / 2`, NullNode), NumNode(3.5))
	wantNode(t, evalX(t, `7 % 3`, NullNode), IntNode(1))
	if e := evalErr(t, `1 / 0`, NullNode); !strings.Contains(e.Msg, "division by zero") {
		t.Fatalf("div by zero: %v", e)
	}
	if e := evalErr(t, `7.5 % 2`, NullNode); !strings.Contains(e.Msg, "Int") {
		t.Fatalf("float modulo: %v", e)
	}
}

func Test_Eval_ComparisonAndEquality(t *testing.T) {
	wantNode(t, evalX(t, `1 < 2.5`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `"a" < "b"`, NullNode), BoolNode(true))
	wantNode(t, evalX(t, `1 == 1`, NullNode), BoolNode(true))
	// Int and Num are distinct values under ==
	wantNode(t, evalX(t, `1 == 1.0`, NullNode), BoolNode(false))
	wantNode(t, evalX(t, `[1, 2] == [1, 2]`, NullNode), BoolNode(true))
	if e := evalErr(t, `1 < "a"`, NullNode); !strings.Contains(e.Msg, "compare") {
		t.Fatalf("mixed compare: %v", e)
	}
}

func Test_Eval_BooleanShortCircuit(t *testing.T) {
	// the right side would fail if evaluated
	wantNode(t, evalX(t, `false and (1 / 0 == 0)`, NullNode), BoolNode(false))
	wantNode(t, evalX(t, `true or (1 / 0 == 0)`, NullNode), BoolNode(true))
	if e := evalErr(t, `1 and true`, NullNode); !strings.Contains(e.Msg, "Bool") {
		t.Fatalf("non-bool operand: %v", e)
	}
}

func Test_Eval_IfRequiresBool(t *testing.T) {
	wantNode(t, evalX(t, `if (1 < 2) "y" else "n"`, NullNode), StrNode("y"))
	if e := evalErr(t, `if (1) 1 else 2`, NullNode); !strings.Contains(e.Msg, "Bool") {
		t.Fatalf("if condition: %v", e)
	}
}

// --- pipes, lambdas, lets ------------------------------------------------------

func Test_Eval_PipeForms(t *testing.T) {
	in := obj("xs", arr(IntNode(3), IntNode(1), IntNode(2)))
	// bare function reference
	wantNode(t, evalX(t, `$input.xs |> sum`, in), IntNode(6))
	// call with extra args threads lhs first
	wantNode(t, evalX(t, `$input.xs |> sort() |> first()`, in), IntNode(1))
	// lambda on the right
	wantNode(t, evalX(t, `5 |> (x => x * 2)`, NullNode), IntNode(10))
	if e := evalErr(t, `5 |> 3`, NullNode); !strings.Contains(e.Msg, "|>") {
		t.Fatalf("pipe rhs: %v", e)
	}
}

func Test_Eval_LetShadowingAndClosures(t *testing.T) {
	wantNode(t, evalX(t, `let x = 1 in let x = x + 1 in x`, NullNode), IntNode(2))
	wantNode(t, evalX(t,
		`let mk = n => (x => x + n) in let add3 = mk(3) in add3(10)`,
		NullNode), IntNode(13))
}

func Test_Eval_UndefinedNames(t *testing.T) {
	if e := evalErr(t, `$nope`, NullNode); !strings.Contains(e.Msg, "$nope") {
		t.Fatalf("undefined variable: %v", e)
	}
	if e := evalErr(t, `nope(1)`, NullNode); !strings.Contains(e.Msg, "nope") {
		t.Fatalf("unknown function: %v", e)
	}
}

func Test_Eval_CallDepthBounded(t *testing.T) {
	src := `let loop = x => loop(x) in loop(1)`
	_, err := EvaluateExpr("test", src, NullNode, NewRegistry(), Options{MaxDepth: 32})
	if err == nil || !strings.Contains(err.Error(), "depth") {
		t.Fatalf("depth bound: %v", err)
	}
}

// --- match ---------------------------------------------------------------------

func Test_Eval_MatchLiteralsAndWildcard(t *testing.T) {
	src := `match $input.kind {
  "order" => 1,
  "invoice" => 2,
  _ => 0
}`
	wantNode(t, evalX(t, src, obj("kind", StrNode("invoice"))), IntNode(2))
	wantNode(t, evalX(t, src, obj("kind", StrNode("other"))), IntNode(0))
	e := evalErr(t, `match 3 { 1 => "a", 2 => "b" }`, NullNode)
	if !strings.Contains(e.Msg, "no match") {
		t.Fatalf("exhausted match: %v", e)
	}
}

// --- objects -------------------------------------------------------------------

func Test_Eval_ObjectConstruction(t *testing.T) {
	got := evalX(t, `{b: 2, a: 1, ("k" + "ey"): 3}`, NullNode)
	f := got.Fields()
	if f.Keys[0] != "b" || f.Keys[1] != "a" || f.Keys[2] != "key" {
		t.Fatalf("field order: %v", f.Keys)
	}
	if e := evalErr(t, `{(1): 2}`, NullNode); !strings.Contains(e.Msg, "Str") {
		t.Fatalf("dynamic key type: %v", e)
	}
}

func Test_Eval_AttrAndDirectiveFieldsGoToMeta(t *testing.T) {
	got := evalX(t, `{@currency: "EUR", !cdata: true, total: 5}`, NullNode)
	if got.Fields().Len() != 1 {
		t.Fatalf("only plain fields are members: %v", got.Fields().Keys)
	}
	cur, ok := got.Meta.Attrs.Get("currency")
	if !ok || cur.Data.(string) != "EUR" {
		t.Fatalf("attr: %v", got.Meta)
	}
	cd, ok := got.Meta.Directives.Get("cdata")
	if !ok || cd.Data.(bool) != true {
		t.Fatalf("directive: %v", got.Meta)
	}
}

// --- templates -----------------------------------------------------------------

const templateDoc = `%utlx 1.0
---
template "order" => {id: .sku, total: .qty * .price},
template "*" => {other: $}
`

func Test_Eval_TemplatesFirstMatchWins(t *testing.T) {
	in := obj("order", obj("sku", StrNode("A"), "qty", IntNode(2), "price", IntNode(10)))
	got := evalProgram(t, templateDoc, in, Options{})
	wantNode(t, got, obj("id", StrNode("A"), "total", IntNode(20)))
}

func Test_Eval_TemplatesApplyInDeclarationOrder(t *testing.T) {
	// a later "*" rule never steals nodes an earlier named rule matches
	src := `%utlx 1.0
---
template "*" => "star",
template "order" => "named"
`
	in := obj("order", obj())
	got := evalProgram(t, src, in, Options{})
	wantNode(t, got, StrNode("star"))
}

func Test_Eval_TemplatesMapOverArrayChildren(t *testing.T) {
	in := obj("order", arr(
		obj("sku", StrNode("A"), "qty", IntNode(1), "price", IntNode(3)),
		obj("sku", StrNode("B"), "qty", IntNode(2), "price", IntNode(4)),
	))
	got := evalProgram(t, templateDoc, in, Options{})
	wantNode(t, got, arr(
		obj("id", StrNode("A"), "total", IntNode(3)),
		obj("id", StrNode("B"), "total", IntNode(8)),
	))
}

func Test_Eval_TemplatePolicies(t *testing.T) {
	src := `%utlx 1.0
---
template "known" => 1
`
	in := obj("known", obj(), "unknown", StrNode("x"))
	if _, err := func() (Node, error) {
		prog, _ := Parse("test", src)
		return Evaluate(prog, in, NewRegistry(), Options{Templates: TemplatesStrict})
	}(); err == nil || !strings.Contains(err.Error(), "no template rule") {
		t.Fatalf("strict policy: %v", err)
	}
	got := evalProgram(t, src, in, Options{Templates: TemplatesIdentity})
	wantNode(t, got, arr(IntNode(1), StrNode("x")))
	got = evalProgram(t, src, in, Options{Templates: TemplatesSkip})
	wantNode(t, got, IntNode(1))
}

func Test_Eval_ApplyRecursesIntoRules(t *testing.T) {
	src := `%utlx 1.0
---
template "order" => {lines: apply("item")},
template "item" => .sku
`
	in := obj("order", obj("item", arr(
		obj("sku", StrNode("A")),
		obj("sku", StrNode("B")),
	)))
	got := evalProgram(t, src, in, Options{})
	wantNode(t, got, obj("lines", arr(StrNode("A"), StrNode("B"))))
}

func Test_Eval_ApplyOutsideTemplatesFails(t *testing.T) {
	e := evalErr(t, `apply("x")`, obj("x", IntNode(1)))
	if !strings.Contains(e.Msg, "apply") {
		t.Fatalf("apply outside templates: %v", e)
	}
}

// --- clock pinning --------------------------------------------------------------

func Test_Eval_PinnedClock(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	opts := Options{Now: func() time.Time { return fixed }}
	out, err := EvaluateExpr("test", `now()`, NullNode, NewRegistry(), opts)
	if err != nil {
		t.Fatalf("now(): %v", err)
	}
	if out.Data.(string) != "2025-03-14T09:26:53Z" {
		t.Fatalf("pinned now: %v", out)
	}
	out, err = EvaluateExpr("test", `today()`, NullNode, NewRegistry(), opts)
	if err != nil || out.Data.(string) != "2025-03-14" {
		t.Fatalf("pinned today: %v %v", out, err)
	}
}

// --- error positions -------------------------------------------------------------

func Test_Eval_ErrorsCarryPositions(t *testing.T) {
	src := `%utlx 1.0
---
{v: $input.absent}
`
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Evaluate(prog, obj(), NewRegistry(), Options{})
	e, ok := err.(*Error)
	if !ok || !IsPathError(e) {
		t.Fatalf("expected path error: %v", err)
	}
	if e.Line != 3 {
		t.Fatalf("error line: %d", e.Line)
	}
}
