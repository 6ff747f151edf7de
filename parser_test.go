// parser_test.go
package utlx

import (
	"reflect"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func parseE(t *testing.T, src string) S {
	t.Helper()
	e, _, err := ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr error: %v\nsource:\n%s", err, src)
	}
	return e
}

func wantAST(t *testing.T, src string, want S) {
	t.Helper()
	got := parseE(t, src)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("\nsource:\n%s\nwant:\n%v\ngot:\n%v\n", src, want, got)
	}
}

func mustIncomplete(t *testing.T, src string) {
	t.Helper()
	_, err := ParseExprInteractive(src)
	if err == nil || !IsIncomplete(err) {
		t.Fatalf("expected incomplete diagnostic, got %v\nsource:\n%s", err, src)
	}
}

// --- expressions -----------------------------------------------------------

func Test_Parser_Literals(t *testing.T) {
	wantAST(t, `42`, L("int", int64(42)))
	wantAST(t, `3.5`, L("num", 3.5))
	wantAST(t, `"hi"`, L("str", "hi"))
	wantAST(t, `true`, L("bool", true))
	wantAST(t, `null`, L("null"))
	wantAST(t, `$input`, L("var", "input"))
	wantAST(t, `$`, L("context"))
}

func Test_Parser_Precedence(t *testing.T) {
	// * binds tighter than +
	wantAST(t, `1 + 2 * 3`, L("binop", "+",
		L("int", int64(1)),
		L("binop", "*", L("int", int64(2)), L("int", int64(3))),
	))
	// comparisons bind tighter than and, and tighter than or
	wantAST(t, `a < b and c or d`, L("binop", "or",
		L("binop", "and",
			L("binop", "<", L("id", "a"), L("id", "b")),
			L("id", "c")),
		L("id", "d"),
	))
	// unary minus binds tighter than *
	wantAST(t, `-a * b`, L("binop", "*",
		L("unop", "-", L("id", "a")),
		L("id", "b"),
	))
	// grouping overrides
	wantAST(t, `(1 + 2) * 3`, L("binop", "*",
		L("binop", "+", L("int", int64(1)), L("int", int64(2))),
		L("int", int64(3)),
	))
}

func Test_Parser_PipeIsLeftAssociativeAndLoosest(t *testing.T) {
	wantAST(t, `a |> f |> g`, L("binop", "|>",
		L("binop", "|>", L("id", "a"), L("id", "f")),
		L("id", "g"),
	))
	wantAST(t, `a + b |> f`, L("binop", "|>",
		L("binop", "+", L("id", "a"), L("id", "b")),
		L("id", "f"),
	))
}

func Test_Parser_Navigation(t *testing.T) {
	wantAST(t, `$input.items[0].price`,
		L("get",
			L("idx",
				L("get", L("var", "input"), L("str", "items")),
				L("int", int64(0))),
			L("str", "price")))
	wantAST(t, `$input?.maybe`, L("sget", L("var", "input"), L("str", "maybe")))
	wantAST(t, `$input..price`, L("desc", L("var", "input"), L("str", "price")))
	wantAST(t, `$input.*`, L("wild", L("var", "input")))
	wantAST(t, `$o.@currency`, L("attr", L("var", "o"), L("str", "currency")))
	wantAST(t, `$o.^source`, L("meta", L("var", "o"), L("str", "source")))
	// quoted member names for keys that are not identifiers
	wantAST(t, `$input."odd key"`, L("get", L("var", "input"), L("str", "odd key")))
}

func Test_Parser_BarePathsUseContext(t *testing.T) {
	wantAST(t, `.name`, L("get", L("context"), L("str", "name")))
	wantAST(t, `$.name`, L("get", L("context"), L("str", "name")))
	wantAST(t, `?.name`, L("sget", L("context"), L("str", "name")))
	wantAST(t, `..price`, L("desc", L("context"), L("str", "price")))
	wantAST(t, `@currency`, L("attr", L("context"), L("str", "currency")))
}

func Test_Parser_PredicateVsIndex(t *testing.T) {
	// an integer literal inside brackets is an index
	wantAST(t, `xs[2]`, L("idx", L("id", "xs"), L("int", int64(2))))
	// anything else is a predicate
	wantAST(t, `xs[$.price > 10]`,
		L("pred", L("id", "xs"),
			L("binop", ">",
				L("get", L("context"), L("str", "price")),
				L("int", int64(10)))))
}

func Test_Parser_CallsNeedTightParen(t *testing.T) {
	wantAST(t, `f(1, 2)`, L("call", L("id", "f"), L("int", int64(1)), L("int", int64(2))))
	// whitespace before '(' makes it grouping, so this is two expressions
	if _, _, err := ParseExpr(`f (1)`); err == nil {
		t.Fatal("expected trailing-input error for f (1)")
	}
}

func Test_Parser_Lambdas(t *testing.T) {
	wantAST(t, `x => x + 1`,
		L("lambda", L("params", "x"),
			L("binop", "+", L("id", "x"), L("int", int64(1)))))
	wantAST(t, `(a, b) => a`,
		L("lambda", L("params", "a", "b"), L("id", "a")))
	wantAST(t, `() => 1`,
		L("lambda", L("params"), L("int", int64(1))))
	// lambda body extends through following operators
	wantAST(t, `x => x * 2 + 1`,
		L("lambda", L("params", "x"),
			L("binop", "+",
				L("binop", "*", L("id", "x"), L("int", int64(2))),
				L("int", int64(1)))))
}

func Test_Parser_ObjectEntries(t *testing.T) {
	wantAST(t, `{name: 1, "odd key": 2, @attr: 3, !pretty: false, (k): 4}`,
		L("object",
			L("field", L("str", "name"), L("int", int64(1))),
			L("field", L("str", "odd key"), L("int", int64(2))),
			L("attrfield", L("str", "attr"), L("int", int64(3))),
			L("dirfield", L("str", "pretty"), L("bool", false)),
			L("dynfield", L("id", "k"), L("int", int64(4)))))
	wantAST(t, `{}`, L("object"))
}

func Test_Parser_NotAfterCommaStaysAnOperator(t *testing.T) {
	// a comma separates array elements and call arguments too; only object
	// entries turn !name into a directive key
	wantAST(t, `[true, !false]`,
		L("array",
			L("bool", true),
			L("unop", "not", L("bool", false))))
	wantAST(t, `f(a, !b)`,
		L("call", L("id", "f"),
			L("id", "a"),
			L("unop", "not", L("id", "b"))))
	// the directive form after a comma still works
	wantAST(t, `{!pretty: true, !cdata: !done}`,
		L("object",
			L("dirfield", L("str", "pretty"), L("bool", true)),
			L("dirfield", L("str", "cdata"), L("unop", "not", L("id", "done")))))
}

func Test_Parser_IfMatchLet(t *testing.T) {
	wantAST(t, `if (a) 1 else 2`,
		L("if", L("id", "a"), L("int", int64(1)), L("int", int64(2))))
	wantAST(t, `match s { "a" => 1, -2 => 2, _ => 0 }`,
		L("match", L("id", "s"),
			L("case", L("str", "a"), L("int", int64(1))),
			L("case", L("int", int64(-2)), L("int", int64(2))),
			L("case", L("wild"), L("int", int64(0)))))
	wantAST(t, `let a = 1, b = 2 in a + b`,
		L("let",
			L("bind", L("str", "a"), L("int", int64(1))),
			L("bind", L("str", "b"), L("int", int64(2))),
			L("binop", "+", L("id", "a"), L("id", "b"))))
}

func Test_Parser_IfRequiresElse(t *testing.T) {
	if _, _, err := ParseExpr(`if (a) 1`); err == nil {
		t.Fatal("expected error for if without else")
	}
}

// --- programs --------------------------------------------------------------

func Test_Parser_Program(t *testing.T) {
	src := `%utlx 1.0
%input json
%output xml

let rate = 0.2
let base = 100

---
{total: base * (1.0 + rate)}
`
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if prog.Version != "1.0" || prog.Input != FormatJSON || prog.Output != FormatXML {
		t.Fatalf("header: %s %v %v", prog.Version, prog.Input, prog.Output)
	}
	binds := prog.Binds()
	if binds[0] != "binds" || len(binds) != 3 {
		t.Fatalf("binds shape: %v", binds)
	}
	first := binds[1].(S)
	if first[1].(S)[1].(string) != "rate" {
		t.Fatalf("first binding name: %v", first[1])
	}
	if prog.Body()[0] != "object" {
		t.Fatalf("body tag: %v", prog.Body()[0])
	}
}

func Test_Parser_HeaderDefaultsToJSON(t *testing.T) {
	prog, err := Parse("test", "%utlx 1.0\n---\n1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if prog.Input != FormatJSON || prog.Output != FormatJSON {
		t.Fatalf("formats: %v %v", prog.Input, prog.Output)
	}
}

func Test_Parser_TemplatesBody(t *testing.T) {
	src := `%utlx 1.0
---
template "Order" => {id: .id},
template "*" => $
`
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := prog.Body()
	if body[0] != "templates" || len(body) != 3 {
		t.Fatalf("templates shape: %v", body)
	}
	r1 := body[1].(S)
	if r1[0] != "template" || r1[1].(S)[1].(string) != "Order" {
		t.Fatalf("first rule: %v", r1)
	}
	r2 := body[2].(S)
	if r2[1].(S)[1].(string) != "*" {
		t.Fatalf("second rule pattern: %v", r2[1])
	}
}

func Test_Parser_ProgramErrors(t *testing.T) {
	for _, src := range []string{
		"---\n1",                         // missing %utlx
		"%utlx 1.0\n1",                   // missing separator
		"%utlx 1.0\n---\n1 2",            // trailing input
		"%utlx 1.0\n%input nope\n---\n1", // unknown format
		"%utlx 1.0\n%wat 1\n---\n1",      // unknown directive
	} {
		if _, err := Parse("test", src); err == nil {
			t.Fatalf("expected parse error for %q", src)
		}
	}
}

func Test_Parser_IncompleteInteractive(t *testing.T) {
	mustIncomplete(t, `{a: 1,`)
	mustIncomplete(t, `[1, 2`)
	mustIncomplete(t, `let a = 1 in`)
	mustIncomplete(t, `match s {`)
	mustIncomplete(t, `(x, y) =>`)
	// genuinely malformed input is still a hard parse error
	if _, err := ParseExprInteractive(`1 + ) 2`); err == nil || IsIncomplete(err) {
		t.Fatalf("malformed input reported as incomplete: %v", err)
	}
}

// --- spans -----------------------------------------------------------------

func Test_Parser_SpanIndexCoversEveryNode(t *testing.T) {
	src := `$input.items[$.price > 10] |> map(x => {n: x.name})`
	e, spans, err := ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	var walk func(n S, path NodePath)
	walk = func(n S, path NodePath) {
		if _, ok := spans.Get(path); !ok {
			t.Fatalf("missing span for node %v at path %v", n[0], path)
		}
		for i := 1; i < len(n); i++ {
			if c, ok := n[i].(S); ok {
				child := append(append(NodePath{}, path...), i-1)
				walk(c, child)
			}
		}
	}
	walk(e, nil)
}

func Test_Parser_SpanPositions(t *testing.T) {
	src := `$input.missing`
	e, spans, err := ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	if e[0] != "get" {
		t.Fatalf("tag: %v", e[0])
	}
	sp, ok := spans.Get(nil)
	if !ok {
		t.Fatal("no span for root")
	}
	if sp.StartByte != 0 || sp.EndByte != len(src) {
		t.Fatalf("root span %d..%d", sp.StartByte, sp.EndByte)
	}
	// the member-name leaf spans just "missing"
	nameSp, ok := spans.Get(NodePath{1})
	if !ok {
		t.Fatal("no span for member name")
	}
	if src[nameSp.StartByte:nameSp.EndByte] != "missing" {
		t.Fatalf("member span text %q", src[nameSp.StartByte:nameSp.EndByte])
	}
}

func Test_Parser_OffsetToLineCol(t *testing.T) {
	src := "ab\ncd\nef"
	cases := []struct{ off, line, col int }{
		{0, 1, 0}, {1, 1, 1}, {3, 2, 0}, {4, 2, 1}, {6, 3, 0}, {99, 3, 2},
	}
	for _, tc := range cases {
		line, col := OffsetToLineCol(src, tc.off)
		if line != tc.line || col != tc.col {
			t.Fatalf("offset %d: want %d:%d got %d:%d", tc.off, tc.line, tc.col, line, col)
		}
	}
}
