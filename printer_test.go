// printer_test.go
package utlx

import (
	"reflect"
	"strings"
	"testing"
)

// reprint formats an expression and checks that re-parsing the output
// yields the same AST. Formatting must be a fixpoint of parsing.
func reprint(t *testing.T, src string) string {
	t.Helper()
	ast := parseE(t, src)
	out := FormatExpr(ast)
	again, _, err := ParseExpr(out)
	if err != nil {
		t.Fatalf("reparse error: %v\nformatted:\n%s", err, out)
	}
	if !reflect.DeepEqual(ast, again) {
		t.Fatalf("not a fixpoint\nsource:\n%s\nformatted:\n%s", src, out)
	}
	return out
}

func eqOut(t *testing.T, got, want string) {
	t.Helper()
	if strings.TrimSpace(got) != strings.TrimSpace(want) {
		t.Fatalf("format mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func Test_Printer_OperatorsAndGrouping(t *testing.T) {
	cases := []struct{ in, want string }{
		{`1 + 2 * 3`, `1 + 2 * 3`},
		{`(1 + 2) * 3`, `(1 + 2) * 3`},
		{`- (a + b)`, `-(a + b)`},
		{`not a and b`, `not a and b`},
		{`a < b == c`, `a < b == c`},
		{`a |> f |> g`, `a |> f |> g`},
		{`a |> (f |> g)`, `a |> (f |> g)`},
		{`(if (a) 1 else 2) + 3`, `(if (a) 1 else 2) + 3`},
	}
	for _, tc := range cases {
		got := reprint(t, tc.in)
		eqOut(t, got, tc.want)
	}
}

func Test_Printer_NavigationChains(t *testing.T) {
	cases := []struct{ in, want string }{
		{`$input.items[0].price`, `$input.items[0].price`},
		{`$input?.maybe`, `$input?.maybe`},
		{`$input..price`, `$input..price`},
		{`$input.*`, `$input.*`},
		{`$o.@currency`, `$o.@currency`},
		{`$o.^source`, `$o.^source`},
		{`$input."odd key"`, `$input."odd key"`},
		{`xs[$.price > 10]`, `xs[.price > 10]`},
	}
	for _, tc := range cases {
		got := reprint(t, tc.in)
		eqOut(t, got, tc.want)
	}
}

func Test_Printer_ContextSugarIsCanonical(t *testing.T) {
	// $.name and .name share one AST shape, so both print the bare form
	eqOut(t, reprint(t, `$.name`), `.name`)
	eqOut(t, reprint(t, `.name`), `.name`)
	eqOut(t, reprint(t, `$.@currency`), `@currency`)
	eqOut(t, reprint(t, `@currency`), `@currency`)
}

func Test_Printer_Numbers(t *testing.T) {
	// floats keep a decimal point so they re-lex as NUMBER
	eqOut(t, reprint(t, `1e3`), `1000.0`)
	eqOut(t, reprint(t, `2.0`), `2.0`)
	eqOut(t, reprint(t, `2.5e-2`), `0.025`)
	eqOut(t, reprint(t, `7`), `7`)
}

func Test_Printer_Strings(t *testing.T) {
	eqOut(t, reprint(t, `"a\"b\n\t\\"`), `"a\"b\n\t\\"`)
	eqOut(t, reprint(t, `"plain"`), `"plain"`)
}

func Test_Printer_Lambdas(t *testing.T) {
	eqOut(t, reprint(t, `x => x + 1`), `x => x + 1`)
	eqOut(t, reprint(t, `(a, b) => a`), `(a, b) => a`)
	eqOut(t, reprint(t, `items |> map(x => x.price)`), `items |> map(x => x.price)`)
}

func Test_Printer_Object(t *testing.T) {
	got := reprint(t, `{name: 1, "odd key": 2, @attr: 3, !pretty: false, (k): 4}`)
	want := `{
  name: 1,
  "odd key": 2,
  @attr: 3,
  !pretty: false,
  (k): 4
}`
	eqOut(t, got, want)
	eqOut(t, reprint(t, `{}`), `{}`)
}

func Test_Printer_Match(t *testing.T) {
	got := reprint(t, `match s { "a" => 1, -2 => 2, _ => 0 }`)
	want := `match s {
  "a" => 1,
  -2 => 2,
  _ => 0
}`
	eqOut(t, got, want)
}

func Test_Printer_Let(t *testing.T) {
	eqOut(t, reprint(t, `let a = 1, b = 2 in a + b`), `let a = 1, b = 2 in a + b`)
}

func Test_Printer_Fixpoint_Corpus(t *testing.T) {
	srcs := []string{
		`null`, `true`, `false`, `$`, `$input`,
		`-x`, `not (a or b)`,
		`[1, 2.5, "three", [4]]`,
		`if (a > 0) a else -a`,
		`$input.items[$.qty > 1] |> map(x => {sku: x.sku, total: x.qty * x.price})`,
		`let f = (a, b) => a + b in f(1, 2)`,
		`match $input.kind { "order" => 1, _ => 0 }`,
		`{out: $input..price |> sum()}`,
		`toString(1 + 2) + "!"`,
	}
	for _, src := range srcs {
		reprint(t, src)
	}
}

func Test_Printer_Program(t *testing.T) {
	src := `%utlx 1.0
%input json
%output xml
let rate = 0.2
---
{total: .amount * rate}
`
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := FormatProgram(prog)
	want := `%utlx 1.0
%input json
%output xml

let rate = 0.2
---
{
  total: .amount * rate
}
`
	if got != want {
		t.Fatalf("program format:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
	// formatting is idempotent
	again, err := Parse("again", got)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if FormatProgram(again) != got {
		t.Fatalf("program format not idempotent")
	}
}

func Test_Printer_ProgramTemplates(t *testing.T) {
	src := `%utlx 1.0
---
template "Order" => {id: .id},
template "*" => $
`
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := FormatProgram(prog)
	again, err := Parse("again", got)
	if err != nil {
		t.Fatalf("reparse: %v\nformatted:\n%s", err, got)
	}
	if !reflect.DeepEqual(prog.AST, again.AST) {
		t.Fatalf("templates program not a fixpoint:\n%s", got)
	}
}
