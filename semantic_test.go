// semantic_test.go
package utlx

import (
	"strings"
	"testing"
)

func checkSrc(t *testing.T, src string) []*Error {
	t.Helper()
	prog, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Parse: %v\nsource:\n%s", err, src)
	}
	return Check(prog)
}

func wantChecks(t *testing.T, src string, fragments ...string) {
	t.Helper()
	errs := checkSrc(t, src)
	if len(errs) != len(fragments) {
		t.Fatalf("want %d errors, got %d: %v\nsource:\n%s", len(fragments), len(errs), errs, src)
	}
	for i, frag := range fragments {
		if errs[i].Kind != DiagSemantic {
			t.Fatalf("error %d kind: %v", i, errs[i].Kind)
		}
		if !strings.Contains(errs[i].Msg, frag) {
			t.Fatalf("error %d should mention %q: %s", i, frag, errs[i].Msg)
		}
	}
}

func Test_Check_CleanProgram(t *testing.T) {
	src := `%utlx 1.0
%output xml
---
template "order" => {
  !cdata: true,
  @currency: "EUR",
  id: .sku,
  lines: apply("item")
},
template "item" => $
`
	if errs := checkSrc(t, src); len(errs) != 0 {
		t.Fatalf("clean program flagged: %v", errs)
	}
}

func Test_Check_DuplicateKeys(t *testing.T) {
	wantChecks(t, "%utlx 1.0\n---\n{a: 1, b: 2, a: 3}", `duplicate key "a"`)
	wantChecks(t, "%utlx 1.0\n---\n{@x: 1, @x: 2}", "duplicate attribute @x")
	// a field and an attribute may share a name
	if errs := checkSrc(t, "%utlx 1.0\n---\n{x: 1, @x: 2}"); len(errs) != 0 {
		t.Fatalf("field/attribute name overlap flagged: %v", errs)
	}
	// nested objects are checked independently
	wantChecks(t, "%utlx 1.0\n---\n{o: {k: 1, k: 2}}", `duplicate key "k"`)
}

func Test_Check_OutputDirectivesPerFormat(t *testing.T) {
	// !pretty belongs to JSON output
	if errs := checkSrc(t, "%utlx 1.0\n%output json\n---\n{!pretty: false, a: 1}"); len(errs) != 0 {
		t.Fatalf("json !pretty flagged: %v", errs)
	}
	wantChecks(t, "%utlx 1.0\n%output xml\n---\n{!pretty: false}", "!pretty")
	// XML directives
	if errs := checkSrc(t, `%utlx 1.0
%output xml
---
{!version: "1.1", !encoding: "UTF-8", !cdata: true, root: 1}
`); len(errs) != 0 {
		t.Fatalf("xml directives flagged: %v", errs)
	}
	wantChecks(t, "%utlx 1.0\n%output json\n---\n{!cdata: true}", "!cdata")
	// CSV directives
	if errs := checkSrc(t, "%utlx 1.0\n%output csv\n---\n{!header: false, !delimiter: \";\", a: 1}"); len(errs) != 0 {
		t.Fatalf("csv directives flagged: %v", errs)
	}
	// YAML accepts no directives
	wantChecks(t, "%utlx 1.0\n%output yaml\n---\n{!header: true}", "!header")
}

func Test_Check_ApplyOnlyInTemplates(t *testing.T) {
	wantChecks(t, `%utlx 1.0
---
{x: apply("item")}
`, "apply")
	// fine inside a rule body, even nested in lambdas and calls
	src := `%utlx 1.0
---
template "order" => {lines: map(apply("item"), x => x)}
`
	if errs := checkSrc(t, src); len(errs) != 0 {
		t.Fatalf("apply in template flagged: %v", errs)
	}
	// and rejected in top-level bindings
	wantChecks(t, `%utlx 1.0
let x = apply("item")
---
1
`, "apply")
}

func Test_Check_ContextNeedsABinding(t *testing.T) {
	wantChecks(t, "%utlx 1.0\n---\n$.name", "$")
	wantChecks(t, "%utlx 1.0\nlet a = $.price\n---\n1", "$")
	// template bodies bind $
	if errs := checkSrc(t, "%utlx 1.0\n---\ntemplate \"order\" => $.name"); len(errs) != 0 {
		t.Fatalf("context in template flagged: %v", errs)
	}
	// predicates bind their own $ anywhere
	if errs := checkSrc(t, "%utlx 1.0\n---\n$input.items[$.price > 10]"); len(errs) != 0 {
		t.Fatalf("context in predicate flagged: %v", errs)
	}
	// the receiver of the predicate does not get the predicate's $
	wantChecks(t, "%utlx 1.0\n---\n$.items[$.price > 10]", "$")
}

func Test_Check_ErrorsAccumulateWithPositions(t *testing.T) {
	src := `%utlx 1.0
---
{a: 1,
 a: 2,
 b: apply("x")}
`
	errs := checkSrc(t, src)
	if len(errs) != 2 {
		t.Fatalf("want 2 errors: %v", errs)
	}
	if errs[0].Line != 4 {
		t.Fatalf("duplicate key line: %d", errs[0].Line)
	}
	if errs[1].Line != 5 {
		t.Fatalf("apply line: %d", errs[1].Line)
	}
}
