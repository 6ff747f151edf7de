// semantic.go — post-parse validation.
//
// The checker walks the AST once and accumulates every problem it finds
// instead of stopping at the first, so a transformation author sees all
// mistakes in one run. Checks are purely structural; type problems are
// the inference engine's business.
package utlx

import "fmt"

// outputDirectives is the static table of !directive keys each output
// format understands. The checker validates against it; encoders read
// the values at encode time.
var outputDirectives = map[Format]map[string]bool{
	FormatJSON: {"pretty": true},
	FormatXML:  {"version": true, "encoding": true, "cdata": true},
	FormatCSV:  {"header": true, "delimiter": true},
	FormatYAML: {},
}

// Check validates a parsed program and returns every semantic error
// found. A nil or empty result means the program is well-formed.
func Check(prog *Program) []*Error {
	ck := &checker{prog: prog}
	// Top-level bindings evaluate before any template is selected, so
	// they have no context and no rule set.
	binds := prog.Binds()
	for i := 1; i < len(binds); i++ {
		bind := binds[i].(S)
		ck.walk(bind[2].(S), NodePath{1, i - 1, 1}, false, false)
	}
	body := prog.Body()
	if body[0] == "templates" {
		for i := 1; i < len(body); i++ {
			rule := body[i].(S)
			ck.walk(rule[2].(S), NodePath{2, i - 1, 1}, true, true)
		}
	} else {
		ck.walk(body, NodePath{2}, false, false)
	}
	return ck.errs
}

type checker struct {
	prog *Program
	errs []*Error
}

func (ck *checker) report(path NodePath, format string, args ...any) {
	e := &Error{Kind: DiagSemantic, Msg: fmt.Sprintf(format, args...)}
	if sp, ok := ck.prog.Spans.Get(path); ok {
		e.Line, e.Col = OffsetToLineCol(ck.prog.Src, sp.StartByte)
	}
	ck.errs = append(ck.errs, e)
}

// walk visits n at path. hasCtx reports whether $ is bound here; inTpl
// reports whether we are inside a template body, where apply is legal.
func (ck *checker) walk(n S, path NodePath, hasCtx, inTpl bool) {
	switch n[0].(string) {
	case "context":
		if !hasCtx {
			ck.report(path, "$ used outside a template body or predicate")
		}
		return

	case "object":
		ck.checkObject(n, path)

	case "pred":
		// The receiver keeps the enclosing context; the predicate binds
		// its own $ to each candidate.
		ck.walk(n[1].(S), append(path, 0), hasCtx, inTpl)
		ck.walk(n[2].(S), append(path, 1), true, inTpl)
		return

	case "call":
		if callee, ok := n[1].(S); ok && callee[0] == "id" && callee[1] == "apply" && !inTpl {
			ck.report(path, "apply is only available inside template bodies")
		}

	case "lambda":
		// Lambda bodies run wherever the closure is invoked; keep the
		// lexical context flags of the definition site.
	}

	for ci := 1; ci < len(n); ci++ {
		if child, ok := n[ci].(S); ok {
			ck.walk(child, append(path, ci-1), hasCtx, inTpl)
		}
	}
}

func (ck *checker) checkObject(n S, path NodePath) {
	seenField := map[string]NodePath{}
	seenAttr := map[string]NodePath{}
	for ci := 1; ci < len(n); ci++ {
		entry, ok := n[ci].(S)
		if !ok {
			continue
		}
		epath := append(append(NodePath{}, path...), ci-1)
		tag := entry[0].(string)
		if tag == "dynfield" {
			continue // key known only at run time
		}
		key := entry[1].(S)[1].(string)
		switch tag {
		case "field":
			if _, dup := seenField[key]; dup {
				ck.report(epath, "duplicate key %q in object literal", key)
			}
			seenField[key] = epath
		case "attrfield":
			if _, dup := seenAttr[key]; dup {
				ck.report(epath, "duplicate attribute @%s in object literal", key)
			}
			seenAttr[key] = epath
		case "dirfield":
			allowed := outputDirectives[ck.prog.Output]
			if !allowed[key] {
				ck.report(epath, "output format %s does not support directive !%s", ck.prog.Output, key)
			}
		}
	}
}
