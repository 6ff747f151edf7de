// eval.go — direct tree-walking evaluation of the S-expression AST.
//
// The evaluator walks the parsed program against a UDM input node and
// produces a UDM output node. Errors use the panic discipline: internal
// code calls fail/failKind, which panics an rtErr; Evaluate recovers once
// at the API boundary and converts it into a structured *Error positioned
// through the span of the AST node being evaluated.
//
// Dispatch is a switch on the node tag with an explicit assertion on
// unhandled tags.
package utlx

import (
	"fmt"
	"time"
)

// TemplatePolicy decides what happens to a selected node no template rule
// matches.
type TemplatePolicy int

const (
	TemplatesStrict   TemplatePolicy = iota // error
	TemplatesIdentity                       // copy the node through unchanged
	TemplatesSkip                           // drop the node
)

// DefaultMaxDepth bounds call nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 512

// Options tunes one evaluation.
type Options struct {
	Templates TemplatePolicy
	MaxDepth  int              // maximum call depth; 0 means DefaultMaxDepth
	Now       func() time.Time // evaluation clock; nil means time.Now
}

// Closure is a function value: a lambda with its captured environment, or
// a reference to a registry builtin (Native set, Body nil).
type Closure struct {
	Params []string
	Body   S
	Env    *Env
	Native string

	bodyPath NodePath // definition-site path of Body, for spans
	ctx      named    // lexical template context captured at definition
}

// Env is a lexical environment frame.
type Env struct {
	parent *Env
	table  map[string]Node
}

// NewEnv creates an environment with the given parent.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: map[string]Node{}}
}

// Define binds name in this frame, shadowing outer frames.
func (e *Env) Define(name string, v Node) { e.table[name] = v }

// Get resolves name through the frame chain.
func (e *Env) Get(name string) (Node, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.table[name]; ok {
			return v, true
		}
	}
	return Node{}, false
}

// ----- error discipline -----

type rtErr struct {
	kind DiagKind
	msg  string
}

func fail(msg string)                 { panic(rtErr{kind: DiagEval, msg: msg}) }
func failKind(k DiagKind, msg string) { panic(rtErr{kind: k, msg: msg}) }
func failf(format string, args ...any) {
	panic(rtErr{kind: DiagEval, msg: fmt.Sprintf(format, args...)})
}

// ----- evaluator state -----

type templateRule struct {
	pattern string
	body    S
	path    NodePath // path of the rule body, for spans
}

type evalState struct {
	prog  *Program
	reg   *Registry
	opts  Options
	input Node
	rules []templateRule
	depth int
	path  NodePath // path of the node currently being evaluated
}

func (ev *evalState) maxDepth() int {
	if ev.opts.MaxDepth > 0 {
		return ev.opts.MaxDepth
	}
	return DefaultMaxDepth
}

func (ev *evalState) pos() (int, int) {
	if ev.prog != nil {
		if sp, ok := ev.prog.Spans.Get(ev.path); ok && sp.EndByte > 0 {
			return OffsetToLineCol(ev.prog.Src, sp.StartByte)
		}
	}
	return 0, 0
}

// ----- public API -----

// Evaluate runs a parsed program against input and returns the produced
// node. The registry supplies builtin functions; opts tunes template
// fallback, call depth, and the clock.
func Evaluate(prog *Program, input Node, reg *Registry, opts Options) (out Node, err error) {
	ev := &evalState{prog: prog, reg: reg, opts: opts, input: input}
	defer ev.rescue(&err)

	env := NewEnv(nil)
	env.Define("input", input)

	// top-level let bindings, in order
	binds := prog.Binds()
	for i := 1; i < len(binds); i++ {
		b := binds[i].(S)
		name := b[1].(S)[1].(string)
		v := ev.eval(b[2].(S), childPath(childPath(nil, 1), i-1, 1), env, named{node: input})
		env.Define(name, v)
	}

	body := prog.Body()
	bodyPath := NodePath{2}
	if len(body) > 0 && body[0] == "templates" {
		ev.collectRules(body, bodyPath)
		return ev.applyToRoot(env), nil
	}
	return ev.eval(body, bodyPath, env, named{node: input}), nil
}

// EvaluateExpr parses and evaluates a standalone expression with $input
// bound. Used by the REPL.
func EvaluateExpr(name, src string, input Node, reg *Registry, opts Options) (out Node, err error) {
	ast, spans, perr := ParseExpr(src)
	if perr != nil {
		return Node{}, perr
	}
	prog := &Program{Name: name, Src: src, AST: ast, Spans: spans}
	ev := &evalState{prog: prog, reg: reg, opts: opts, input: input}
	defer ev.rescue(&err)

	env := NewEnv(nil)
	env.Define("input", input)
	return ev.eval(ast, nil, env, named{node: input}), nil
}

func (ev *evalState) rescue(err *error) {
	if r := recover(); r != nil {
		switch e := r.(type) {
		case rtErr:
			line, col := ev.pos()
			*err = &Error{Kind: e.kind, Msg: e.msg, Line: line, Col: col}
		case *Error:
			*err = e
		default:
			panic(r)
		}
	}
}

// childPath extends a node path. The variadic form keeps call sites short.
func childPath(base NodePath, idx ...int) NodePath {
	out := make(NodePath, 0, len(base)+len(idx))
	out = append(out, base...)
	out = append(out, idx...)
	return out
}

// ----- templates -----

func (ev *evalState) collectRules(body S, bodyPath NodePath) {
	for i := 1; i < len(body); i++ {
		rule := body[i].(S)
		pat := rule[1].(S)[1].(string)
		ev.rules = append(ev.rules, templateRule{
			pattern: pat,
			body:    rule[2].(S),
			path:    childPath(bodyPath, i-1, 1),
		})
	}
}

// applyToRoot seeds template application. Object inputs apply rules to
// their top-level children (document style), with arrays traversed
// transparently so repeated children get one application per element;
// other inputs apply to the root node itself under the empty name.
func (ev *evalState) applyToRoot(env *Env) Node {
	var seeds []named
	switch ev.input.Kind {
	case KObject:
		seeds = ev.selectChildren(ev.input, "*")
	case KArray:
		for _, e := range ev.input.Elems() {
			seeds = append(seeds, named{node: e})
		}
	default:
		seeds = []named{{node: ev.input}}
	}
	results := ev.applyRules(seeds, env)
	if len(results) == 1 {
		return results[0]
	}
	return ArrNode(results)
}

// applyRules applies the first matching rule to each node, honoring the
// template fallback policy for non-matching nodes.
func (ev *evalState) applyRules(nodes []named, env *Env) []Node {
	var out []Node
	for _, nm := range nodes {
		matched := false
		for _, r := range ev.rules {
			if r.pattern == "*" || r.pattern == nm.name {
				out = append(out, ev.eval(r.body, r.path, NewEnv(env), nm))
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		switch ev.opts.Templates {
		case TemplatesStrict:
			failf("no template rule matches node %q", nm.name)
		case TemplatesIdentity:
			out = append(out, nm.node)
		case TemplatesSkip:
			// dropped
		}
	}
	return out
}

// ----- core dispatch -----

func (ev *evalState) eval(n S, path NodePath, env *Env, ctx named) Node {
	ev.path = path
	tag, _ := n[0].(string)
	switch tag {
	case "null":
		return NullNode
	case "bool":
		return BoolNode(n[1].(bool))
	case "int":
		return IntNode(n[1].(int64))
	case "num":
		return NumNode(n[1].(float64))
	case "str":
		return StrNode(n[1].(string))
	case "context":
		return ctx.node
	case "var":
		name := n[1].(string)
		if v, ok := env.Get(name); ok {
			return v
		}
		ev.path = path
		failf("undefined variable $%s", name)
	case "id":
		name := n[1].(string)
		if v, ok := env.Get(name); ok {
			return v
		}
		if _, ok := ev.reg.Lookup(name); ok {
			return FuncNode(&Closure{Native: name})
		}
		ev.path = path
		failf("unknown function %q", name)
	case "array":
		out := make([]Node, 0, len(n)-1)
		for i := 1; i < len(n); i++ {
			out = append(out, ev.eval(n[i].(S), childPath(path, i-1), env, ctx))
		}
		return ArrNode(out)
	case "object":
		return ev.evalObject(n, path, env, ctx)
	case "lambda":
		params := n[1].(S)
		names := make([]string, 0, len(params)-1)
		for i := 1; i < len(params); i++ {
			names = append(names, params[i].(string))
		}
		return FuncNode(&Closure{
			Params:   names,
			Body:     n[2].(S),
			Env:      env,
			bodyPath: childPath(path, 1),
			ctx:      ctx,
		})
	case "get":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return ev.member(obj, n[2].(S)[1].(string), true)
	case "sget":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return ev.member(obj, n[2].(S)[1].(string), false)
	case "attr":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return ev.attribute(obj, n[2].(S)[1].(string))
	case "meta":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return metaField(obj, n[2].(S)[1].(string))
	case "idx":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		i := n[2].(S)[1].(int64)
		ev.path = path
		if obj.Kind != KArray {
			failKind(DiagPath, fmt.Sprintf("cannot index %s", obj.Kind))
		}
		xs := obj.Elems()
		if i < 0 || int(i) >= len(xs) {
			failKind(DiagPath, fmt.Sprintf("index %d out of bounds (length %d)", i, len(xs)))
		}
		return xs[i]
	case "pred":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return ev.predicate(obj, n[2].(S), childPath(path, 1), env)
	case "wild":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		return ArrNode(childValues(obj))
	case "desc":
		obj := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		name := n[2].(S)[1].(string)
		out, _ := SelectAll(obj, []Segment{{Kind: SegDescend, Name: name}})
		if out == nil {
			out = []Node{}
		}
		return ArrNode(out)
	case "call":
		return ev.evalCall(n, path, env, ctx)
	case "binop":
		return ev.evalBinop(n, path, env, ctx)
	case "unop":
		rhs := ev.eval(n[2].(S), childPath(path, 1), env, ctx)
		ev.path = path
		return evalUnop(n[1].(string), rhs)
	case "if":
		cond := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
		ev.path = path
		b, ok := cond.Truthy()
		if !ok {
			failf("if condition must be Bool, got %s", cond.Kind)
		}
		if b {
			return ev.eval(n[2].(S), childPath(path, 1), env, ctx)
		}
		return ev.eval(n[3].(S), childPath(path, 2), env, ctx)
	case "match":
		return ev.evalMatch(n, path, env, ctx)
	case "let":
		child := NewEnv(env)
		for i := 1; i < len(n)-1; i++ {
			b := n[i].(S)
			name := b[1].(S)[1].(string)
			child.Define(name, ev.eval(b[2].(S), childPath(path, i-1, 1), child, ctx))
		}
		return ev.eval(n[len(n)-1].(S), childPath(path, len(n)-2), child, ctx)
	}
	panic(fmt.Sprintf("unhandled AST node tag %q", tag))
}

// ----- navigation -----

// member implements obj.name (required=true) and obj?.name. Access maps
// over arrays elementwise.
func (ev *evalState) member(obj Node, name string, required bool) Node {
	switch obj.Kind {
	case KObject:
		if v, ok := obj.Fields().Get(name); ok {
			return v
		}
		if !required {
			return NullNode
		}
		failKind(DiagPath, fmt.Sprintf("member %q not found (%s)", name, keyList(obj.Fields())))
	case KArray:
		xs := obj.Elems()
		out := make([]Node, 0, len(xs))
		for _, e := range xs {
			out = append(out, ev.member(e, name, required))
		}
		return ArrNode(out)
	case KNull:
		if !required {
			return NullNode
		}
		failKind(DiagPath, fmt.Sprintf("cannot access member %q of null", name))
	default:
		if !required {
			return NullNode
		}
		failKind(DiagPath, fmt.Sprintf("cannot access member %q of %s", name, obj.Kind))
	}
	return NullNode
}

// attribute reads the @name side-channel. Absent attributes read as Null
// (attributes are optional by nature); scalar receivers are path errors.
func (ev *evalState) attribute(obj Node, name string) Node {
	switch obj.Kind {
	case KArray:
		xs := obj.Elems()
		out := make([]Node, 0, len(xs))
		for _, e := range xs {
			out = append(out, ev.attribute(e, name))
		}
		return ArrNode(out)
	case KObject, KStr, KInt, KNum, KBool, KNull:
		if obj.Meta != nil {
			if v, ok := obj.Meta.Attrs.Get(name); ok {
				return v
			}
		}
		if obj.Kind == KObject || obj.Meta != nil {
			return NullNode
		}
		failKind(DiagPath, fmt.Sprintf("%s node carries no attributes", obj.Kind))
	}
	return NullNode
}

func metaField(obj Node, name string) Node {
	if obj.Meta == nil {
		return NullNode
	}
	switch name {
	case "ns", "namespace":
		if obj.Meta.Ns == "" {
			return NullNode
		}
		return StrNode(obj.Meta.Ns)
	case "name":
		if obj.Meta.Name == "" {
			return NullNode
		}
		return StrNode(obj.Meta.Name)
	case "hint", "format":
		if obj.Meta.Hint == "" {
			return NullNode
		}
		return StrNode(obj.Meta.Hint)
	}
	return NullNode
}

// childValues lists the immediate children of a node (object values or
// array elements).
func childValues(n Node) []Node {
	switch n.Kind {
	case KObject:
		f := n.Fields()
		out := make([]Node, 0, len(f.Keys))
		for _, k := range f.Keys {
			out = append(out, f.Entries[k])
		}
		return out
	case KArray:
		return n.Elems()
	}
	return []Node{}
}

// predicate keeps the elements for which cond evaluates to true, with $
// bound to the candidate element.
func (ev *evalState) predicate(obj Node, cond S, condPath NodePath, env *Env) Node {
	var xs []Node
	switch obj.Kind {
	case KArray:
		xs = obj.Elems()
	case KObject:
		xs = []Node{obj}
	default:
		failKind(DiagPath, fmt.Sprintf("cannot filter %s with a predicate", obj.Kind))
	}
	var out []Node
	for _, e := range xs {
		v := ev.eval(cond, condPath, env, named{node: e})
		ev.path = condPath
		b, ok := v.Truthy()
		if !ok {
			failf("predicate must produce Bool, got %s", v.Kind)
		}
		if b {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []Node{}
	}
	return ArrNode(out)
}

// ----- object construction -----

func (ev *evalState) evalObject(n S, path NodePath, env *Env, ctx named) Node {
	fields := NewFields()
	var meta *Meta
	for i := 1; i < len(n); i++ {
		entry := n[i].(S)
		entryPath := childPath(path, i-1)
		switch entry[0] {
		case "field":
			key := entry[1].(S)[1].(string)
			val := ev.eval(entry[2].(S), childPath(entryPath, 1), env, ctx)
			fields.Set(key, val)
		case "dynfield":
			keyNode := ev.eval(entry[1].(S), childPath(entryPath, 0), env, ctx)
			ev.path = entryPath
			if keyNode.Kind != KStr {
				failf("dynamic object key must be Str, got %s", keyNode.Kind)
			}
			val := ev.eval(entry[2].(S), childPath(entryPath, 1), env, ctx)
			fields.Set(keyNode.Data.(string), val)
		case "attrfield":
			key := entry[1].(S)[1].(string)
			val := ev.eval(entry[2].(S), childPath(entryPath, 1), env, ctx)
			if meta == nil {
				meta = &Meta{}
			}
			if meta.Attrs == nil {
				meta.Attrs = NewFields()
			}
			meta.Attrs.Set(key, val)
		case "dirfield":
			key := entry[1].(S)[1].(string)
			val := ev.eval(entry[2].(S), childPath(entryPath, 1), env, ctx)
			if meta == nil {
				meta = &Meta{}
			}
			if meta.Directives == nil {
				meta.Directives = NewFields()
			}
			meta.Directives.Set(key, val)
		default:
			panic(fmt.Sprintf("unhandled object entry tag %q", entry[0]))
		}
	}
	out := ObjNode(fields)
	out.Meta = meta
	return out
}

// ----- calls -----

func (ev *evalState) evalCall(n S, path NodePath, env *Env, ctx named) Node {
	callee := n[1].(S)

	// apply(selector) recurses into the ordered template rules
	if len(callee) == 2 && callee[0] == "id" && callee[1] == "apply" {
		if len(n) != 3 {
			failKind(DiagArg, "apply takes exactly one selector argument")
		}
		sel := ev.eval(n[2].(S), childPath(path, 1), env, ctx)
		ev.path = path
		if sel.Kind != KStr {
			failKind(DiagArg, fmt.Sprintf("apply selector must be Str, got %s", sel.Kind))
		}
		if ev.rules == nil {
			fail("apply used outside a template body")
		}
		return ArrNode(ev.applyRules(ev.selectChildren(ctx.node, sel.Data.(string)), env))
	}

	args := make([]Node, 0, len(n)-2)
	for i := 2; i < len(n); i++ {
		args = append(args, ev.eval(n[i].(S), childPath(path, i-1), env, ctx))
	}
	fn := ev.eval(callee, childPath(path, 0), env, ctx)
	ev.path = path
	return ev.invoke(fn, args)
}

// selectChildren lists the context children matched by a template
// selector: a child name or "*". Arrays are traversed transparently so
// {items: [...]} selects into the array elements.
func (ev *evalState) selectChildren(ctxNode Node, selector string) []named {
	var out []named
	var visit func(nm named)
	visit = func(nm named) {
		if nm.node.Kind == KArray {
			for _, e := range nm.node.Elems() {
				visit(named{name: nm.name, node: e})
			}
			return
		}
		out = append(out, nm)
	}
	switch ctxNode.Kind {
	case KObject:
		f := ctxNode.Fields()
		for _, k := range f.Keys {
			if selector == "*" || selector == k {
				visit(named{name: k, node: f.Entries[k]})
			}
		}
	case KArray:
		for _, e := range ctxNode.Elems() {
			for _, nm := range ev.selectChildren(e, selector) {
				out = append(out, nm)
			}
		}
	}
	return out
}

func (ev *evalState) invoke(fn Node, args []Node) Node {
	if fn.Kind != KFunc {
		failf("cannot call %s value", fn.Kind)
	}
	return ev.callClosure(fn.Data.(*Closure), args)
}

func (ev *evalState) callClosure(c *Closure, args []Node) Node {
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > ev.maxDepth() {
		failf("maximum call depth exceeded (%d)", ev.maxDepth())
	}

	if c.Native != "" {
		b, ok := ev.reg.Lookup(c.Native)
		if !ok {
			failf("unknown function %q", c.Native)
		}
		checkArgs(b, args)
		return b.Impl(&Call{Name: b.Name, Args: args, ev: ev})
	}

	if len(args) != len(c.Params) {
		failKind(DiagArg, fmt.Sprintf("function takes %d arguments, got %d", len(c.Params), len(args)))
	}
	frame := NewEnv(c.Env)
	for i, p := range c.Params {
		frame.Define(p, args[i])
	}
	return ev.eval(c.Body, c.bodyPath, frame, c.ctx)
}

// ----- operators -----

func (ev *evalState) evalBinop(n S, path NodePath, env *Env, ctx named) Node {
	op := n[1].(string)

	switch op {
	case "and", "or":
		lhs := ev.eval(n[2].(S), childPath(path, 1), env, ctx)
		ev.path = path
		lb, ok := lhs.Truthy()
		if !ok {
			failf("operands of %q must be Bool, got %s", op, lhs.Kind)
		}
		// short circuit
		if op == "and" && !lb {
			return BoolNode(false)
		}
		if op == "or" && lb {
			return BoolNode(true)
		}
		rhs := ev.eval(n[3].(S), childPath(path, 2), env, ctx)
		ev.path = path
		rb, ok := rhs.Truthy()
		if !ok {
			failf("operands of %q must be Bool, got %s", op, rhs.Kind)
		}
		return BoolNode(rb)
	case "|>":
		return ev.evalPipe(n, path, env, ctx)
	}

	lhs := ev.eval(n[2].(S), childPath(path, 1), env, ctx)
	rhs := ev.eval(n[3].(S), childPath(path, 2), env, ctx)
	ev.path = path

	switch op {
	case "==":
		return BoolNode(Equal(lhs, rhs))
	case "!=":
		return BoolNode(!Equal(lhs, rhs))
	case "<", "<=", ">", ">=":
		return compareNodes(op, lhs, rhs)
	case "+":
		return addNodes(lhs, rhs)
	case "-", "*", "/", "%":
		return arithNodes(op, lhs, rhs)
	}
	panic(fmt.Sprintf("unhandled binary operator %q", op))
}

// evalPipe threads the left value as the first argument of the right-hand
// call: a |> f(x) ≡ f(a, x); a |> f ≡ f(a).
func (ev *evalState) evalPipe(n S, path NodePath, env *Env, ctx named) Node {
	lhs := ev.eval(n[2].(S), childPath(path, 1), env, ctx)
	rhs := n[3].(S)
	rhsPath := childPath(path, 2)

	switch rhs[0] {
	case "call":
		callee := rhs[1].(S)
		args := []Node{lhs}
		for i := 2; i < len(rhs); i++ {
			args = append(args, ev.eval(rhs[i].(S), childPath(rhsPath, i-1), env, ctx))
		}
		fn := ev.eval(callee, childPath(rhsPath, 0), env, ctx)
		ev.path = path
		return ev.invoke(fn, args)
	case "id", "var", "lambda":
		fn := ev.eval(rhs, rhsPath, env, ctx)
		ev.path = path
		return ev.invoke(fn, []Node{lhs})
	}
	ev.path = rhsPath
	fail("right side of |> must be a function or a call")
	return Node{}
}

func evalUnop(op string, rhs Node) Node {
	switch op {
	case "-":
		switch rhs.Kind {
		case KInt:
			return IntNode(-rhs.Data.(int64))
		case KNum:
			return NumNode(-rhs.Data.(float64))
		}
		failf("cannot negate %s", rhs.Kind)
	case "not":
		b, ok := rhs.Truthy()
		if !ok {
			failf("operand of 'not' must be Bool, got %s", rhs.Kind)
		}
		return BoolNode(!b)
	}
	panic(fmt.Sprintf("unhandled unary operator %q", op))
}

// addNodes implements "+": numeric addition with Int/Num promotion,
// string concatenation, array concatenation, and ordered object merge
// (right side wins on key collisions).
func addNodes(a, b Node) Node {
	switch {
	case a.Kind == KInt && b.Kind == KInt:
		return IntNode(a.Data.(int64) + b.Data.(int64))
	case isNumeric(a) && isNumeric(b):
		return NumNode(asFloat(a) + asFloat(b))
	case a.Kind == KStr && b.Kind == KStr:
		return StrNode(a.Data.(string) + b.Data.(string))
	case a.Kind == KArray && b.Kind == KArray:
		xs := a.Elems()
		ys := b.Elems()
		out := make([]Node, 0, len(xs)+len(ys))
		out = append(out, xs...)
		out = append(out, ys...)
		return ArrNode(out)
	case a.Kind == KObject && b.Kind == KObject:
		out := NewFields()
		for _, k := range a.Fields().Keys {
			out.Set(k, a.Fields().Entries[k])
		}
		for _, k := range b.Fields().Keys {
			out.Set(k, b.Fields().Entries[k])
		}
		return ObjNode(out)
	}
	failf("cannot add %s and %s", a.Kind, b.Kind)
	return Node{}
}

func arithNodes(op string, a, b Node) Node {
	if !isNumeric(a) || !isNumeric(b) {
		failf("operands of %q must be numeric, got %s and %s", op, a.Kind, b.Kind)
	}
	if a.Kind == KInt && b.Kind == KInt {
		x, y := a.Data.(int64), b.Data.(int64)
		switch op {
		case "-":
			return IntNode(x - y)
		case "*":
			return IntNode(x * y)
		case "/":
			if y == 0 {
				fail("division by zero")
			}
			if x%y == 0 {
				return IntNode(x / y)
			}
			return NumNode(float64(x) / float64(y))
		case "%":
			if y == 0 {
				fail("division by zero")
			}
			return IntNode(x % y)
		}
	}
	x, y := asFloat(a), asFloat(b)
	switch op {
	case "-":
		return NumNode(x - y)
	case "*":
		return NumNode(x * y)
	case "/":
		if y == 0 {
			fail("division by zero")
		}
		return NumNode(x / y)
	case "%":
		fail("operands of % must be Int")
	}
	panic(fmt.Sprintf("unhandled arithmetic operator %q", op))
}

func compareNodes(op string, a, b Node) Node {
	var c int
	switch {
	case isNumeric(a) && isNumeric(b):
		x, y := asFloat(a), asFloat(b)
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	case a.Kind == KStr && b.Kind == KStr:
		x, y := a.Data.(string), b.Data.(string)
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	default:
		failf("cannot compare %s with %s", a.Kind, b.Kind)
	}
	switch op {
	case "<":
		return BoolNode(c < 0)
	case "<=":
		return BoolNode(c <= 0)
	case ">":
		return BoolNode(c > 0)
	case ">=":
		return BoolNode(c >= 0)
	}
	panic(fmt.Sprintf("unhandled comparison %q", op))
}

func isNumeric(n Node) bool { return n.Kind == KInt || n.Kind == KNum }

func asFloat(n Node) float64 {
	if n.Kind == KInt {
		return float64(n.Data.(int64))
	}
	return n.Data.(float64)
}

// ----- match -----

func (ev *evalState) evalMatch(n S, path NodePath, env *Env, ctx named) Node {
	subject := ev.eval(n[1].(S), childPath(path, 0), env, ctx)
	for i := 2; i < len(n); i++ {
		cs := n[i].(S)
		pat := cs[1].(S)
		if pat[0] == "wild" || Equal(subject, literalNode(pat)) {
			return ev.eval(cs[2].(S), childPath(path, i-1, 1), env, ctx)
		}
	}
	ev.path = path
	failf("no match case for %s (add a '_' case)", subject)
	return Node{}
}

// literalNode converts a literal AST node to its value.
func literalNode(pat S) Node {
	switch pat[0] {
	case "null":
		return NullNode
	case "bool":
		return BoolNode(pat[1].(bool))
	case "int":
		return IntNode(pat[1].(int64))
	case "num":
		return NumNode(pat[1].(float64))
	case "str":
		return StrNode(pat[1].(string))
	}
	panic(fmt.Sprintf("unhandled pattern tag %q", pat[0]))
}
