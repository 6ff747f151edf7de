// infer.go — static type inference over the S-expression AST.
//
// Infer walks the same tree the evaluator walks, but over TypeDefs
// instead of Nodes. It never executes user code: builtin signatures and
// structural rules (Subtype, Unify) stand in for evaluation. Problems
// accumulate as DiagType errors instead of aborting, so one run reports
// everything, and the walk keeps going with Any where it lost track.
//
// Branching constructs widen with Unify, which prefers a Union over a
// least-upper-bound collapse, so schemas generated from the result keep
// the alternatives visible. Results influenced by impure builtins (clock
// reads) are marked NonConstant.
package utlx

import "fmt"

// Infer computes the output type of a parsed program given the type of
// its input. The registry supplies builtin signatures. The returned
// errors are advisory: a non-nil TypeDef comes back even when the list
// is non-empty.
func Infer(prog *Program, inputType *TypeDef, reg *Registry, opts Options) (*TypeDef, []*Error) {
	if inputType == nil {
		inputType = AnyType
	}
	inf := &inferState{prog: prog, reg: reg, opts: opts, input: inputType}

	scope := newTypeScope(nil)
	scope.define("input", inputType)

	binds := prog.Binds()
	for i := 1; i < len(binds); i++ {
		b := binds[i].(S)
		name := b[1].(S)[1].(string)
		t := inf.infer(b[2].(S), childPath(childPath(nil, 1), i-1, 1), scope, inputType)
		scope.define(name, t)
	}

	body := prog.Body()
	if len(body) > 0 && body[0] == "templates" {
		inf.collectRules(body, NodePath{2})
		return inf.inferTemplates(scope), inf.errs
	}
	return inf.infer(body, NodePath{2}, scope, inputType), inf.errs
}

// InferExpr infers a standalone expression with $input bound. Used by
// the REPL's :type command and by tests.
func InferExpr(src string, inputType *TypeDef, reg *Registry) (*TypeDef, []*Error) {
	ast, spans, err := ParseExpr(src)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return AnyType, []*Error{e}
		}
		return AnyType, []*Error{{Kind: DiagParse, Msg: err.Error()}}
	}
	if inputType == nil {
		inputType = AnyType
	}
	prog := &Program{Src: src, AST: ast, Spans: spans}
	inf := &inferState{prog: prog, reg: NewRegistry(), input: inputType}
	if reg != nil {
		inf.reg = reg
	}
	scope := newTypeScope(nil)
	scope.define("input", inputType)
	return inf.infer(ast, nil, scope, inputType), inf.errs
}

// ----- scope stack -----

type typeScope struct {
	parent *typeScope
	table  map[string]*TypeDef
}

func newTypeScope(parent *typeScope) *typeScope {
	return &typeScope{parent: parent, table: map[string]*TypeDef{}}
}

func (s *typeScope) define(name string, t *TypeDef) { s.table[name] = t }

func (s *typeScope) lookup(name string) (*TypeDef, bool) {
	for f := s; f != nil; f = f.parent {
		if t, ok := f.table[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// ----- state -----

type inferRule struct {
	pattern string
	body    S
	path    NodePath
}

type inferState struct {
	prog  *Program
	reg   *Registry
	opts  Options
	input *TypeDef
	rules []inferRule
	// active guards recursive apply chains; a rule already being inferred
	// contributes Any instead of recursing forever.
	active map[int]bool
	errs   []*Error
}

func (inf *inferState) report(path NodePath, format string, args ...any) {
	e := &Error{Kind: DiagType, Msg: fmt.Sprintf(format, args...)}
	if sp, ok := inf.prog.Spans.Get(path); ok && sp.EndByte > 0 {
		e.Line, e.Col = OffsetToLineCol(inf.prog.Src, sp.StartByte)
	}
	inf.errs = append(inf.errs, e)
}

func (inf *inferState) collectRules(body S, bodyPath NodePath) {
	for i := 1; i < len(body); i++ {
		rule := body[i].(S)
		inf.rules = append(inf.rules, inferRule{
			pattern: rule[1].(S)[1].(string),
			body:    rule[2].(S),
			path:    childPath(bodyPath, i-1, 1),
		})
	}
	inf.active = make(map[int]bool, len(inf.rules))
}

// inferTemplates types a template-driven program: each rule body is
// inferred with $ bound to the input field its pattern selects. A single
// rule yields its body type (the evaluator unwraps single results);
// several rules yield an array of the union.
func (inf *inferState) inferTemplates(scope *typeScope) *TypeDef {
	var unified *TypeDef
	for i := range inf.rules {
		unified = Unify(unified, inf.inferRule(i, scope))
	}
	if unified == nil {
		unified = AnyType
	}
	if len(inf.rules) == 1 {
		return unified
	}
	return ArrayOf(unified)
}

func (inf *inferState) inferRule(i int, scope *typeScope) *TypeDef {
	if inf.active[i] {
		return AnyType
	}
	inf.active[i] = true
	defer delete(inf.active, i)

	r := inf.rules[i]
	return inf.infer(r.body, r.path, newTypeScope(scope), inf.seedType(r.pattern))
}

// seedType is the context type a rule sees: the input field named by its
// pattern, with array wrappers peeled (rules fire once per element).
func (inf *inferState) seedType(pattern string) *TypeDef {
	t := inf.input
	if t.Kind != TObject {
		return AnyType
	}
	if pattern == "*" {
		var u *TypeDef
		for _, p := range t.Props {
			u = Unify(u, elemType(p.Type))
		}
		if u == nil {
			return AnyType
		}
		return u
	}
	if p, ok := t.propNamed(pattern); ok {
		return elemType(p.Type)
	}
	return AnyType
}

func elemType(t *TypeDef) *TypeDef {
	if t != nil && t.Kind == TArray {
		return t.Elem
	}
	return t
}

// ----- dispatch -----

func (inf *inferState) infer(n S, path NodePath, scope *typeScope, ctx *TypeDef) *TypeDef {
	switch tag, _ := n[0].(string); tag {
	case "null":
		return NullType
	case "bool":
		return literalType(SBoolean, BoolNode(n[1].(bool)))
	case "int":
		return literalType(SInteger, IntNode(n[1].(int64)))
	case "num":
		return literalType(SNumber, NumNode(n[1].(float64)))
	case "str":
		return literalType(SString, StrNode(n[1].(string)))
	case "context":
		return ctx
	case "var":
		name := n[1].(string)
		if t, ok := scope.lookup(name); ok {
			return t
		}
		inf.report(path, "undefined variable $%s", name)
		return AnyType
	case "id":
		name := n[1].(string)
		if t, ok := scope.lookup(name); ok {
			return t
		}
		if b, ok := inf.reg.Lookup(name); ok {
			return builtinType(b)
		}
		inf.report(path, "unknown function %q", name)
		return AnyType
	case "array":
		var elem *TypeDef
		nc := false
		for i := 1; i < len(n); i++ {
			t := inf.infer(n[i].(S), childPath(path, i-1), scope, ctx)
			nc = nc || t.NonConstant
			elem = Unify(elem, t)
		}
		if elem == nil {
			elem = AnyType
		}
		return markNC(ArrayOf(elem), nc)
	case "object":
		return inf.inferObject(n, path, scope, ctx)
	case "lambda":
		params := n[1].(S)
		pts := make([]*TypeDef, len(params)-1)
		child := newTypeScope(scope)
		for i := 1; i < len(params); i++ {
			pts[i-1] = AnyType
			child.define(params[i].(string), AnyType)
		}
		ret := inf.infer(n[2].(S), childPath(path, 1), child, ctx)
		return FuncType(pts, ret)
	case "get":
		obj := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		return inf.memberType(obj, n[2].(S)[1].(string), true, path)
	case "sget":
		obj := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		return Nullable(inf.memberType(obj, n[2].(S)[1].(string), false, path))
	case "attr":
		inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		// Attribute values are untyped metadata; absent reads are Null.
		return AnyType
	case "meta":
		inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		return Nullable(StringType)
	case "idx":
		obj := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		return inf.indexType(obj, n[2].(S)[1].(int64), path)
	case "pred":
		obj := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		elem := elemType(obj)
		cond := inf.infer(n[2].(S), childPath(path, 1), scope, elem)
		inf.wantBool(cond, childPath(path, 1), "predicate")
		if obj.Kind == TArray {
			return obj
		}
		if obj.Kind == TAny {
			return ArrayOf(AnyType)
		}
		return ArrayOf(obj)
	case "wild":
		obj := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		switch obj.Kind {
		case TObject:
			var u *TypeDef
			for _, p := range obj.Props {
				u = Unify(u, p.Type)
			}
			if u == nil {
				u = AnyType
			}
			return ArrayOf(u)
		case TMap:
			return ArrayOf(obj.Value)
		case TArray:
			return obj
		}
		return ArrayOf(AnyType)
	case "desc":
		inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		// Descent cuts across levels; the element type is unknowable
		// without evaluating.
		return ArrayOf(AnyType)
	case "call":
		return inf.inferCall(n, path, scope, ctx)
	case "binop":
		return inf.inferBinop(n, path, scope, ctx)
	case "unop":
		rhs := inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
		return inf.unopType(n[1].(string), rhs, path)
	case "if":
		cond := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		inf.wantBool(cond, childPath(path, 0), "if condition")
		a := inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
		b := inf.infer(n[3].(S), childPath(path, 2), scope, ctx)
		return markNC(Unify(a, b), a.NonConstant || b.NonConstant || cond.NonConstant)
	case "match":
		subject := inf.infer(n[1].(S), childPath(path, 0), scope, ctx)
		var out *TypeDef
		nc := subject.NonConstant
		for i := 2; i < len(n); i++ {
			cs := n[i].(S)
			t := inf.infer(cs[2].(S), childPath(path, i-1, 1), scope, ctx)
			nc = nc || t.NonConstant
			out = Unify(out, t)
		}
		if out == nil {
			out = AnyType
		}
		return markNC(out, nc)
	case "let":
		child := newTypeScope(scope)
		for i := 1; i < len(n)-1; i++ {
			b := n[i].(S)
			name := b[1].(S)[1].(string)
			child.define(name, inf.infer(b[2].(S), childPath(path, i-1, 1), child, ctx))
		}
		return inf.infer(n[len(n)-1].(S), childPath(path, len(n)-2), child, ctx)
	}
	panic(fmt.Sprintf("unhandled AST node tag %q", n[0]))
}

// literalType gives literals a singleton enum constraint so schemas can
// surface them; Unify drops the constraint as soon as two different
// literals meet.
func literalType(k ScalarKind, v Node) *TypeDef {
	return &TypeDef{Kind: TScalar, Scalar: k, Constr: &Constraints{Enum: []Node{v}}}
}

func builtinType(b *Builtin) *TypeDef {
	params := b.Sig.Params
	if params == nil {
		params = []*TypeDef{}
	}
	ret := b.Sig.Ret
	if ret == nil {
		ret = AnyType
	}
	t := FuncType(params, ret)
	t.NonConstant = b.Sig.Impure
	return t
}

// markNC returns t flagged NonConstant. Shared singletons are copied
// rather than mutated.
func markNC(t *TypeDef, nc bool) *TypeDef {
	if !nc || t.NonConstant {
		return t
	}
	cp := *t
	cp.NonConstant = true
	return &cp
}

func (inf *inferState) wantBool(t *TypeDef, path NodePath, what string) {
	if t.Kind == TAny {
		return
	}
	if !Subtype(t, BooleanType) {
		inf.report(path, "%s must be Boolean, got %s", what, t)
	}
}

// ----- navigation -----

func (inf *inferState) memberType(obj *TypeDef, name string, required bool, path NodePath) *TypeDef {
	switch obj.Kind {
	case TAny:
		return AnyType
	case TObject:
		if p, ok := obj.propNamed(name); ok {
			t := p.Type
			if p.Nullable || !obj.Required[name] {
				t = Nullable(t)
			}
			return markNC(t, obj.NonConstant)
		}
		if obj.Open {
			return AnyType
		}
		if required {
			inf.report(path, "member %q not found in %s", name, obj)
		}
		return NullType
	case TMap:
		return markNC(obj.Value, obj.NonConstant)
	case TArray:
		// access maps over arrays elementwise
		return markNC(ArrayOf(inf.memberType(obj.Elem, name, required, path)), obj.NonConstant)
	case TUnion:
		var u *TypeDef
		for _, alt := range obj.Alts {
			u = Unify(u, inf.memberType(alt, name, false, path))
		}
		return u
	}
	if required {
		inf.report(path, "cannot access member %q of %s", name, obj)
	}
	return AnyType
}

func (inf *inferState) indexType(obj *TypeDef, i int64, path NodePath) *TypeDef {
	switch obj.Kind {
	case TAny:
		return AnyType
	case TArray:
		return markNC(obj.Elem, obj.NonConstant)
	case TTuple:
		if i >= 0 && int(i) < len(obj.Items) {
			return obj.Items[i]
		}
		inf.report(path, "index %d out of bounds for %s", i, obj)
		return AnyType
	}
	inf.report(path, "cannot index %s", obj)
	return AnyType
}

// ----- object construction -----

func (inf *inferState) inferObject(n S, path NodePath, scope *typeScope, ctx *TypeDef) *TypeDef {
	out := &TypeDef{Kind: TObject, Required: map[string]bool{}}
	nc := false
	for i := 1; i < len(n); i++ {
		entry := n[i].(S)
		entryPath := childPath(path, i-1)
		switch entry[0] {
		case "field":
			key := entry[1].(S)[1].(string)
			t := inf.infer(entry[2].(S), childPath(entryPath, 1), scope, ctx)
			nc = nc || t.NonConstant
			out.Props = append(out.Props, Prop{Name: key, Type: t})
			out.Required[key] = true
		case "dynfield":
			k := inf.infer(entry[1].(S), childPath(entryPath, 0), scope, ctx)
			if k.Kind != TAny && !Subtype(k, StringType) {
				inf.report(entryPath, "dynamic object key must be String, got %s", k)
			}
			t := inf.infer(entry[2].(S), childPath(entryPath, 1), scope, ctx)
			nc = nc || t.NonConstant
			// key unknown statically: the object stays open
			out.Open = true
		case "attrfield", "dirfield":
			// metadata side channels do not contribute properties
			inf.infer(entry[2].(S), childPath(entryPath, 1), scope, ctx)
		}
	}
	return markNC(out, nc)
}

// ----- calls -----

// higher-order builtins whose function argument sees the receiver's
// element type: name → index of the function parameter.
var elementBound = map[string]int{
	"map":     1,
	"filter":  1,
	"sortBy":  1,
	"groupBy": 1,
}

func (inf *inferState) inferCall(n S, path NodePath, scope *typeScope, ctx *TypeDef) *TypeDef {
	callee := n[1].(S)

	if len(callee) == 2 && callee[0] == "id" && callee[1] == "apply" {
		if len(n) == 3 {
			inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
		}
		if inf.rules == nil {
			inf.report(path, "apply used outside a template body")
			return ArrayOf(AnyType)
		}
		var u *TypeDef
		for i := range inf.rules {
			u = Unify(u, inf.inferRule(i, scope))
		}
		if u == nil {
			u = AnyType
		}
		return ArrayOf(u)
	}

	name := ""
	if len(callee) == 2 && callee[0] == "id" {
		name, _ = callee[1].(string)
	}

	// reduce(xs, (acc, e) => ..., init): the initial value is typed first
	// so it can seed the reducer's accumulator parameter.
	if name == "reduce" && len(n) == 5 {
		if lam, isLam := n[3].(S); isLam && lam[0] == "lambda" {
			xs := inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
			init := inf.infer(n[4].(S), childPath(path, 3), scope, ctx)
			red := inf.inferReducerLambda(lam, childPath(path, 2), scope, ctx, elemType(xs), init)
			fn := inf.infer(callee, childPath(path, 0), scope, ctx)
			return inf.applyType(name, fn, []*TypeDef{xs, red, init}, path)
		}
	}

	args := make([]*TypeDef, 0, len(n)-2)
	for i := 2; i < len(n); i++ {
		argPath := childPath(path, i-1)
		argCtx := ctx
		// Element binding: a lambda passed to map/filter/... sees the
		// receiver's element type as its parameter type.
		if fi, ok := elementBound[name]; ok && i-2 == fi && len(args) > fi-1 && fi >= 1 {
			if lam, isLam := n[i].(S); isLam && lam[0] == "lambda" {
				args = append(args, inf.inferBoundLambda(lam, argPath, scope, argCtx, elemType(args[0])))
				continue
			}
		}
		args = append(args, inf.infer(n[i].(S), argPath, scope, argCtx))
	}

	fn := inf.infer(callee, childPath(path, 0), scope, ctx)
	return inf.applyType(name, fn, args, path)
}

// inferBoundLambda types a lambda literal whose first parameter is known
// to receive elem.
func (inf *inferState) inferBoundLambda(lam S, path NodePath, scope *typeScope, ctx, elem *TypeDef) *TypeDef {
	params := lam[1].(S)
	pts := make([]*TypeDef, len(params)-1)
	child := newTypeScope(scope)
	for i := 1; i < len(params); i++ {
		t := AnyType
		if i == 1 {
			t = elem
		}
		pts[i-1] = t
		child.define(params[i].(string), t)
	}
	ret := inf.infer(lam[2].(S), childPath(path, 1), child, ctx)
	return FuncType(pts, ret)
}

// inferReducerLambda types reduce's (acc, elem) => ... reducer. The
// accumulator is seeded with the initial value's type; inference does
// not iterate to a fixpoint, and sharpen unifies the seed with the
// reducer's return afterwards.
func (inf *inferState) inferReducerLambda(lam S, path NodePath, scope *typeScope, ctx, elem, acc *TypeDef) *TypeDef {
	params := lam[1].(S)
	pts := make([]*TypeDef, len(params)-1)
	child := newTypeScope(scope)
	for i := 1; i < len(params); i++ {
		t := AnyType
		switch i {
		case 1:
			t = acc
		case 2:
			t = elem
		}
		pts[i-1] = t
		child.define(params[i].(string), t)
	}
	ret := inf.infer(lam[2].(S), childPath(path, 1), child, ctx)
	return FuncType(pts, ret)
}

// applyType checks a call against the callee's function type and
// produces the result type. A handful of builtins get sharper results
// than their declared signatures.
func (inf *inferState) applyType(name string, fn *TypeDef, args []*TypeDef, path NodePath) *TypeDef {
	if fn.Kind == TAny {
		return AnyType
	}
	if fn.Kind != TFunction {
		inf.report(path, "cannot call %s value", fn)
		return AnyType
	}
	if len(fn.Params) != len(args) {
		// Builtins may be variadic; re-check against the registry entry.
		b, ok := inf.reg.Lookup(name)
		if !ok || !b.Sig.Variadic || len(args) < len(fn.Params)-1 {
			inf.report(path, "%s takes %d arguments, got %d", callName(name), len(fn.Params), len(args))
			return orAny(fn.Ret)
		}
	}
	for i, a := range args {
		pi := i
		if pi >= len(fn.Params) {
			pi = len(fn.Params) - 1
		}
		if pi < 0 {
			break
		}
		want := fn.Params[pi]
		if want.Kind == TAny || a.Kind == TAny {
			continue
		}
		if !Subtype(a, want) {
			inf.report(path, "argument %d of %s must be %s, got %s", i+1, callName(name), want, a)
		}
	}

	ret := inf.sharpen(name, fn, args)
	nc := fn.NonConstant
	for _, a := range args {
		nc = nc || a.NonConstant
	}
	return markNC(ret, nc)
}

// sharpen refines a builtin's declared return type from its argument
// types.
func (inf *inferState) sharpen(name string, fn *TypeDef, args []*TypeDef) *TypeDef {
	elem := AnyType
	if len(args) > 0 {
		elem = elemType(args[0])
	}
	switch name {
	case "map":
		if len(args) == 2 && args[1].Kind == TFunction {
			return ArrayOf(orAny(args[1].Ret))
		}
	case "filter", "reverse", "distinct", "sort", "sortBy":
		if len(args) > 0 && args[0].Kind == TArray {
			return args[0]
		}
	case "first", "last", "min", "max":
		if len(args) > 0 && args[0].Kind == TArray {
			return elem
		}
	case "reduce":
		if len(args) == 3 {
			if args[1].Kind == TFunction {
				return Unify(args[2], orAny(args[1].Ret))
			}
			return args[2]
		}
	case "flatten":
		if len(args) > 0 && args[0].Kind == TArray {
			return ArrayOf(elemType(elem))
		}
	case "sum":
		if elem.Kind == TScalar && elem.Scalar == SInteger {
			return IntegerType
		}
	case "groupBy":
		if len(args) > 0 && args[0].Kind == TArray {
			return MapOf(args[0])
		}
	case "keys":
		return ArrayOf(StringType)
	case "values", "entries":
		// declared signatures are already as sharp as it gets
	case "default":
		if len(args) == 2 {
			if isScalarKind(args[0], SNull) {
				return args[1]
			}
			return Unify(stripNull(args[0]), args[1])
		}
	}
	return orAny(fn.Ret)
}

// stripNull removes the Null alternative from a union.
func stripNull(t *TypeDef) *TypeDef {
	if t.Kind != TUnion {
		return t
	}
	var kept []*TypeDef
	for _, a := range t.Alts {
		if a.Kind == TScalar && a.Scalar == SNull {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		return t
	}
	return UnionOf(kept...)
}

func orAny(t *TypeDef) *TypeDef {
	if t == nil {
		return AnyType
	}
	return t
}

func callName(name string) string {
	if name == "" {
		return "function"
	}
	return name
}

// ----- operators -----

func (inf *inferState) inferBinop(n S, path NodePath, scope *typeScope, ctx *TypeDef) *TypeDef {
	op := n[1].(string)

	if op == "|>" {
		return inf.inferPipe(n, path, scope, ctx)
	}

	lhs := inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
	rhs := inf.infer(n[3].(S), childPath(path, 2), scope, ctx)
	nc := lhs.NonConstant || rhs.NonConstant

	switch op {
	case "and", "or":
		inf.wantBool(lhs, childPath(path, 1), "operand of "+op)
		inf.wantBool(rhs, childPath(path, 2), "operand of "+op)
		return markNC(BooleanType, nc)
	case "==", "!=":
		return markNC(BooleanType, nc)
	case "<", "<=", ">", ">=":
		if !comparable2(lhs, rhs) {
			inf.report(path, "cannot compare %s with %s", lhs, rhs)
		}
		return markNC(BooleanType, nc)
	case "+":
		return markNC(inf.addType(lhs, rhs, path), nc)
	case "-", "*":
		return markNC(inf.numericType(op, lhs, rhs, path), nc)
	case "/":
		inf.checkNumeric(op, lhs, rhs, path)
		return markNC(NumberType, nc)
	case "%":
		if !maybeInteger(lhs) || !maybeInteger(rhs) {
			inf.report(path, "operands of %% must be Integer, got %s and %s", lhs, rhs)
		}
		return markNC(IntegerType, nc)
	}
	panic(fmt.Sprintf("unhandled binary operator %q", op))
}

func (inf *inferState) inferPipe(n S, path NodePath, scope *typeScope, ctx *TypeDef) *TypeDef {
	lhs := inf.infer(n[2].(S), childPath(path, 1), scope, ctx)
	rhs := n[3].(S)
	rhsPath := childPath(path, 2)

	switch rhs[0] {
	case "call":
		callee := rhs[1].(S)
		name := ""
		if len(callee) == 2 && callee[0] == "id" {
			name, _ = callee[1].(string)
		}
		// xs |> reduce((acc, e) => ..., init): type init first to seed acc
		if name == "reduce" && len(rhs) == 4 {
			if lam, isLam := rhs[2].(S); isLam && lam[0] == "lambda" {
				init := inf.infer(rhs[3].(S), childPath(rhsPath, 2), scope, ctx)
				red := inf.inferReducerLambda(lam, childPath(rhsPath, 1), scope, ctx, elemType(lhs), init)
				fn := inf.infer(callee, childPath(rhsPath, 0), scope, ctx)
				return inf.applyType(name, fn, []*TypeDef{lhs, red, init}, path)
			}
		}

		args := []*TypeDef{lhs}
		for i := 2; i < len(rhs); i++ {
			argPath := childPath(rhsPath, i-1)
			if fi, ok := elementBound[name]; ok && i-1 == fi {
				if lam, isLam := rhs[i].(S); isLam && lam[0] == "lambda" {
					args = append(args, inf.inferBoundLambda(lam, argPath, scope, ctx, elemType(lhs)))
					continue
				}
			}
			args = append(args, inf.infer(rhs[i].(S), argPath, scope, ctx))
		}
		fn := inf.infer(callee, childPath(rhsPath, 0), scope, ctx)
		return inf.applyType(name, fn, args, path)
	case "id", "var", "lambda":
		name := ""
		if rhs[0] == "id" {
			name, _ = rhs[1].(string)
		}
		fn := inf.infer(rhs, rhsPath, scope, ctx)
		return inf.applyType(name, fn, []*TypeDef{lhs}, path)
	}
	inf.report(rhsPath, "right side of |> must be a function or a call")
	return AnyType
}

func (inf *inferState) unopType(op string, rhs *TypeDef, path NodePath) *TypeDef {
	switch op {
	case "-":
		if rhs.Kind == TAny {
			return AnyType
		}
		if !Subtype(rhs, NumberType) {
			inf.report(path, "cannot negate %s", rhs)
			return NumberType
		}
		return markNC(&TypeDef{Kind: TScalar, Scalar: baseScalar(rhs)}, rhs.NonConstant)
	case "not":
		inf.wantBool(rhs, path, "operand of 'not'")
		return markNC(BooleanType, rhs.NonConstant)
	}
	panic(fmt.Sprintf("unhandled unary operator %q", op))
}

func baseScalar(t *TypeDef) ScalarKind {
	if t.Kind == TScalar {
		return t.Scalar
	}
	return SNumber
}

func (inf *inferState) addType(lhs, rhs *TypeDef, path NodePath) *TypeDef {
	if lhs.Kind == TAny || rhs.Kind == TAny {
		return AnyType
	}
	switch {
	case isScalarKind(lhs, SInteger) && isScalarKind(rhs, SInteger):
		return IntegerType
	case Subtype(lhs, NumberType) && Subtype(rhs, NumberType):
		return NumberType
	case isScalarKind(lhs, SString) && isScalarKind(rhs, SString):
		return StringType
	case lhs.Kind == TArray && rhs.Kind == TArray:
		return ArrayOf(Unify(lhs.Elem, rhs.Elem))
	case lhs.Kind == TObject && rhs.Kind == TObject:
		return mergeObjectTypes(lhs, rhs)
	}
	inf.report(path, "cannot add %s and %s", lhs, rhs)
	return AnyType
}

// mergeObjectTypes models "+" on objects: right side wins on collisions.
func mergeObjectTypes(a, b *TypeDef) *TypeDef {
	out := &TypeDef{Kind: TObject, Required: map[string]bool{}, Open: a.Open || b.Open}
	for _, p := range a.Props {
		if q, ok := b.propNamed(p.Name); ok {
			out.Props = append(out.Props, q)
			out.Required[p.Name] = b.Required[p.Name]
			continue
		}
		out.Props = append(out.Props, p)
		out.Required[p.Name] = a.Required[p.Name]
	}
	for _, q := range b.Props {
		if _, ok := a.propNamed(q.Name); !ok {
			out.Props = append(out.Props, q)
			out.Required[q.Name] = b.Required[q.Name]
		}
	}
	return out
}

func (inf *inferState) numericType(op string, lhs, rhs *TypeDef, path NodePath) *TypeDef {
	inf.checkNumeric(op, lhs, rhs, path)
	if isScalarKind(lhs, SInteger) && isScalarKind(rhs, SInteger) {
		return IntegerType
	}
	return NumberType
}

func (inf *inferState) checkNumeric(op string, lhs, rhs *TypeDef, path NodePath) {
	if lhs.Kind != TAny && !Subtype(lhs, NumberType) {
		inf.report(path, "operands of %q must be numeric, got %s", op, lhs)
	}
	if rhs.Kind != TAny && !Subtype(rhs, NumberType) {
		inf.report(path, "operands of %q must be numeric, got %s", op, rhs)
	}
}

func isScalarKind(t *TypeDef, k ScalarKind) bool {
	return t.Kind == TScalar && t.Scalar == k
}

func maybeInteger(t *TypeDef) bool {
	return t.Kind == TAny || isScalarKind(t, SInteger)
}

func comparable2(a, b *TypeDef) bool {
	if a.Kind == TAny || b.Kind == TAny {
		return true
	}
	if Subtype(a, NumberType) && Subtype(b, NumberType) {
		return true
	}
	return Subtype(a, StringType) && Subtype(b, StringType)
}
