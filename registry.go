// registry.go — the builtin function registry.
//
// A Registry is an explicit value handed to Evaluate and Infer; there is no
// package-global function table. NewRegistry loads the standard library
// (builtin_core.go, builtin_strings.go, builtin_math.go,
// builtin_datetime.go); embedders may register additional functions or
// start from an empty registry.
package utlx

import (
	"fmt"
	"sort"
	"time"
)

// Signature declares a builtin's parameter and return types for the
// argument checker and the inference engine. Impure marks functions whose
// result depends on the environment (clock reads); inference flags their
// results as non-constant.
type Signature struct {
	Params   []*TypeDef
	Ret      *TypeDef
	Variadic bool // last param may repeat
	Impure   bool
}

// Call carries one builtin invocation: checked arguments plus access to
// the evaluator for higher-order builtins.
type Call struct {
	Name string
	Args []Node

	ev *evalState
}

// Arg returns the i-th argument.
func (c *Call) Arg(i int) Node { return c.Args[i] }

// Str returns the i-th argument as a string or fails the call.
func (c *Call) Str(i int) string {
	a := c.Args[i]
	if a.Kind != KStr {
		c.Failf("argument %d of %s must be Str, got %s", i+1, c.Name, a.Kind)
	}
	return a.Data.(string)
}

// Int returns the i-th argument as an int64 or fails the call.
func (c *Call) Int(i int) int64 {
	a := c.Args[i]
	if a.Kind != KInt {
		c.Failf("argument %d of %s must be Int, got %s", i+1, c.Name, a.Kind)
	}
	return a.Data.(int64)
}

// Float returns the i-th argument as a float64, accepting Int or Num.
func (c *Call) Float(i int) float64 {
	a := c.Args[i]
	switch a.Kind {
	case KInt:
		return float64(a.Data.(int64))
	case KNum:
		return a.Data.(float64)
	}
	c.Failf("argument %d of %s must be numeric, got %s", i+1, c.Name, a.Kind)
	return 0
}

// Array returns the i-th argument's elements or fails the call.
func (c *Call) Array(i int) []Node {
	a := c.Args[i]
	if a.Kind != KArray {
		c.Failf("argument %d of %s must be Array, got %s", i+1, c.Name, a.Kind)
	}
	return a.Data.([]Node)
}

// Func returns the i-th argument as a closure or fails the call.
func (c *Call) Func(i int) *Closure {
	a := c.Args[i]
	if a.Kind != KFunc {
		c.Failf("argument %d of %s must be a function, got %s", i+1, c.Name, a.Kind)
	}
	return a.Data.(*Closure)
}

// Invoke calls a function value (closure or builtin reference) with args.
// Used by higher-order builtins like map and reduce.
func (c *Call) Invoke(fn Node, args ...Node) Node {
	if fn.Kind != KFunc {
		c.Failf("%s expected a function value, got %s", c.Name, fn.Kind)
	}
	return c.ev.callClosure(fn.Data.(*Closure), args)
}

// Now returns the evaluation clock (Options.Now, or the wall clock).
func (c *Call) Now() time.Time {
	if c.ev != nil && c.ev.opts.Now != nil {
		return c.ev.opts.Now()
	}
	return time.Now()
}

// Fail aborts the call with an argument diagnostic.
func (c *Call) Fail(msg string) { failKind(DiagArg, msg) }

// Failf is Fail with formatting.
func (c *Call) Failf(format string, args ...any) {
	failKind(DiagArg, fmt.Sprintf(format, args...))
}

// BuiltinImpl is the Go implementation of one builtin.
type BuiltinImpl func(c *Call) Node

// Builtin is one registered function.
type Builtin struct {
	Name string
	Sig  Signature
	Doc  string
	Impl BuiltinImpl
}

// Registry maps names to builtins. Construct with NewRegistry (full
// standard library) or new(Registry) (empty) and pass it explicitly to
// Evaluate/Infer.
type Registry struct {
	m map[string]*Builtin
}

// NewRegistry returns a registry loaded with the standard library.
func NewRegistry() *Registry {
	r := &Registry{m: map[string]*Builtin{}}
	registerCoreBuiltins(r)
	registerStringBuiltins(r)
	registerMathBuiltins(r)
	registerDateTimeBuiltins(r)
	return r
}

// Register adds or replaces a builtin.
func (r *Registry) Register(name string, sig Signature, impl BuiltinImpl) {
	if r.m == nil {
		r.m = map[string]*Builtin{}
	}
	r.m[name] = &Builtin{Name: name, Sig: sig, Impl: impl}
}

// Lookup returns the builtin registered under name.
func (r *Registry) Lookup(name string) (*Builtin, bool) {
	if r == nil {
		return nil, false
	}
	b, ok := r.m[name]
	return b, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.m))
	for k := range r.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// setBuiltinDoc attaches help text shown by the REPL.
func setBuiltinDoc(r *Registry, name, doc string) {
	if b, ok := r.m[name]; ok {
		b.Doc = doc
	}
}

// checkArgs validates arity and argument shapes against the signature.
// Reported as DiagArg so callers can distinguish misuse from data errors.
func checkArgs(b *Builtin, args []Node) {
	np := len(b.Sig.Params)
	if b.Sig.Variadic {
		if len(args) < np-1 {
			failKind(DiagArg, fmt.Sprintf("%s takes at least %d arguments, got %d", b.Name, np-1, len(args)))
		}
	} else if len(args) != np {
		failKind(DiagArg, fmt.Sprintf("%s takes %d arguments, got %d", b.Name, np, len(args)))
	}
	for i, a := range args {
		pi := i
		if pi >= np {
			pi = np - 1 // variadic tail
		}
		want := runtimeShape(b.Sig.Params[pi])
		if want == nil || want.Kind == TAny {
			continue
		}
		if !Subtype(ShapeOf(a), want) {
			failKind(DiagArg, fmt.Sprintf("argument %d of %s must be %s, got %s", i+1, b.Name, want, a.Kind))
		}
	}
}

// runtimeShape relaxes date parameters to Str. Dates have no kind of
// their own in the data model; whether a string actually parses is the
// builtin's check, not the shape checker's.
func runtimeShape(t *TypeDef) *TypeDef {
	if t != nil && t.Kind == TScalar && (t.Scalar == SDate || t.Scalar == SDateTime) {
		return StringType
	}
	return t
}
