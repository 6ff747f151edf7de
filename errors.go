// errors.go: the diagnostic taxonomy and caret-snippet rendering.
//
// Every stage of the pipeline (lexer, parser, semantic checks, path
// navigation, evaluation, builtin argument checking, type inference)
// reports through the same structured *Error carrying a kind and a
// 1-based line / 0-based column. `WrapErrorWithSource` turns one into a
// readable snippet with a caret pointing at the offending column:
//
//	PARSE ERROR at 3:12: expected ')'
//
//	   2 | let x = (1 + 2
//	   3 |              in x
//	       |            ^
//	   4 | ---
//
// The snippet includes up to one line of context before and after the
// error, numbers the lines, and places a caret under the 1-based column.
package utlx

import (
	"fmt"
	"strings"
)

// DiagKind classifies a diagnostic by pipeline stage.
type DiagKind int

const (
	DiagLex        DiagKind = iota // lexical error
	DiagParse                      // syntax error
	DiagIncomplete                 // syntactically incomplete input (REPL probe)
	DiagSemantic                   // post-parse validation (directives, duplicate keys)
	DiagPath                       // required navigation into absent data
	DiagEval                       // runtime evaluation failure
	DiagArg                        // builtin called with bad arity or argument types
	DiagType                       // static type inference error
)

func (k DiagKind) label() string {
	switch k {
	case DiagLex:
		return "LEXICAL ERROR"
	case DiagParse, DiagIncomplete:
		return "PARSE ERROR"
	case DiagSemantic:
		return "SEMANTIC ERROR"
	case DiagPath:
		return "PATH ERROR"
	case DiagEval:
		return "RUNTIME ERROR"
	case DiagArg:
		return "ARGUMENT ERROR"
	case DiagType:
		return "TYPE ERROR"
	}
	return "ERROR"
}

// Error is the single diagnostic type surfaced by all public APIs.
// Line is 1-based; Col is 0-based (rendered as 1-based).
type Error struct {
	Kind DiagKind
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind.label(), e.Line, e.Col+1, e.Msg)
}

// IsIncomplete reports whether err marks input that stopped at EOF mid
// construct. The REPL uses it to keep reading lines.
func IsIncomplete(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == DiagIncomplete
}

// IsPathError reports whether err is a required-navigation failure.
func IsPathError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == DiagPath
}

// IsTypeError reports whether err is a static inference diagnostic.
func IsTypeError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == DiagType
}

/* ===========================
   PUBLIC API
   =========================== */

// WrapErrorWithSource returns an error augmented with a caret-annotated
// snippet of the provided source. Non-*Error values pass through unchanged.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName is WrapErrorWithSource with a source name ("in <name>")
// in the header line.
func WrapErrorWithName(err error, srcName string, src string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	return fmt.Errorf("%s", prettyErrorStringLabeled(src, e.Kind.label(), srcName, e.Line, e.Col+1, e.Msg))
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE: rendering
   =========================== */

// prettyErrorStringLabeled builds a Python-like snippet with a header and a
// caret. It shows at most one previous and one next line when available.
// Coordinates are treated as 1-based and clamped to the source bounds.
func prettyErrorStringLabeled(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	caretPad := col - 1
	if caretPad < 0 {
		caretPad = 0
	}
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", caretPad))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
