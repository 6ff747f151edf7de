// printer.go — canonical source regeneration from the AST.
//
// FormatProgram and FormatExpr print the parse tree back out as UTL-X
// source. The output is canonical rather than faithful: comments are
// gone (the lexer drops them), spacing and parenthesization follow fixed
// rules, and parentheses appear exactly where operator precedence needs
// them. Formatting is idempotent: parse(print(ast)) == ast.
package utlx

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FormatProgram renders a parsed program as canonical source.
func FormatProgram(prog *Program) string {
	var o out
	o.b = &strings.Builder{}

	o.write("%utlx " + prog.Version + "\n")
	o.write("%input " + prog.Input.String() + "\n")
	o.write("%output " + prog.Output.String() + "\n")

	binds := prog.Binds()
	if len(binds) > 1 {
		o.nl()
		for i := 1; i < len(binds); i++ {
			b := binds[i].(S)
			o.write("let " + b[1].(S)[1].(string) + " = ")
			o.expr(b[2].(S), 0)
			o.nl()
		}
	}

	o.write("---\n")

	body := prog.Body()
	if body[0] == "templates" {
		for i := 1; i < len(body); i++ {
			rule := body[i].(S)
			o.write("template " + quoteString(rule[1].(S)[1].(string)) + " => ")
			o.expr(rule[2].(S), 0)
			if i < len(body)-1 {
				o.write(",")
			}
			o.nl()
		}
	} else {
		o.expr(body, 0)
		o.nl()
	}
	return o.b.String()
}

// FormatExpr renders a standalone expression.
func FormatExpr(n S) string {
	var o out
	o.b = &strings.Builder{}
	o.expr(n, 0)
	return o.b.String()
}

type out struct {
	b     *strings.Builder
	depth int
}

func (o *out) write(s string) { o.b.WriteString(s) }
func (o *out) nl()            { o.b.WriteByte('\n') }
func (o *out) pad() {
	for i := 0; i < o.depth; i++ {
		o.b.WriteString("  ")
	}
}

// binding powers mirror the parser's lbp table so parentheses land
// exactly where re-parsing needs them.
var printBP = map[string]int{
	"|>": 10,
	"or": 20, "and": 30,
	"==": 40, "!=": 40,
	"<": 50, "<=": 50, ">": 50, ">=": 50,
	"+": 60, "-": 60,
	"*": 70, "/": 70, "%": 70,
}

// expr prints n, parenthesizing when its top operator binds looser than
// the surrounding context minBP.
func (o *out) expr(n S, minBP int) {
	switch tag := n[0].(string); tag {
	case "null":
		o.write("null")
	case "bool":
		o.write(strconv.FormatBool(n[1].(bool)))
	case "int":
		o.write(strconv.FormatInt(n[1].(int64), 10))
	case "num":
		o.write(formatNum(n[1].(float64)))
	case "str":
		o.write(quoteString(n[1].(string)))
	case "context":
		o.write("$")
	case "var":
		o.write("$" + n[1].(string))
	case "id":
		o.write(n[1].(string))
	case "array":
		o.write("[")
		for i := 1; i < len(n); i++ {
			if i > 1 {
				o.write(", ")
			}
			o.expr(n[i].(S), 0)
		}
		o.write("]")
	case "object":
		o.object(n)
	case "get":
		recv := n[1].(S)
		name := n[2].(S)[1].(string)
		if recv[0] == "context" {
			// $.name prints as the bare path .name
			o.write("." + memberKey(name))
			return
		}
		o.expr(recv, 80)
		o.write("." + memberKey(name))
	case "sget":
		o.expr(n[1].(S), 80)
		o.write("?." + memberKey(n[2].(S)[1].(string)))
	case "attr":
		recv := n[1].(S)
		name := n[2].(S)[1].(string)
		if recv[0] == "context" {
			// @name sugar and $.@name share one AST shape
			o.write("@" + name)
			return
		}
		o.expr(recv, 80)
		o.write(".@" + name)
	case "meta":
		o.expr(n[1].(S), 80)
		o.write(".^" + n[2].(S)[1].(string))
	case "wild":
		o.expr(n[1].(S), 80)
		o.write(".*")
	case "desc":
		o.expr(n[1].(S), 80)
		o.write(".." + n[2].(S)[1].(string))
	case "idx":
		o.expr(n[1].(S), 80)
		o.write("[" + strconv.FormatInt(n[2].(S)[1].(int64), 10) + "]")
	case "pred":
		o.expr(n[1].(S), 80)
		o.write("[")
		o.expr(n[2].(S), 0)
		o.write("]")
	case "call":
		o.expr(n[1].(S), 80)
		o.write("(")
		for i := 2; i < len(n); i++ {
			if i > 2 {
				o.write(", ")
			}
			o.expr(n[i].(S), 0)
		}
		o.write(")")
	case "binop":
		op := n[1].(string)
		bp := printBP[op]
		if bp < minBP {
			o.write("(")
		}
		o.expr(n[2].(S), bp)
		o.write(" " + op + " ")
		o.expr(n[3].(S), bp+1)
		if bp < minBP {
			o.write(")")
		}
	case "unop":
		op := n[1].(string)
		if op == "not" {
			op = "not "
		}
		if 75 < minBP {
			o.write("(" + op)
			o.expr(n[2].(S), 75)
			o.write(")")
			return
		}
		o.write(op)
		o.expr(n[2].(S), 75)
	case "if":
		if minBP > 0 {
			o.write("(")
		}
		o.write("if (")
		o.expr(n[1].(S), 0)
		o.write(") ")
		o.expr(n[2].(S), 1)
		o.write(" else ")
		o.expr(n[3].(S), 1)
		if minBP > 0 {
			o.write(")")
		}
	case "match":
		o.write("match ")
		o.expr(n[1].(S), 80)
		o.write(" {")
		o.depth++
		for i := 2; i < len(n); i++ {
			cs := n[i].(S)
			o.nl()
			o.pad()
			pat := cs[1].(S)
			if pat[0] == "wild" {
				o.write("_")
			} else {
				o.expr(pat, 0)
			}
			o.write(" => ")
			o.expr(cs[2].(S), 0)
			if i < len(n)-1 {
				o.write(",")
			}
		}
		o.depth--
		o.nl()
		o.pad()
		o.write("}")
	case "let":
		if minBP > 0 {
			o.write("(")
		}
		o.write("let ")
		for i := 1; i < len(n)-1; i++ {
			if i > 1 {
				o.write(", ")
			}
			b := n[i].(S)
			o.write(b[1].(S)[1].(string) + " = ")
			o.expr(b[2].(S), 0)
		}
		o.write(" in ")
		o.expr(n[len(n)-1].(S), 1)
		if minBP > 0 {
			o.write(")")
		}
	case "lambda":
		params := n[1].(S)
		if minBP > 0 {
			o.write("(")
		}
		if len(params) == 2 {
			o.write(params[1].(string))
		} else {
			o.write("(")
			for i := 1; i < len(params); i++ {
				if i > 1 {
					o.write(", ")
				}
				o.write(params[i].(string))
			}
			o.write(")")
		}
		o.write(" => ")
		o.expr(n[2].(S), 1)
		if minBP > 0 {
			o.write(")")
		}
	default:
		panic(fmt.Sprintf("unhandled AST node tag %q", tag))
	}
}

func (o *out) object(n S) {
	if len(n) == 1 {
		o.write("{}")
		return
	}
	o.write("{")
	o.depth++
	for i := 1; i < len(n); i++ {
		entry := n[i].(S)
		o.nl()
		o.pad()
		switch entry[0] {
		case "field":
			o.write(fieldKey(entry[1].(S)[1].(string)) + ": ")
		case "attrfield":
			o.write("@" + entry[1].(S)[1].(string) + ": ")
		case "dirfield":
			o.write("!" + entry[1].(S)[1].(string) + ": ")
		case "dynfield":
			o.write("(")
			o.expr(entry[1].(S), 0)
			o.write("): ")
		}
		o.expr(entry[2].(S), 0)
		if i < len(n)-1 {
			o.write(",")
		}
	}
	o.depth--
	o.nl()
	o.pad()
	o.write("}")
}

func fieldKey(s string) string {
	if isIdent(s) {
		return s
	}
	return quoteString(s)
}

func memberKey(s string) string {
	if isIdent(s) {
		return s
	}
	return quoteString(s)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	rs := []rune(s)
	if !(unicode.IsLetter(rs[0]) || rs[0] == '_') {
		return false
	}
	for _, r := range rs[1:] {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatNum(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// keep a decimal point so the literal re-lexes as NUMBER
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
