// parser.go — Pratt parser for UTL-X that produces compact S-expressions.
//
// OVERVIEW
// --------
// Consumes the token stream produced by the whitespace-sensitive lexer
// (see lexer.go) and builds a compact, Lisp-style S-expression AST.
//
//   - '(' can be LROUND or CLROUND; only CLROUND participates in calls.
//   - '[' can be LSQUARE or CLSQUARE; only CLSQUARE participates in
//     indexing and predicates.
//   - An "interactive" mode surfaces *Error{Kind:DiagIncomplete} at EOF
//     instead of hard parse errors, suitable for REPLs.
//
// Nodes
// -----
// The AST is a tree of S-expressions: []any whose first element is a string
// tag. **This list is the most important reference.**
//
// Program structure:
//
//	("program", header, binds, body)
//	("header", ("str", version), ("str", inputFormat), ("str", outputFormat))
//	("binds", ("bind", ("str", name), value)*)
//	("templates", ("template", ("str", pattern), body)*)   // or body is any expr
//
// Literals & references:
//
//	("id",   string)              // bare identifier (function reference)
//	("var",  string)              // $name
//	("context")                   // bare $ (current template context)
//	("int",  int64)
//	("num",  float64)
//	("str",  string)
//	("bool", bool)
//	("null")
//
// Operators / expressions:
//
//	("unop",  op, rhs)            // prefix "-" or "not"
//	("binop", op, lhs, rhs)       // arithmetic, comparisons, "and", "or", "|>"
//
// Navigation / calls:
//
//	("get",  obj, ("str", name))  // obj.name  (required member)
//	("sget", obj, ("str", name))  // obj?.name (safe member)
//	("attr", obj, ("str", name))  // obj.@name (attribute side-channel)
//	("meta", obj, ("str", name))  // obj.^name (metadata side-channel)
//	("idx",  obj, intLiteral)     // obj[0]
//	("pred", obj, condExpr)       // obj[cond]  ($ bound to the candidate)
//	("wild", obj)                 // obj.*
//	("desc", obj, ("str", name))  // obj..name (recursive descent)
//	("call", callee, arg1, ...)
//
// Collections:
//
//	("array", e1, e2, ...)
//	("object", entry*) where entry is one of:
//	    ("field",     ("str", key), value)
//	    ("dynfield",  keyExpr, value)        // (expr): value
//	    ("attrfield", ("str", name), value)  // @name: value
//	    ("dirfield",  ("str", name), value)  // !name: value
//
// Control / binding:
//
//	("if", cond, then, else)
//	("match", subject, ("case", pattern, value)*)   // pattern may be ("wild")
//	("let", ("bind", ("str", name), value)*, body)
//	("lambda", ("params", name1, name2, ...), body) // names are raw strings
//
// SPAN EMISSION INVARIANT
// -----------------------
// Every AST node is constructed through the mk* helpers, which atomically
// append exactly one span for that node. Spans are appended in strict
// post-order of the final AST (children first, then parent, left to right
// among siblings). Synthesized nodes with no concrete tokens still receive
// a placeholder Span{} via tok=-1 so the cardinality stays exact.
package utlx

import (
	"fmt"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

type S = []any

func L(tag string, parts ...any) S { return append([]any{tag}, parts...) }

// Program is a parsed UTL-X transformation ready for evaluation or
// inference.
type Program struct {
	Name    string
	Src     string
	AST     S // ("program", header, binds, body)
	Spans   *SpanIndex
	Version string
	Input   Format
	Output  Format
}

// Body returns the program's body node (an expression or a "templates"
// node).
func (pr *Program) Body() S { return pr.AST[3].(S) }

// Binds returns the program's top-level let bindings node.
func (pr *Program) Binds() S { return pr.AST[2].(S) }

// Parse parses a complete UTL-X source (header, bindings, separator, body)
// and returns the program with its span index.
func Parse(name, src string) (*Program, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: src, lastSpanStartTok: -1, lastSpanEndTok: -1}
	ast, version, inFmt, outFmt, perr := p.program()
	if perr != nil {
		return nil, perr
	}
	inF, err := ParseFormat(inFmt)
	if err != nil {
		return nil, &Error{Kind: DiagParse, Msg: fmt.Sprintf("unknown input format %q", inFmt)}
	}
	outF, err := ParseFormat(outFmt)
	if err != nil {
		return nil, &Error{Kind: DiagParse, Msg: fmt.Sprintf("unknown output format %q", outFmt)}
	}
	return &Program{
		Name:    name,
		Src:     src,
		AST:     ast,
		Spans:   BuildSpanIndexPostOrder(ast, p.post),
		Version: version,
		Input:   inF,
		Output:  outF,
	}, nil
}

// ParseExpr parses a single expression (no header) and returns its AST and
// span index. Used by the REPL and by tests.
func ParseExpr(src string) (S, *SpanIndex, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, nil, err
	}
	p := &parser{toks: toks, src: src, lastSpanStartTok: -1, lastSpanEndTok: -1}
	e, perr := p.exprProgram()
	if perr != nil {
		return nil, nil, perr
	}
	return e, BuildSpanIndexPostOrder(e, p.post), nil
}

// ParseExprInteractive parses like ParseExpr but reports unterminated
// constructs at EOF as *Error{Kind:DiagIncomplete} so a REPL can keep
// reading lines.
func ParseExprInteractive(src string) (S, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: src, interactive: true, lastSpanStartTok: -1, lastSpanEndTok: -1}
	e, perr := p.exprProgram()
	return e, perr
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks        []Token
	i           int
	interactive bool

	post             []Span // strictly post-order: one span per node, appended after children
	lastSpanStartTok int
	lastSpanEndTok   int
	src              string
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) atEnd() bool { return p.peek().Type == EOF }
func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}
func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}
func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	return Token{}, p.errHere(msg)
}

func (p *parser) errHere(msg string) error {
	g := p.peek()
	if g.Type == EOF {
		line, col := p.posAfterLastSpan()
		kind := DiagParse
		if p.interactive {
			kind = DiagIncomplete
		}
		return &Error{Kind: kind, Msg: msg, Line: line, Col: col}
	}
	line, col := OffsetToLineCol(p.src, g.StartByte)
	return &Error{Kind: DiagParse, Msg: msg, Line: line, Col: col}
}

func (p *parser) posAfterLastSpan() (int, int) {
	if p.lastSpanEndTok >= 0 && p.lastSpanEndTok < len(p.toks) {
		return OffsetToLineCol(p.src, p.toks[p.lastSpanEndTok].EndByte)
	}
	g := p.peek()
	return g.Line, g.Col
}

func tokText(t Token) string {
	if s, ok := t.Literal.(string); ok {
		return s
	}
	return t.Lexeme
}

// ───────────────────────── precedence / associativity ──────────────────────

func lbp(t TokenType) (int, bool) {
	switch t {
	case PIPE:
		return 10, true
	case OR:
		return 20, true
	case AND:
		return 30, true
	case EQ, NEQ:
		return 40, true
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return 50, true
	case PLUS, MINUS:
		return 60, true
	case MULT, DIV, MOD:
		return 70, true
	}
	return 0, false
}

func opName(t TokenType) string {
	switch t {
	case PIPE:
		return "|>"
	case OR:
		return "or"
	case AND:
		return "and"
	case EQ:
		return "=="
	case NEQ:
		return "!="
	case LESS:
		return "<"
	case LESS_EQ:
		return "<="
	case GREATER:
		return ">"
	case GREATER_EQ:
		return ">="
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case MULT:
		return "*"
	case DIV:
		return "/"
	case MOD:
		return "%"
	}
	return "?"
}

// ───────────────────────────── span emission (core) ─────────────────────────
//
// Centralized helpers. All node construction goes through these, which also
// append exactly one span for the node (post-order).
//
//   - For leaves tied to a concrete token, pass tok≥0 (start=end=tok).
//   - For synthetic leaves, pass tok=-1 to emit Span{}.
//   - For parents, pass the token range [startTok, endTok] covering the node.

func (p *parser) appendNodeSpanByTok(startTok, endTok int) {
	if startTok >= 0 && endTok >= startTok &&
		startTok < len(p.toks) && endTok < len(p.toks) {
		p.post = append(p.post, Span{
			StartByte: p.toks[startTok].StartByte,
			EndByte:   p.toks[endTok].EndByte,
		})
	} else {
		p.post = append(p.post, Span{})
	}
	p.lastSpanStartTok = startTok
	p.lastSpanEndTok = endTok
}

// mkLeaf builds a leaf node whose span is a single token (tok). If tok<0,
// a placeholder empty span is appended (keeps post-order cardinality intact).
func (p *parser) mkLeaf(tag string, tok int, parts ...any) S {
	n := L(tag, parts...)
	p.appendNodeSpanByTok(tok, tok)
	return n
}

// mk builds a parent node after its children were already constructed.
// It appends exactly one span for the parent covering [startTok,endTok].
func (p *parser) mk(tag string, startTok, endTok int, parts ...any) S {
	n := L(tag, parts...)
	p.appendNodeSpanByTok(startTok, endTok)
	return n
}

// ───────────────────────── program structure ────────────────────────────

// program parses: header directives, top-level lets, "---", body.
func (p *parser) program() (ast S, version, inFmt, outFmt string, err error) {
	verTok, inTok, outTok := -1, -1, -1
	version, inFmt, outFmt = "1.0", "json", "json"
	sawVersion := false

	for p.peek().Type == DIRECTIVE {
		d := p.peek()
		name, _ := d.Literal.(string)
		p.i++
		switch name {
		case "utlx":
			v := p.peek()
			if v.Type != NUMBER && v.Type != INTEGER && v.Type != STRING {
				return nil, "", "", "", p.errHere("expected version after %utlx")
			}
			p.i++
			version = strings.TrimSpace(v.Lexeme)
			if v.Type == STRING {
				version = tokText(v)
			}
			verTok = p.i - 1
			sawVersion = true
		case "input", "output":
			v, e := p.need(ID, "expected format name after %"+name)
			if e != nil {
				return nil, "", "", "", e
			}
			if name == "input" {
				inFmt, inTok = tokText(v), p.i-1
			} else {
				outFmt, outTok = tokText(v), p.i-1
			}
		default:
			return nil, "", "", "", p.errHere("unknown header directive %" + name)
		}
	}
	if !sawVersion {
		return nil, "", "", "", p.errHere("expected %utlx version directive")
	}

	verNode := p.mkLeaf("str", verTok, version)
	inNode := p.mkLeaf("str", inTok, inFmt)
	outNode := p.mkLeaf("str", outTok, outFmt)
	header := p.mk("header", verTok, maxTok(verTok, inTok, outTok), verNode, inNode, outNode)

	// top-level let bindings, one per 'let'
	var bindItems []any
	bindsStart, bindsEnd := -1, -1
	for p.peek().Type == LET {
		start := p.i
		p.i++
		nameTok, e := p.need(ID, "expected name after 'let'")
		if e != nil {
			return nil, "", "", "", e
		}
		if _, e := p.need(ASSIGN, "expected '=' in let binding"); e != nil {
			return nil, "", "", "", e
		}
		nameNode := p.mkLeaf("str", p.i-2, tokText(nameTok))
		val, e := p.expr(0)
		if e != nil {
			return nil, "", "", "", e
		}
		bindItems = append(bindItems, p.mk("bind", start, p.i-1, nameNode, val))
		if bindsStart < 0 {
			bindsStart = start
		}
		bindsEnd = p.i - 1
	}
	binds := p.mk("binds", bindsStart, bindsEnd, bindItems...)

	if _, e := p.need(SEPARATOR, "expected '---' before the transformation body"); e != nil {
		return nil, "", "", "", e
	}

	var body S
	if p.peek().Type == TEMPLATE {
		var rules []any
		tplStart := p.i
		for p.peek().Type == TEMPLATE {
			start := p.i
			p.i++
			patTok, e := p.need(STRING, "expected match pattern string after 'template'")
			if e != nil {
				return nil, "", "", "", e
			}
			pat := p.mkLeaf("str", p.i-1, tokText(patTok))
			if _, e := p.need(ARROW, "expected '=>' after template pattern"); e != nil {
				return nil, "", "", "", e
			}
			rbody, e := p.expr(0)
			if e != nil {
				return nil, "", "", "", e
			}
			rules = append(rules, p.mk("template", start, p.i-1, pat, rbody))
			p.match(COMMA)
		}
		body = p.mk("templates", tplStart, p.i-1, rules...)
	} else {
		e, err2 := p.expr(0)
		if err2 != nil {
			return nil, "", "", "", err2
		}
		body = e
	}

	if !p.atEnd() {
		return nil, "", "", "", p.errHere("unexpected input after the transformation body")
	}

	root := p.mk("program", 0, len(p.toks)-2, header, binds, body)
	return root, version, inFmt, outFmt, nil
}

func maxTok(ts ...int) int {
	m := -1
	for _, t := range ts {
		if t > m {
			m = t
		}
	}
	return m
}

// exprProgram parses a single expression and requires EOF after it.
func (p *parser) exprProgram() (S, error) {
	e, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errHere("unexpected input after expression")
	}
	return e, nil
}

// ───────────────────────────── expressions ─────────────────────────────

func (p *parser) expr(minBP int) (S, error) {
	startTok := p.i
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		left, err = p.postfixChain(left, startTok)
		if err != nil {
			return nil, err
		}
		t := p.peek()
		bp, isOp := lbp(t.Type)
		if !isOp || bp <= minBP {
			return left, nil
		}
		p.i++
		right, err := p.expr(bp)
		if err != nil {
			return nil, err
		}
		left = p.mk("binop", startTok, p.i-1, opName(t.Type), left, right)
	}
}

// prefix parses a primary expression or a prefix operator.
func (p *parser) prefix() (S, error) {
	t := p.peek()
	start := p.i

	switch t.Type {
	case INTEGER:
		p.i++
		return p.mkLeaf("int", start, t.Literal), nil
	case NUMBER:
		p.i++
		return p.mkLeaf("num", start, t.Literal), nil
	case STRING:
		p.i++
		return p.mkLeaf("str", start, tokText(t)), nil
	case BOOLEAN:
		p.i++
		return p.mkLeaf("bool", start, t.Literal), nil
	case NULL:
		p.i++
		return p.mkLeaf("null", start), nil
	case VARREF:
		p.i++
		return p.mkLeaf("var", start, tokText(t)), nil
	case CONTEXT:
		p.i++
		return p.mkLeaf("context", start), nil
	case PERIOD, SAFEDOT, DOTDOT:
		// bare path (.name, ?.name, ..name): implicit context receiver;
		// the dot itself is consumed by the postfix chain
		return p.mkLeaf("context", -1), nil
	case ATKEY:
		// @name in expression position: attribute of the current context.
		p.i++
		ctx := p.mkLeaf("context", -1)
		name := p.mkLeaf("str", start, tokText(t))
		return p.mk("attr", start, start, ctx, name), nil
	case ID:
		// single-param lambda shorthand: x => body
		if p.peekN(1).Type == ARROW {
			p.i += 2
			params := p.mk("params", start, start, tokText(t))
			body, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			return p.mk("lambda", start, p.i-1, params, body), nil
		}
		p.i++
		return p.mkLeaf("id", start, tokText(t)), nil
	case MINUS:
		p.i++
		rhs, err := p.expr(75) // tighter than MULT so -a*b is (-a)*b
		if err != nil {
			return nil, err
		}
		return p.mk("unop", start, p.i-1, "-", rhs), nil
	case BANG, NOT:
		p.i++
		rhs, err := p.expr(75)
		if err != nil {
			return nil, err
		}
		return p.mk("unop", start, p.i-1, "not", rhs), nil
	case LROUND, CLROUND:
		if p.lambdaAhead() {
			return p.lambda()
		}
		p.i++
		inner, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RROUND, "expected ')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case LSQUARE, CLSQUARE:
		return p.arrayLiteral()
	case LCURLY:
		return p.objectLiteral()
	case IF:
		return p.ifExpr()
	case MATCH:
		return p.matchExpr()
	case LET:
		return p.letExpr()
	case EOF:
		return nil, p.errHere("expected expression")
	}
	return nil, p.errHere(fmt.Sprintf("unexpected token %q", t.Lexeme))
}

// lambdaAhead probes (without consuming) whether the upcoming tokens are a
// parenthesized parameter list followed by '=>'.
func (p *parser) lambdaAhead() bool {
	j := p.i + 1 // past '('
	for {
		switch p.tokAt(j).Type {
		case RROUND:
			return p.tokAt(j + 1).Type == ARROW
		case ID:
			j++
			if p.tokAt(j).Type == COMMA {
				j++
				continue
			}
			return p.tokAt(j).Type == RROUND && p.tokAt(j+1).Type == ARROW
		default:
			return false
		}
	}
}

func (p *parser) tokAt(j int) Token {
	if j >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[j]
}

// lambda parses "(a, b) => body".
func (p *parser) lambda() (S, error) {
	start := p.i
	p.i++ // '('
	var names []any
	for p.peek().Type == ID {
		names = append(names, tokText(p.peek()))
		p.i++
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RROUND, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	params := p.mk("params", start, p.i-1, names...)
	if _, err := p.need(ARROW, "expected '=>' after parameters"); err != nil {
		return nil, err
	}
	body, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return p.mk("lambda", start, p.i-1, params, body), nil
}

func (p *parser) arrayLiteral() (S, error) {
	start := p.i
	p.i++ // '['
	var elems []any
	for p.peek().Type != RSQUARE {
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RSQUARE, "expected ']'"); err != nil {
		return nil, err
	}
	return p.mk("array", start, p.i-1, elems...), nil
}

func (p *parser) objectLiteral() (S, error) {
	start := p.i
	p.i++ // '{'
	var entries []any
	for p.peek().Type != RCURLY {
		entry, err := p.objectEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RCURLY, "expected '}'"); err != nil {
		return nil, err
	}
	return p.mk("object", start, p.i-1, entries...), nil
}

func (p *parser) objectEntry() (S, error) {
	start := p.i
	t := p.peek()
	switch t.Type {
	case ID, STRING:
		p.i++
		key := p.mkLeaf("str", start, tokText(t))
		if _, err := p.need(COLON, "expected ':' after object key"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return p.mk("field", start, p.i-1, key, val), nil
	case ATKEY:
		p.i++
		key := p.mkLeaf("str", start, tokText(t))
		if _, err := p.need(COLON, "expected ':' after attribute key"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return p.mk("attrfield", start, p.i-1, key, val), nil
	case BANGKEY:
		p.i++
		key := p.mkLeaf("str", start, tokText(t))
		if _, err := p.need(COLON, "expected ':' after directive key"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return p.mk("dirfield", start, p.i-1, key, val), nil
	case LROUND, CLROUND:
		p.i++
		keyExpr, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RROUND, "expected ')' after dynamic key"); err != nil {
			return nil, err
		}
		if _, err := p.need(COLON, "expected ':' after dynamic key"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return p.mk("dynfield", start, p.i-1, keyExpr, val), nil
	}
	return nil, p.errHere("expected object key")
}

func (p *parser) ifExpr() (S, error) {
	start := p.i
	p.i++ // 'if'
	if p.peek().Type != LROUND && p.peek().Type != CLROUND {
		return nil, p.errHere("expected '(' after 'if'")
	}
	p.i++
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RROUND, "expected ')' after condition"); err != nil {
		return nil, err
	}
	then, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ELSE, "expected 'else' (if is an expression and needs both branches)"); err != nil {
		return nil, err
	}
	els, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return p.mk("if", start, p.i-1, cond, then, els), nil
}

func (p *parser) matchExpr() (S, error) {
	start := p.i
	p.i++ // 'match'
	subject, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LCURLY, "expected '{' after match subject"); err != nil {
		return nil, err
	}
	var cases []any
	for p.peek().Type != RCURLY {
		cstart := p.i
		pat, err := p.matchPattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(ARROW, "expected '=>' after match pattern"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		cases = append(cases, p.mk("case", cstart, p.i-1, pat, val))
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RCURLY, "expected '}' after match cases"); err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, p.errHere("match needs at least one case")
	}
	return p.mk("match", start, p.i-1, append([]any{subject}, cases...)...), nil
}

// matchPattern parses a literal pattern or the '_' wildcard.
func (p *parser) matchPattern() (S, error) {
	t := p.peek()
	start := p.i
	switch t.Type {
	case STRING:
		p.i++
		return p.mkLeaf("str", start, tokText(t)), nil
	case INTEGER:
		p.i++
		return p.mkLeaf("int", start, t.Literal), nil
	case NUMBER:
		p.i++
		return p.mkLeaf("num", start, t.Literal), nil
	case BOOLEAN:
		p.i++
		return p.mkLeaf("bool", start, t.Literal), nil
	case NULL:
		p.i++
		return p.mkLeaf("null", start), nil
	case MINUS:
		// fold negative numeric literals into the pattern value
		n := p.peekN(1)
		switch n.Type {
		case INTEGER:
			p.i += 2
			return p.mkLeaf("int", start, -n.Literal.(int64)), nil
		case NUMBER:
			p.i += 2
			return p.mkLeaf("num", start, -n.Literal.(float64)), nil
		}
	case ID:
		if tokText(t) == "_" {
			p.i++
			return p.mkLeaf("wild", start), nil
		}
	}
	return nil, p.errHere("expected literal pattern or '_'")
}

func (p *parser) letExpr() (S, error) {
	start := p.i
	p.i++ // 'let'
	var binds []any
	for {
		bstart := p.i
		nameTok, err := p.need(ID, "expected name in let binding")
		if err != nil {
			return nil, err
		}
		nameNode := p.mkLeaf("str", p.i-1, tokText(nameTok))
		if _, err := p.need(ASSIGN, "expected '=' in let binding"); err != nil {
			return nil, err
		}
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		binds = append(binds, p.mk("bind", bstart, p.i-1, nameNode, val))
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(IN, "expected 'in' after let bindings"); err != nil {
		return nil, err
	}
	body, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return p.mk("let", start, p.i-1, append(binds, body)...), nil
}

// ───────────────────────────── postfix chain ───────────────────────────

// postfixChain consumes member access, safe navigation, attribute and
// metadata access, wildcards, recursive descent, indexing/predicates and
// calls that directly follow the given expression.
func (p *parser) postfixChain(left S, startTok int) (S, error) {
	for {
		switch p.peek().Type {
		case PERIOD:
			p.i++
			t := p.peek()
			switch t.Type {
			case ID:
				p.i++
				name := p.mkLeaf("str", p.i-1, tokText(t))
				left = p.mk("get", startTok, p.i-1, left, name)
			case STRING:
				p.i++
				name := p.mkLeaf("str", p.i-1, tokText(t))
				left = p.mk("get", startTok, p.i-1, left, name)
			case MULT:
				p.i++
				left = p.mk("wild", startTok, p.i-1, left)
			case ATKEY:
				p.i++
				name := p.mkLeaf("str", p.i-1, tokText(t))
				left = p.mk("attr", startTok, p.i-1, left, name)
			case CARETKEY:
				p.i++
				name := p.mkLeaf("str", p.i-1, tokText(t))
				left = p.mk("meta", startTok, p.i-1, left, name)
			default:
				return nil, p.errHere("expected member name after '.'")
			}
		case SAFEDOT:
			p.i++
			t, err := p.need(ID, "expected member name after '?.'")
			if err != nil {
				return nil, err
			}
			name := p.mkLeaf("str", p.i-1, tokText(t))
			left = p.mk("sget", startTok, p.i-1, left, name)
		case DOTDOT:
			p.i++
			t, err := p.need(ID, "expected member name after '..'")
			if err != nil {
				return nil, err
			}
			name := p.mkLeaf("str", p.i-1, tokText(t))
			left = p.mk("desc", startTok, p.i-1, left, name)
		case CLSQUARE:
			p.i++
			inner, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RSQUARE, "expected ']'"); err != nil {
				return nil, err
			}
			if len(inner) > 0 && inner[0] == "int" {
				left = p.mk("idx", startTok, p.i-1, left, inner)
			} else {
				left = p.mk("pred", startTok, p.i-1, left, inner)
			}
		case CLROUND:
			p.i++
			var args []any
			for p.peek().Type != RROUND {
				a, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.match(COMMA) {
					break
				}
			}
			if _, err := p.need(RROUND, "expected ')' after arguments"); err != nil {
				return nil, err
			}
			left = p.mk("call", startTok, p.i-1, append([]any{left}, args...)...)
		default:
			return left, nil
		}
	}
}
