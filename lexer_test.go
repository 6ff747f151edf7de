// lexer_test.go
package utlx

import (
	"reflect"
	"testing"
)

func toks(t *testing.T, src string) []Token {
	t.Helper()
	ts, err := NewLexer(src).Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	return ts
}

func typesWithoutEOF(tokens []Token) []TokenType {
	if len(tokens) == 0 {
		return nil
	}
	end := len(tokens)
	if tokens[end-1].Type == EOF {
		end--
	}
	out := make([]TokenType, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, tokens[i].Type)
	}
	return out
}

func wantTypes(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := toks(t, src)
	gotTypes := typesWithoutEOF(got)
	if !reflect.DeepEqual(gotTypes, want) {
		t.Fatalf("\nsource:\n%s\nwant types:\n%v\ngot types:\n%v\n", src, want, gotTypes)
	}
	return got
}

func Test_Lexer_HeaderAndSeparator(t *testing.T) {
	src := `%utlx 1.0
%input json
%output xml
---
`
	got := wantTypes(t, src, []TokenType{
		DIRECTIVE, NUMBER,
		DIRECTIVE, ID,
		DIRECTIVE, ID,
		SEPARATOR,
	})
	if got[0].Literal.(string) != "utlx" {
		t.Fatalf("directive name = %v", got[0].Literal)
	}
	if got[2].Literal.(string) != "input" || got[3].Lexeme != "json" {
		t.Fatalf("input directive mis-lexed: %v %v", got[2].Literal, got[3].Lexeme)
	}
}

func Test_Lexer_PercentIsModuloMidLine(t *testing.T) {
	wantTypes(t, `10 % mod3`, []TokenType{INTEGER, MOD, ID})
}

func Test_Lexer_WhitespaceSensitiveBrackets(t *testing.T) {
	// f(x) is a call opener; (x) after whitespace is grouping
	wantTypes(t, `f(x)`, []TokenType{ID, CLROUND, ID, RROUND})
	wantTypes(t, `f (x)`, []TokenType{ID, LROUND, ID, RROUND})
	// a[0] indexes; [0] after whitespace is an array literal
	wantTypes(t, `a[0]`, []TokenType{ID, CLSQUARE, INTEGER, RSQUARE})
	wantTypes(t, `a [0]`, []TokenType{ID, LSQUARE, INTEGER, RSQUARE})
}

func Test_Lexer_PathOperators(t *testing.T) {
	wantTypes(t, `$input.items[0].price`, []TokenType{
		VARREF, PERIOD, ID, CLSQUARE, INTEGER, RSQUARE, PERIOD, ID,
	})
	wantTypes(t, `$input?.maybe`, []TokenType{VARREF, SAFEDOT, ID})
	wantTypes(t, `$input..price`, []TokenType{VARREF, DOTDOT, ID})
	wantTypes(t, `$.name`, []TokenType{CONTEXT, PERIOD, ID})
}

func Test_Lexer_MarkersCarryNames(t *testing.T) {
	got := wantTypes(t, `$order.@currency.^ns`, []TokenType{
		VARREF, PERIOD, ATKEY, PERIOD, CARETKEY,
	})
	if got[0].Literal.(string) != "order" {
		t.Fatalf("varref literal = %v", got[0].Literal)
	}
	if got[2].Literal.(string) != "currency" {
		t.Fatalf("atkey literal = %v", got[2].Literal)
	}
	if got[4].Literal.(string) != "ns" {
		t.Fatalf("caretkey literal = %v", got[4].Literal)
	}
}

func Test_Lexer_BangKeyOnlyInKeyPosition(t *testing.T) {
	// after '{' or ',' a !name is a directive key
	got := wantTypes(t, `{!pretty: true, !cdata: false}`, []TokenType{
		LCURLY, BANGKEY, COLON, BOOLEAN, COMMA, BANGKEY, COLON, BOOLEAN, RCURLY,
	})
	if got[1].Literal.(string) != "pretty" || got[5].Literal.(string) != "cdata" {
		t.Fatalf("bangkey literals: %v, %v", got[1].Literal, got[5].Literal)
	}
	// elsewhere '!' is logical not, and '!=' stays an operator
	wantTypes(t, `!ready`, []TokenType{BANG, ID})
	wantTypes(t, `a != b`, []TokenType{ID, NEQ, ID})
	// a comma alone is not enough: array elements and call arguments
	// keep '!' as logical not
	wantTypes(t, `[a, !b]`, []TokenType{CLSQUARE, ID, COMMA, BANG, ID, RSQUARE})
	wantTypes(t, `f(a, !b)`, []TokenType{ID, CLROUND, ID, COMMA, BANG, ID, RROUND})
	// the key form needs the ':' after the name; whitespace may intervene
	wantTypes(t, `{!pretty : true}`, []TokenType{LCURLY, BANGKEY, COLON, BOOLEAN, RCURLY})
	wantTypes(t, `{a: 1, !b and c}`, []TokenType{
		LCURLY, ID, COLON, INTEGER, COMMA, BANG, ID, AND, ID, RCURLY,
	})
}

func Test_Lexer_ColumnsAfterStringsAndNumbers(t *testing.T) {
	got := toks(t, `"ab" 3 cd`)
	for i, want := range []int{0, 5, 7} {
		if got[i].Col != want {
			t.Fatalf("token %d (%q) col = %d, want %d", i, got[i].Lexeme, got[i].Col, want)
		}
	}
	if got[2].Line != 1 {
		t.Fatalf("line: %d", got[2].Line)
	}
}

func Test_Lexer_OperatorsAndKeywords(t *testing.T) {
	wantTypes(t, `a |> f => g`, []TokenType{ID, PIPE, ID, ARROW, ID})
	wantTypes(t, `x == y and not z or w <= v`, []TokenType{
		ID, EQ, ID, AND, NOT, ID, OR, ID, LESS_EQ, ID,
	})
	wantTypes(t, `let a = 1 in if (a) b else c`, []TokenType{
		LET, ID, ASSIGN, INTEGER, IN, IF, LROUND, ID, RROUND, ID, ELSE, ID,
	})
	wantTypes(t, `template "Order" => match s { }`, []TokenType{
		TEMPLATE, STRING, ARROW, MATCH, ID, LCURLY, RCURLY,
	})
}

func Test_Lexer_KeywordAfterDotIsPlainName(t *testing.T) {
	wantTypes(t, `$input.let.in`, []TokenType{VARREF, PERIOD, ID, PERIOD, ID})
}

func Test_Lexer_Numbers(t *testing.T) {
	got := wantTypes(t, `42 3.14 1e3 2.5E-2 7`, []TokenType{
		INTEGER, NUMBER, NUMBER, NUMBER, INTEGER,
	})
	if got[0].Literal.(int64) != 42 {
		t.Fatalf("int literal = %v", got[0].Literal)
	}
	if got[1].Literal.(float64) != 3.14 {
		t.Fatalf("num literal = %v", got[1].Literal)
	}
	if got[2].Literal.(float64) != 1000.0 {
		t.Fatalf("exponent literal = %v", got[2].Literal)
	}
}

func Test_Lexer_DotAfterIntIsPathNotFraction(t *testing.T) {
	wantTypes(t, `1.toString`, []TokenType{INTEGER, PERIOD, ID})
}

func Test_Lexer_StringEscapes(t *testing.T) {
	got := wantTypes(t, `"a\"b\n\t\\" "é" "😀"`, []TokenType{
		STRING, STRING, STRING,
	})
	if got[0].Literal.(string) != "a\"b\n\t\\" {
		t.Fatalf("escapes: %q", got[0].Literal)
	}
	if got[1].Literal.(string) != "é" {
		t.Fatalf("unicode escape: %q", got[1].Literal)
	}
	if got[2].Literal.(string) != "😀" {
		t.Fatalf("raw multibyte rune: %q", got[2].Literal)
	}
}

func Test_Lexer_SurrogatePairEscape(t *testing.T) {
	got := wantTypes(t, `"\uD83D\uDE00"`, []TokenType{STRING})
	if got[0].Literal.(string) != "😀" {
		t.Fatalf("surrogate pair: %q", got[0].Literal)
	}
}

func Test_Lexer_CommentsIgnored(t *testing.T) {
	src := `# leading comment
1 + 2 # trailing comment
`
	wantTypes(t, src, []TokenType{INTEGER, PLUS, INTEGER})
}

func Test_Lexer_Errors(t *testing.T) {
	for _, src := range []string{
		`"unterminated`,
		`"bad \q escape"`,
		`? alone`,
		`| alone`,
		`@ `,
	} {
		if _, err := NewLexer(src).Scan(); err == nil {
			t.Fatalf("expected lex error for %q", src)
		} else if e, ok := err.(*Error); !ok || e.Kind != DiagLex {
			t.Fatalf("expected DiagLex for %q, got %v", src, err)
		}
	}
}

func Test_Lexer_ByteOffsets(t *testing.T) {
	got := toks(t, `ab + cd`)
	if got[0].StartByte != 0 || got[0].EndByte != 2 {
		t.Fatalf("first token offsets: %d..%d", got[0].StartByte, got[0].EndByte)
	}
	if got[2].StartByte != 5 || got[2].EndByte != 7 {
		t.Fatalf("third token offsets: %d..%d", got[2].StartByte, got[2].EndByte)
	}
}
