// builtin_strings.go — string functions.
package utlx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

func registerStringBuiltins(r *Registry) {
	r.Register("upper",
		Signature{Params: []*TypeDef{StringType}, Ret: StringType},
		func(c *Call) Node { return StrNode(strings.ToUpper(c.Str(0))) },
	)
	setBuiltinDoc(r, "upper", `Uppercase conversion (Unicode aware).`)

	r.Register("lower",
		Signature{Params: []*TypeDef{StringType}, Ret: StringType},
		func(c *Call) Node { return StrNode(strings.ToLower(c.Str(0))) },
	)
	setBuiltinDoc(r, "lower", `Lowercase conversion (Unicode aware).`)

	r.Register("trim",
		Signature{Params: []*TypeDef{StringType}, Ret: StringType},
		func(c *Call) Node { return StrNode(strings.TrimSpace(c.Str(0))) },
	)
	setBuiltinDoc(r, "trim", `Remove leading and trailing whitespace (Unicode).`)

	r.Register("split",
		Signature{Params: []*TypeDef{StringType, StringType}, Ret: ArrayOf(StringType)},
		func(c *Call) Node {
			parts := strings.Split(c.Str(0), c.Str(1))
			out := make([]Node, len(parts))
			for i := range parts {
				out[i] = StrNode(parts[i])
			}
			return ArrNode(out)
		},
	)
	setBuiltinDoc(r, "split", `Split a string on a separator (no regex).

If sep is empty (""), splits between UTF-8 code points.

Params:
  s: Str   — source string
  sep: Str — separator

Returns:
  [Str]`)

	r.Register("join",
		Signature{Params: []*TypeDef{ArrayOf(StringType), StringType}, Ret: StringType},
		func(c *Call) Node {
			xs := c.Array(0)
			parts := make([]string, len(xs))
			for i, x := range xs {
				if x.Kind != KStr {
					c.Failf("join needs Str elements, got %s", x.Kind)
				}
				parts[i] = x.Data.(string)
			}
			return StrNode(strings.Join(parts, c.Str(1)))
		},
	)
	setBuiltinDoc(r, "join", `Join strings with a separator.

Params:
  xs: [Str] — pieces to join
  sep: Str  — separator

Returns:
  Str`)

	r.Register("replace",
		Signature{Params: []*TypeDef{StringType, StringType, StringType}, Ret: StringType},
		func(c *Call) Node {
			return StrNode(strings.ReplaceAll(c.Str(0), c.Str(1), c.Str(2)))
		},
	)
	setBuiltinDoc(r, "replace", `Replace every occurrence of a substring.

Params:
  s:   Str — input
  old: Str — substring to replace
  new: Str — replacement

Returns:
  Str`)

	r.Register("matches",
		Signature{Params: []*TypeDef{StringType, StringType}, Ret: BooleanType},
		func(c *Call) Node {
			re, err := regexp.Compile(c.Str(1))
			if err != nil {
				c.Failf("invalid regex: %s", err)
			}
			return BoolNode(re.MatchString(c.Str(0)))
		},
	)
	setBuiltinDoc(r, "matches", `Test a string against an RE2 regular expression.

Params:
  s:       Str — input
  pattern: Str — RE2-compatible regular expression

Returns:
  Bool`)

	r.Register("startsWith",
		Signature{Params: []*TypeDef{StringType, StringType}, Ret: BooleanType},
		func(c *Call) Node { return BoolNode(strings.HasPrefix(c.Str(0), c.Str(1))) },
	)
	setBuiltinDoc(r, "startsWith", `True if s begins with the given prefix.`)

	r.Register("endsWith",
		Signature{Params: []*TypeDef{StringType, StringType}, Ret: BooleanType},
		func(c *Call) Node { return BoolNode(strings.HasSuffix(c.Str(0), c.Str(1))) },
	)
	setBuiltinDoc(r, "endsWith", `True if s ends with the given suffix.`)

	r.Register("substring",
		Signature{Params: []*TypeDef{StringType, IntegerType, IntegerType}, Ret: StringType},
		func(c *Call) Node {
			s := []rune(c.Str(0))
			i := int(c.Int(1))
			j := int(c.Int(2))
			if i < 0 {
				i = 0
			}
			if j < i {
				j = i
			}
			if i > len(s) {
				i = len(s)
			}
			if j > len(s) {
				j = len(s)
			}
			return StrNode(string(s[i:j]))
		},
	)
	setBuiltinDoc(r, "substring", `Unicode-safe substring by rune index.

Takes the half-open slice [i, j). Indices are clamped to bounds and
negative values are treated as 0.

Params:
  s: Str — source string
  i: Int — start index (inclusive)
  j: Int — end index (exclusive)

Returns:
  Str`)

	r.Register("padLeft",
		Signature{Params: []*TypeDef{StringType, IntegerType, StringType}, Ret: StringType},
		func(c *Call) Node { return StrNode(pad(c, true)) },
	)
	setBuiltinDoc(r, "padLeft", `Pad a string on the left to a rune width.

Params:
  s:     Str — input
  width: Int — target width in runes
  fill:  Str — pad rune (first rune is used)

Returns:
  Str`)

	r.Register("padRight",
		Signature{Params: []*TypeDef{StringType, IntegerType, StringType}, Ret: StringType},
		func(c *Call) Node { return StrNode(pad(c, false)) },
	)
	setBuiltinDoc(r, "padRight", `Pad a string on the right to a rune width.

Params:
  s:     Str — input
  width: Int — target width in runes
  fill:  Str — pad rune (first rune is used)

Returns:
  Str`)

	r.Register("length",
		Signature{Params: []*TypeDef{StringType}, Ret: IntegerType},
		func(c *Call) Node { return IntNode(int64(len([]rune(c.Str(0))))) },
	)
	setBuiltinDoc(r, "length", `Length of a string in runes, not bytes.`)

	r.Register("toString",
		Signature{Params: []*TypeDef{AnyType}, Ret: StringType},
		func(c *Call) Node {
			switch a := c.Arg(0); a.Kind {
			case KStr:
				return a
			case KNull:
				return StrNode("")
			case KBool:
				return StrNode(strconv.FormatBool(a.Data.(bool)))
			case KInt:
				return StrNode(strconv.FormatInt(a.Data.(int64), 10))
			case KNum:
				return StrNode(strconv.FormatFloat(a.Data.(float64), 'g', -1, 64))
			default:
				return StrNode(a.String())
			}
		},
	)
	setBuiltinDoc(r, "toString", `Render any value as text. Null becomes "".`)

	r.Register("parseInt",
		Signature{Params: []*TypeDef{StringType}, Ret: IntegerType},
		func(c *Call) Node {
			v, err := strconv.ParseInt(strings.TrimSpace(c.Str(0)), 10, 64)
			if err != nil {
				c.Failf("parseInt: %q is not an integer", c.Str(0))
			}
			return IntNode(v)
		},
	)
	setBuiltinDoc(r, "parseInt", `Parse a base-10 integer, tolerating
surrounding whitespace. Fails on anything else.`)

	r.Register("parseNumber",
		Signature{Params: []*TypeDef{StringType}, Ret: NumberType},
		func(c *Call) Node {
			v, err := strconv.ParseFloat(strings.TrimSpace(c.Str(0)), 64)
			if err != nil {
				c.Failf("parseNumber: %q is not a number", c.Str(0))
			}
			return NumNode(v)
		},
	)
	setBuiltinDoc(r, "parseNumber", `Parse a decimal number, tolerating
surrounding whitespace. Fails on anything else.`)

	r.Register("capitalize",
		Signature{Params: []*TypeDef{StringType}, Ret: StringType},
		func(c *Call) Node {
			s := []rune(c.Str(0))
			if len(s) == 0 {
				return StrNode("")
			}
			s[0] = unicode.ToUpper(s[0])
			return StrNode(string(s))
		},
	)
	setBuiltinDoc(r, "capitalize", `Uppercase the first rune of a string.`)
}

func pad(c *Call, left bool) string {
	s := []rune(c.Str(0))
	width := int(c.Int(1))
	fill := []rune(c.Str(2))
	if len(fill) == 0 {
		c.Fail(fmt.Sprintf("%s needs a non-empty fill string", c.Name))
	}
	for len(s) < width {
		if left {
			s = append([]rune{fill[0]}, s...)
		} else {
			s = append(s, fill[0])
		}
	}
	return string(s)
}
