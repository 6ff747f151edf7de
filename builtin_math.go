// builtin_math.go — numeric functions.
package utlx

import "math"

func registerMathBuiltins(r *Registry) {
	r.Register("abs",
		Signature{Params: []*TypeDef{NumberType}, Ret: NumberType},
		func(c *Call) Node {
			a := c.Arg(0)
			if a.Kind == KInt {
				v := a.Data.(int64)
				if v < 0 {
					v = -v
				}
				return IntNode(v)
			}
			return NumNode(math.Abs(c.Float(0)))
		},
	)
	setBuiltinDoc(r, "abs", `Absolute value. Int stays Int, Num stays Num.`)

	r.Register("ceil",
		Signature{Params: []*TypeDef{NumberType}, Ret: IntegerType},
		func(c *Call) Node { return IntNode(int64(math.Ceil(c.Float(0)))) },
	)
	setBuiltinDoc(r, "ceil", `Round up to the nearest integer.`)

	r.Register("floor",
		Signature{Params: []*TypeDef{NumberType}, Ret: IntegerType},
		func(c *Call) Node { return IntNode(int64(math.Floor(c.Float(0)))) },
	)
	setBuiltinDoc(r, "floor", `Round down to the nearest integer.`)

	r.Register("round",
		Signature{Params: []*TypeDef{NumberType}, Ret: IntegerType},
		func(c *Call) Node { return IntNode(int64(math.Round(c.Float(0)))) },
	)
	setBuiltinDoc(r, "round", `Round half away from zero to the nearest
integer.`)

	r.Register("pow",
		Signature{Params: []*TypeDef{NumberType, NumberType}, Ret: NumberType},
		func(c *Call) Node {
			base, exp := c.Arg(0), c.Arg(1)
			if base.Kind == KInt && exp.Kind == KInt && exp.Data.(int64) >= 0 {
				// Integer exponentiation by squaring while both sides
				// are Int and the exponent is non-negative.
				b := base.Data.(int64)
				e := exp.Data.(int64)
				var out int64 = 1
				for e > 0 {
					if e&1 == 1 {
						out *= b
					}
					b *= b
					e >>= 1
				}
				return IntNode(out)
			}
			return NumNode(math.Pow(c.Float(0), c.Float(1)))
		},
	)
	setBuiltinDoc(r, "pow", `Exponentiation. Int base with a non-negative Int
exponent yields Int; everything else yields Num.

Params:
  base: Num
  exp:  Num

Returns:
  Num`)

	r.Register("sqrt",
		Signature{Params: []*TypeDef{NumberType}, Ret: NumberType},
		func(c *Call) Node {
			v := c.Float(0)
			if v < 0 {
				c.Failf("sqrt of negative number %v", v)
			}
			return NumNode(math.Sqrt(v))
		},
	)
	setBuiltinDoc(r, "sqrt", `Square root. Fails on negative input.`)

	r.Register("mod",
		Signature{Params: []*TypeDef{IntegerType, IntegerType}, Ret: IntegerType},
		func(c *Call) Node {
			b := c.Int(1)
			if b == 0 {
				c.Fail("mod by zero")
			}
			return IntNode(c.Int(0) % b)
		},
	)
	setBuiltinDoc(r, "mod", `Integer remainder, sign follows the dividend.`)
}
