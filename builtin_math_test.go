// builtin_math_test.go
package utlx

import "testing"

func Test_Builtin_AbsKeepsKind(t *testing.T) {
	wantNode(t, evalX(t, `abs(-3)`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `abs(3)`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `abs(-2.5)`, NullNode), NumNode(2.5))
}

func Test_Builtin_Rounding(t *testing.T) {
	wantNode(t, evalX(t, `ceil(1.1)`, NullNode), IntNode(2))
	wantNode(t, evalX(t, `ceil(-1.1)`, NullNode), IntNode(-1))
	wantNode(t, evalX(t, `floor(1.9)`, NullNode), IntNode(1))
	wantNode(t, evalX(t, `floor(-1.1)`, NullNode), IntNode(-2))
	// round halves away from zero
	wantNode(t, evalX(t, `round(2.5)`, NullNode), IntNode(3))
	wantNode(t, evalX(t, `round(-2.5)`, NullNode), IntNode(-3))
	wantNode(t, evalX(t, `round(2)`, NullNode), IntNode(2))
}

func Test_Builtin_Pow(t *testing.T) {
	// Int base and non-negative Int exponent stay Int
	wantNode(t, evalX(t, `pow(2, 10)`, NullNode), IntNode(1024))
	wantNode(t, evalX(t, `pow(7, 0)`, NullNode), IntNode(1))
	wantNode(t, evalX(t, `pow(2.0, 3)`, NullNode), NumNode(8))
	wantNode(t, evalX(t, `pow(2, -1)`, NullNode), NumNode(0.5))
	wantNode(t, evalX(t, `pow(9, 0.5)`, NullNode), NumNode(3))
}

func Test_Builtin_SqrtAndMod(t *testing.T) {
	wantNode(t, evalX(t, `sqrt(9)`, NullNode), NumNode(3))
	wantNode(t, evalX(t, `sqrt(2.25)`, NullNode), NumNode(1.5))
	wantArgErr(t, `sqrt(-1)`, "negative")

	wantNode(t, evalX(t, `mod(7, 3)`, NullNode), IntNode(1))
	// sign follows the dividend
	wantNode(t, evalX(t, `mod(-7, 3)`, NullNode), IntNode(-1))
	wantArgErr(t, `mod(1, 0)`, "mod by zero")
	wantArgErr(t, `mod(1.5, 2)`, "argument 1 of mod")
}
