package solver

import (
	"math"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// eval evaluates an arithmetic expression to an ast.Int or ast.Float.
func (b *Bindings) eval(t ast.Term) (ast.Term, error) {
	switch v := b.Deref(t).(type) {
	case ast.Int, ast.Float:
		return v, nil
	case *ast.Var:
		return nil, instantiationErr("arithmetic expression contains unbound variable %s", v.String())
	case ast.Atom:
		switch v {
		case "pi":
			return ast.Float(math.Pi), nil
		case "e":
			return ast.Float(math.E), nil
		case "inf", "infinite":
			return ast.Float(math.Inf(1)), nil
		case "max_tagged_integer":
			return ast.Int(math.MaxInt64), nil
		}
		return nil, typeErr("%s is not evaluable", v.String())
	case *ast.Compound:
		switch len(v.Args) {
		case 1:
			x, err := b.eval(v.Args[0])
			if err != nil {
				return nil, err
			}
			return evalUnary(v.Functor, x)
		case 2:
			x, err := b.eval(v.Args[0])
			if err != nil {
				return nil, err
			}
			y, err := b.eval(v.Args[1])
			if err != nil {
				return nil, err
			}
			return evalBinary(v.Functor, x, y)
		}
		return nil, typeErr("%s/%d is not evaluable", v.Functor, len(v.Args))
	default:
		return nil, typeErr("%s is not evaluable", v.String())
	}
}

func toFloat(t ast.Term) float64 {
	switch v := t.(type) {
	case ast.Int:
		return float64(v)
	case ast.Float:
		return float64(v)
	}
	return math.NaN()
}

func evalUnary(op string, x ast.Term) (ast.Term, error) {
	xi, isInt := x.(ast.Int)
	switch op {
	case "-":
		if isInt {
			return -xi, nil
		}
		return -x.(ast.Float), nil
	case "+":
		return x, nil
	case "abs":
		if isInt {
			if xi < 0 {
				return -xi, nil
			}
			return xi, nil
		}
		return ast.Float(math.Abs(toFloat(x))), nil
	case "sign":
		if isInt {
			switch {
			case xi > 0:
				return ast.Int(1), nil
			case xi < 0:
				return ast.Int(-1), nil
			}
			return ast.Int(0), nil
		}
		f := toFloat(x)
		switch {
		case f > 0:
			return ast.Float(1), nil
		case f < 0:
			return ast.Float(-1), nil
		}
		return ast.Float(0), nil
	case "float":
		return ast.Float(toFloat(x)), nil
	case "integer", "round":
		if isInt {
			return xi, nil
		}
		return ast.Int(math.Round(toFloat(x))), nil
	case "truncate":
		if isInt {
			return xi, nil
		}
		return ast.Int(math.Trunc(toFloat(x))), nil
	case "floor":
		if isInt {
			return xi, nil
		}
		return ast.Int(math.Floor(toFloat(x))), nil
	case "ceiling":
		if isInt {
			return xi, nil
		}
		return ast.Int(math.Ceil(toFloat(x))), nil
	case "sqrt":
		f := toFloat(x)
		if f < 0 {
			return nil, evalErr("sqrt of negative number")
		}
		return ast.Float(math.Sqrt(f)), nil
	case "\\":
		if !isInt {
			return nil, typeErr("bitwise negation requires an integer")
		}
		return ^xi, nil
	}
	return nil, typeErr("%s/1 is not evaluable", op)
}

func evalBinary(op string, x, y ast.Term) (ast.Term, error) {
	xi, xInt := x.(ast.Int)
	yi, yInt := y.(ast.Int)
	ints := xInt && yInt

	switch op {
	case "+":
		if ints {
			return xi + yi, nil
		}
		return ast.Float(toFloat(x) + toFloat(y)), nil
	case "-":
		if ints {
			return xi - yi, nil
		}
		return ast.Float(toFloat(x) - toFloat(y)), nil
	case "*":
		if ints {
			return xi * yi, nil
		}
		return ast.Float(toFloat(x) * toFloat(y)), nil
	case "/":
		if ints {
			if yi == 0 {
				return nil, evalErr("division by zero")
			}
			if xi%yi == 0 {
				return xi / yi, nil
			}
			return ast.Float(float64(xi) / float64(yi)), nil
		}
		if toFloat(y) == 0 {
			return nil, evalErr("division by zero")
		}
		return ast.Float(toFloat(x) / toFloat(y)), nil
	case "//", "mod", "rem", "<<", ">>", "/\\", "\\/":
		if !ints {
			return nil, typeErr("%s requires integer operands", op)
		}
		return evalIntBinary(op, xi, yi)
	case "min":
		if compareNumbers(x, y) <= 0 {
			return x, nil
		}
		return y, nil
	case "max":
		if compareNumbers(x, y) >= 0 {
			return x, nil
		}
		return y, nil
	case "**":
		return ast.Float(math.Pow(toFloat(x), toFloat(y))), nil
	case "^":
		if ints {
			if yi < 0 {
				return nil, evalErr("negative exponent for integer power")
			}
			r := ast.Int(1)
			for i := ast.Int(0); i < yi; i++ {
				r *= xi
			}
			return r, nil
		}
		return ast.Float(math.Pow(toFloat(x), toFloat(y))), nil
	}
	return nil, typeErr("%s/2 is not evaluable", op)
}

func evalIntBinary(op string, x, y ast.Int) (ast.Term, error) {
	switch op {
	case "//":
		if y == 0 {
			return nil, evalErr("division by zero")
		}
		return x / y, nil
	case "rem":
		if y == 0 {
			return nil, evalErr("division by zero")
		}
		return x % y, nil
	case "mod":
		if y == 0 {
			return nil, evalErr("division by zero")
		}
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	case "<<":
		return x << uint(y), nil
	case ">>":
		return x >> uint(y), nil
	case "/\\":
		return x & y, nil
	default:
		return x | y, nil
	}
}

// compareNumbers compares two evaluated numbers by value.
func compareNumbers(x, y ast.Term) int {
	if xi, ok := x.(ast.Int); ok {
		if yi, ok := y.(ast.Int); ok {
			switch {
			case xi < yi:
				return -1
			case xi > yi:
				return 1
			}
			return 0
		}
	}
	xf, yf := toFloat(x), toFloat(y)
	switch {
	case xf < yf:
		return -1
	case xf > yf:
		return 1
	}
	return 0
}
