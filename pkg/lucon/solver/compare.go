package solver

import (
	"strings"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// orderClass ranks term kinds in the standard order of terms:
// Var < Number < Atom < String < Compound.
func orderClass(t ast.Term) int {
	switch t.(type) {
	case *ast.Var:
		return 0
	case ast.Int, ast.Float:
		return 1
	case ast.Atom:
		return 3
	case ast.String:
		return 4
	default:
		return 5
	}
}

// Compare orders two terms under the current bindings using the standard
// order of terms. It returns -1, 0 or 1.
func (b *Bindings) Compare(x, y ast.Term) int {
	x, y = b.Deref(x), b.Deref(y)
	cx, cy := orderClass(x), orderClass(y)
	if cx != cy {
		if cx < cy {
			return -1
		}
		return 1
	}

	switch xv := x.(type) {
	case *ast.Var:
		yv := y.(*ast.Var)
		switch {
		case xv.ID() < yv.ID():
			return -1
		case xv.ID() > yv.ID():
			return 1
		}
		return 0
	case ast.Int, ast.Float:
		if c := compareNumbers(x, y); c != 0 {
			return c
		}
		// 1.0 @< 1
		_, xf := x.(ast.Float)
		_, yf := y.(ast.Float)
		switch {
		case xf && !yf:
			return -1
		case !xf && yf:
			return 1
		}
		return 0
	case ast.Atom:
		return strings.Compare(string(xv), string(y.(ast.Atom)))
	case ast.String:
		return strings.Compare(string(xv), string(y.(ast.String)))
	case *ast.Compound:
		yv := y.(*ast.Compound)
		if len(xv.Args) != len(yv.Args) {
			if len(xv.Args) < len(yv.Args) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(xv.Functor, yv.Functor); c != 0 {
			return c
		}
		for i := range xv.Args {
			if c := b.Compare(xv.Args[i], yv.Args[i]); c != 0 {
				return c
			}
		}
	}
	return 0
}
