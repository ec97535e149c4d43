package ast

import (
	"math"
	"strconv"
	"strings"
)

// Format renders a term as source text using the default operator table.
func Format(t Term) string {
	var sb strings.Builder
	w := &writer{sb: &sb, ops: defaultOps}
	w.write(t, 1200)
	return sb.String()
}

// FormatArg renders a term as it would appear as a compound argument, i.e.
// with operators above priority 999 parenthesized.
func FormatArg(t Term) string {
	var sb strings.Builder
	w := &writer{sb: &sb, ops: defaultOps}
	w.write(t, 999)
	return sb.String()
}

type writer struct {
	sb  *strings.Builder
	ops *OperatorTable
}

func (w *writer) write(t Term, maxPrec int) {
	switch v := t.(type) {
	case Atom:
		w.writeAtom(string(v), maxPrec)
	case Int:
		w.sb.WriteString(v.String())
	case Float:
		w.sb.WriteString(v.String())
	case String:
		w.sb.WriteString(quoteString(string(v)))
	case *Var:
		w.sb.WriteString(v.String())
	case *Compound:
		w.writeCompound(v, maxPrec)
	case nil:
		w.sb.WriteString("<nil>")
	}
}

func (w *writer) writeAtom(name string, maxPrec int) {
	q := QuoteAtom(name)
	if w.ops.maxPriority(name) > maxPrec {
		w.sb.WriteString("(" + q + ")")
		return
	}
	w.sb.WriteString(q)
}

// writeOperand writes an operand of an operator term. Operator atoms are
// parenthesized there, since X = - would read the - as a prefix operator.
func (w *writer) writeOperand(t Term, maxPrec int) {
	if a, ok := t.(Atom); ok && w.ops.IsOperator(string(a)) {
		w.sb.WriteString("(" + QuoteAtom(string(a)) + ")")
		return
	}
	w.write(t, maxPrec)
}

func (w *writer) writeCompound(c *Compound, maxPrec int) {
	switch {
	case c.Kind() == KindList:
		w.writeList(c)
		return
	case c.Functor == "{}" && len(c.Args) == 1:
		w.sb.WriteByte('{')
		w.write(c.Args[0], 1200)
		w.sb.WriteByte('}')
		return
	}

	if len(c.Args) == 2 {
		if op, ok := w.ops.Infix(c.Functor); ok {
			lp, rp := op.ArgPriorities()
			open := op.Priority > maxPrec
			if open {
				w.sb.WriteByte('(')
			}
			w.writeOperand(c.Args[0], lp)
			switch c.Functor {
			case ",":
				w.sb.WriteString(", ")
			default:
				w.sb.WriteString(" " + QuoteAtom(c.Functor) + " ")
			}
			w.writeOperand(c.Args[1], rp)
			if open {
				w.sb.WriteByte(')')
			}
			return
		}
	}

	if len(c.Args) == 1 {
		if op, ok := w.ops.Prefix(c.Functor); ok && !isNumber(c.Args[0]) {
			_, rp := op.ArgPriorities()
			open := op.Priority > maxPrec
			if open {
				w.sb.WriteByte('(')
			}
			w.sb.WriteString(QuoteAtom(c.Functor))
			w.sb.WriteByte(' ')
			w.writeOperand(c.Args[0], rp)
			if open {
				w.sb.WriteByte(')')
			}
			return
		}
	}

	w.sb.WriteString(QuoteAtom(c.Functor))
	w.sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.write(a, 999)
	}
	w.sb.WriteByte(')')
}

func (w *writer) writeList(c *Compound) {
	items, tail := ListItems(c)
	w.sb.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.write(item, 999)
	}
	if tail != Nil {
		w.sb.WriteByte('|')
		w.write(tail, 999)
	}
	w.sb.WriteByte(']')
}

func isNumber(t Term) bool {
	switch t.(type) {
	case Int, Float:
		return true
	}
	return false
}

// QuoteAtom returns the atom name, quoted when it could not be read back as
// a bare atom.
func QuoteAtom(name string) string {
	if atomNeedsNoQuotes(name) {
		return name
	}
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range name {
		switch r {
		case '\'':
			sb.WriteString("\\'")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func atomNeedsNoQuotes(name string) bool {
	switch name {
	case "[]", "!", ";", "{}":
		return true
	case "", ".", "|", ",":
		return false
	}
	if IsLower(rune(name[0])) {
		for _, r := range name {
			if !IsAlnum(r) {
				return false
			}
		}
		return true
	}
	for _, r := range name {
		if !IsSymbolChar(r) {
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	} else if strings.Contains(s, "e") && !strings.Contains(s, ".") {
		// 1e+21 is not valid source syntax, 1.0e+21 is.
		i := strings.Index(s, "e")
		s = s[:i] + ".0" + s[i:]
	}
	return s
}

// IsLower reports whether r starts a bare atom.
func IsLower(r rune) bool { return r >= 'a' && r <= 'z' }

// IsUpper reports whether r starts a variable.
func IsUpper(r rune) bool { return (r >= 'A' && r <= 'Z') || r == '_' }

// IsAlnum reports whether r may continue an identifier.
func IsAlnum(r rune) bool {
	return IsLower(r) || IsUpper(r) || (r >= '0' && r <= '9')
}

// IsSymbolChar reports whether r belongs to the symbol-char class that forms
// operator atoms such as :- or =.. .
func IsSymbolChar(r rune) bool {
	return strings.ContainsRune("+-*/\\^<>=~:.?@#&$", r)
}
