package parser

import (
	"fmt"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
)

// state is the operator precedence parser over one source text.
type state struct {
	p     *Parser
	lex   *lexer
	file  string
	depth int

	buf    *token
	bufErr error
	last   token

	// vars maps variable names to variables within the current clause.
	vars map[string]*ast.Var
}

func newState(p *Parser, src, file string) *state {
	return &state{p: p, lex: newLexer(src), file: file}
}

func (s *state) peek() (token, error) {
	if s.buf == nil && s.bufErr == nil {
		tok, err := s.lex.next()
		if err != nil {
			s.bufErr = err
		} else {
			s.buf = &tok
		}
	}
	if s.bufErr != nil {
		return token{}, s.bufErr
	}
	return *s.buf, nil
}

func (s *state) take() (token, error) {
	tok, err := s.peek()
	s.buf, s.bufErr = nil, nil
	if err == nil {
		s.last = tok
	}
	return tok, err
}

func (s *state) location(tok token) ast.Location {
	return ast.Location{File: s.file, Line: tok.line, Column: tok.col}
}

func (s *state) syntaxErr(tok token, format string, args ...any) error {
	return &lexError{line: tok.line, col: tok.col, msg: fmt.Sprintf(format, args...)}
}

func (s *state) toError(err error) *luconErrors.Error {
	if le, ok := err.(*lexError); ok {
		return luconErrors.NewSyntaxError(ast.Location{File: s.file, Line: le.line, Column: le.col}, "%s", le.msg)
	}
	return luconErrors.NewSyntaxError(ast.Location{File: s.file}, "%v", err)
}

// recover discards input up to and including the next full stop. A full stop
// already consumed by the failed clause ends recovery immediately.
func (s *state) recover() {
	s.depth = 0
	if s.bufErr == nil {
		if s.buf != nil && s.buf.kind == tokEnd {
			s.buf = nil
			return
		}
		if s.buf == nil && s.last.kind == tokEnd {
			return
		}
	}
	s.buf, s.bufErr = nil, nil
	for {
		tok, err := s.lex.next()
		if err != nil {
			s.lex.advance()
			continue
		}
		if tok.kind == tokEnd || tok.kind == tokEOF {
			return
		}
	}
}

func (s *state) expectEnd() error {
	tok, err := s.take()
	if err != nil {
		return err
	}
	if tok.kind != tokEnd {
		return s.syntaxErr(tok, "expected end of clause, found %s", tok.describe())
	}
	return nil
}

func (s *state) expectPunct(text string) error {
	tok, err := s.take()
	if err != nil {
		return err
	}
	if tok.kind != tokPunct || tok.text != text {
		return s.syntaxErr(tok, "expected %q, found %s", text, tok.describe())
	}
	return nil
}

// parse reads a term whose priority is at most maxPrec and returns the term
// together with its priority.
func (s *state) parse(maxPrec int) (ast.Term, int, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.p.maxDepth {
		tok, _ := s.peek()
		return nil, 0, s.syntaxErr(tok, "term nesting exceeds maximum depth %d", s.p.maxDepth)
	}

	left, leftPrec, err := s.parsePrimary(maxPrec)
	if err != nil {
		return nil, 0, err
	}
	return s.parseInfix(left, leftPrec, maxPrec)
}

func (s *state) parseInfix(left ast.Term, leftPrec, maxPrec int) (ast.Term, int, error) {
	for {
		tok, err := s.peek()
		if err != nil {
			return nil, 0, err
		}

		var name string
		switch {
		case tok.kind == tokAtom:
			name = tok.text
		case tok.kind == tokPunct && (tok.text == "," || tok.text == "|"):
			name = tok.text
		default:
			return left, leftPrec, nil
		}

		op, ok := s.p.ops.Infix(name)
		if !ok {
			return left, leftPrec, nil
		}
		leftMax, rightMax := op.ArgPriorities()
		if op.Priority > maxPrec || leftPrec > leftMax {
			return left, leftPrec, nil
		}
		s.take()

		right, _, err := s.parse(rightMax)
		if err != nil {
			return nil, 0, err
		}
		functor := name
		if functor == "|" {
			functor = ";"
		}
		left = ast.NewCompound(functor, left, right)
		leftPrec = op.Priority
	}
}

func (s *state) parsePrimary(maxPrec int) (ast.Term, int, error) {
	tok, err := s.take()
	if err != nil {
		return nil, 0, err
	}

	switch tok.kind {
	case tokInt:
		return ast.Int(tok.ival), 0, nil
	case tokFloat:
		return ast.Float(tok.fval), 0, nil
	case tokString:
		return ast.String(tok.text), 0, nil
	case tokVar:
		return s.variable(tok.text), 0, nil
	case tokAtom:
		return s.parseAtom(tok, maxPrec)
	case tokPunct:
		switch tok.text {
		case "(":
			t, _, err := s.parse(1200)
			if err != nil {
				return nil, 0, err
			}
			if err := s.expectPunct(")"); err != nil {
				return nil, 0, err
			}
			return t, 0, nil
		case "[":
			return s.parseList()
		case "{":
			t, _, err := s.parse(1200)
			if err != nil {
				return nil, 0, err
			}
			if err := s.expectPunct("}"); err != nil {
				return nil, 0, err
			}
			return ast.NewCompound("{}", t), 0, nil
		}
	}
	return nil, 0, s.syntaxErr(tok, "unexpected %s", tok.describe())
}

func (s *state) variable(name string) *ast.Var {
	if name == "_" {
		return ast.NewVar("_")
	}
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := ast.NewVar(name)
	s.vars[name] = v
	return v
}

func (s *state) parseAtom(tok token, maxPrec int) (ast.Term, int, error) {
	name := tok.text
	next, err := s.peek()
	if err != nil {
		return nil, 0, err
	}

	// Functional notation: the opening parenthesis must follow immediately.
	if next.kind == tokPunct && next.text == "(" && !next.layout {
		s.take()
		args, err := s.parseArgs(")")
		if err != nil {
			return nil, 0, err
		}
		return ast.NewCompound(name, args...), 0, nil
	}

	if tok.quoted {
		return ast.Atom(name), 0, nil
	}

	if name == "-" && !next.layout {
		switch next.kind {
		case tokInt:
			s.take()
			return ast.Int(-next.ival), 0, nil
		case tokFloat:
			s.take()
			return ast.Float(-next.fval), 0, nil
		}
	}

	op, ok := s.p.ops.Prefix(name)
	if !ok || s.endsOperand(next) {
		return ast.Atom(name), 0, nil
	}

	prec := op.Priority
	if prec > maxPrec {
		prec = maxPrec
	}
	argMax := prec
	if op.Type == ast.FX {
		argMax = prec - 1
	}
	arg, _, err := s.parse(argMax)
	if err != nil {
		return nil, 0, err
	}
	return ast.NewCompound(name, arg), prec, nil
}

// endsOperand reports whether tok cannot start an operand, in which case a
// preceding prefix operator is read as a plain atom.
func (s *state) endsOperand(tok token) bool {
	switch tok.kind {
	case tokEOF, tokEnd:
		return true
	case tokPunct:
		switch tok.text {
		case ")", ",", "|", "]", "}":
			return true
		}
	case tokAtom:
		if tok.quoted {
			return false
		}
		_, infix := s.p.ops.Infix(tok.text)
		_, prefix := s.p.ops.Prefix(tok.text)
		return infix && !prefix
	}
	return false
}

func (s *state) parseArgs(closing string) ([]ast.Term, error) {
	var args []ast.Term
	for {
		arg, _, err := s.parse(999)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok, err := s.take()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPunct && tok.text == "," {
			continue
		}
		if tok.kind == tokPunct && tok.text == closing {
			return args, nil
		}
		return nil, s.syntaxErr(tok, "expected \",\" or %q, found %s", closing, tok.describe())
	}
}

func (s *state) parseList() (ast.Term, int, error) {
	var items []ast.Term
	for {
		item, _, err := s.parse(999)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)

		tok, err := s.take()
		if err != nil {
			return nil, 0, err
		}
		if tok.kind != tokPunct {
			return nil, 0, s.syntaxErr(tok, "expected \",\", \"|\" or \"]\" in list, found %s", tok.describe())
		}
		switch tok.text {
		case ",":
			continue
		case "]":
			return ast.NewList(items...), 0, nil
		case "|":
			tail, _, err := s.parse(999)
			if err != nil {
				return nil, 0, err
			}
			if err := s.expectPunct("]"); err != nil {
				return nil, 0, err
			}
			return ast.NewPartialList(tail, items...), 0, nil
		default:
			return nil, 0, s.syntaxErr(tok, "expected \",\", \"|\" or \"]\" in list, found %s", tok.describe())
		}
	}
}
