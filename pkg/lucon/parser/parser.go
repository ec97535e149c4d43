package parser

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
)

// Parser parses LUCON theory text into clauses and goal text into terms.
// A Parser holds only configuration and is safe for concurrent use.
type Parser struct {
	ops         *ast.OperatorTable
	maxFileSize int64 // Maximum source size in bytes (default: 10MB)
	maxDepth    int   // Maximum term nesting depth (default: 1000)
}

// NewParser creates a new parser with the standard operator table.
func NewParser() *Parser {
	return &Parser{
		ops:         ast.DefaultOperators(),
		maxFileSize: 10 * 1024 * 1024,
		maxDepth:    1000,
	}
}

// WithMaxFileSize sets the maximum source size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum term nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithOperators replaces the operator table.
func (p *Parser) WithOperators(ops *ast.OperatorTable) *Parser {
	p.ops = ops
	return p
}

// Parse reads and parses the theory file at path.
func (p *Parser) Parse(path string) ([]*ast.Clause, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &luconErrors.Error{
			Type:     luconErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &luconErrors.Error{
			Type:     luconErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &luconErrors.Error{
			Type:     luconErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses theory text. The name is used in error locations.
func (p *Parser) ParseBytes(data []byte, name string) ([]*ast.Clause, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &luconErrors.Error{
			Type:     luconErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("policy size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: name},
		}
	}
	if !utf8.Valid(data) {
		return nil, &luconErrors.Error{
			Type:     luconErrors.ErrorTypeIO,
			Message:  "policy source is not valid UTF-8",
			Location: ast.Location{File: name},
		}
	}
	return p.ParseString(string(data), name)
}

// ParseString parses theory text into clauses in declaration order.
//
// Parsing continues after a malformed clause so that every error is reported;
// if any clause is malformed an *errors.ErrorList is returned and no clauses.
// Directives such as :- discontiguous p/1 carry no logical content and are
// dropped.
func (p *Parser) ParseString(src, name string) ([]*ast.Clause, error) {
	st := newState(p, src, name)
	errs := luconErrors.NewErrorList()
	var clauses []*ast.Clause

	for {
		tok, err := st.peek()
		if err != nil {
			errs.Add(st.toError(err))
			st.recover()
			continue
		}
		if tok.kind == tokEOF {
			break
		}

		st.vars = make(map[string]*ast.Var)
		st.last = token{}
		loc := st.location(tok)
		term, _, err := st.parse(1200)
		if err == nil {
			err = st.expectEnd()
		}
		if err != nil {
			errs.Add(st.toError(err))
			st.recover()
			continue
		}

		clause, skip, cerr := p.toClause(term, loc)
		if cerr != nil {
			errs.Add(cerr)
			continue
		}
		if !skip {
			clauses = append(clauses, clause)
		}
	}

	if errs.HasErrors() {
		return nil, errs.AddContext(src)
	}
	return clauses, nil
}

// Goal is a parsed query together with its named variables.
type Goal struct {
	Term ast.Term

	// Vars lists the named variables of the goal in first-occurrence order.
	// Variables whose name starts with an underscore are omitted.
	Vars []*ast.Var
}

// ParseGoal parses a single goal. The terminating full stop is optional.
func (p *Parser) ParseGoal(src string) (*Goal, error) {
	term, err := p.parseSingle(src, "<goal>")
	if err != nil {
		return nil, err
	}
	if _, isVar := term.(*ast.Var); !isVar && !ast.IsCallable(term) {
		errs := luconErrors.NewErrorList()
		errs.Add(luconErrors.NewValidationError(ast.Location{File: "<goal>", Line: 1, Column: 1},
			"goal %s is not callable", term.String()))
		return nil, errs
	}

	goal := &Goal{Term: term}
	for _, v := range ast.Vars(term) {
		if v.Name != "" && v.Name[0] != '_' {
			goal.Vars = append(goal.Vars, v)
		}
	}
	return goal, nil
}

// ParseTerm parses a single term such as an attribute value given on a
// command line. The terminating full stop is optional.
func (p *Parser) ParseTerm(src string) (ast.Term, error) {
	return p.parseSingle(src, "<term>")
}

func (p *Parser) parseSingle(src, name string) (ast.Term, error) {
	st := newState(p, src, name)
	st.vars = make(map[string]*ast.Var)

	term, _, err := st.parse(1200)
	if err == nil {
		var tok token
		tok, err = st.peek()
		if err == nil && tok.kind == tokEnd {
			st.take()
			tok, err = st.peek()
		}
		if err == nil && tok.kind != tokEOF {
			err = st.syntaxErr(tok, "unexpected %s after term", tok.describe())
		}
	}
	if err != nil {
		errs := luconErrors.NewErrorList()
		errs.Add(st.toError(err))
		return nil, errs.AddContext(src)
	}
	return term, nil
}

// toClause converts a top-level term into a clause. skip is true for
// directives that are accepted but carry no clause.
func (p *Parser) toClause(term ast.Term, loc ast.Location) (*ast.Clause, bool, *luconErrors.Error) {
	if c, ok := term.(*ast.Compound); ok {
		switch {
		case c.Functor == ":-" && len(c.Args) == 1:
			return nil, true, p.checkDirective(c.Args[0], loc)
		case c.Functor == "?-" && len(c.Args) == 1:
			return nil, false, luconErrors.NewValidationError(loc, "queries are not allowed in a theory")
		case c.Functor == "-->" && len(c.Args) == 2:
			return nil, false, luconErrors.NewValidationError(loc, "grammar rules (-->) are not supported")
		case c.Functor == ":-" && len(c.Args) == 2:
			head, body := c.Args[0], c.Args[1]
			if err := checkHead(head, loc); err != nil {
				return nil, false, err
			}
			if err := checkBody(body, loc); err != nil {
				return nil, false, err
			}
			return &ast.Clause{Head: head, Body: body, Location: loc}, false, nil
		}
	}
	if err := checkHead(term, loc); err != nil {
		return nil, false, err
	}
	return &ast.Clause{Head: term, Body: ast.True, Location: loc}, false, nil
}

func (p *Parser) checkDirective(d ast.Term, loc ast.Location) *luconErrors.Error {
	if c, ok := d.(*ast.Compound); ok && len(c.Args) == 1 {
		switch c.Functor {
		case "discontiguous", "dynamic":
			return nil
		}
	}
	return luconErrors.NewValidationError(loc, "unsupported directive :- %s", d.String())
}

var controlConstructs = map[ast.Key]bool{
	{Name: ",", Arity: 2}:  true,
	{Name: ";", Arity: 2}:  true,
	{Name: "->", Arity: 2}: true,
	{Name: "\\+", Arity: 1}: true,
}

func checkHead(head ast.Term, loc ast.Location) *luconErrors.Error {
	key, ok := ast.KeyOf(head)
	if !ok {
		if _, isVar := head.(*ast.Var); isVar {
			return luconErrors.NewValidationError(loc, "clause head cannot be a variable")
		}
		return luconErrors.NewValidationError(loc, "clause head %s is not callable", head.String())
	}
	if controlConstructs[key] {
		return luconErrors.NewValidationError(loc, "cannot redefine control construct %s", key.String())
	}
	return nil
}

func checkBody(body ast.Term, loc ast.Location) *luconErrors.Error {
	switch b := body.(type) {
	case *ast.Var:
		return nil
	case *ast.Compound:
		switch b.Functor {
		case ",", ";", "->":
			if len(b.Args) == 2 {
				if err := checkBody(b.Args[0], loc); err != nil {
					return err
				}
				return checkBody(b.Args[1], loc)
			}
		}
		return nil
	case ast.Atom:
		return nil
	default:
		return luconErrors.NewValidationError(loc, "clause body contains non-callable goal %s", body.String())
	}
}
