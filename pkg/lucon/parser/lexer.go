package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokAtom
	tokVar
	tokInt
	tokFloat
	tokString
	tokPunct // ( ) [ ] { } , |
	tokEnd   // clause-terminating full stop
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokAtom:
		return "atom"
	case tokVar:
		return "variable"
	case tokInt, tokFloat:
		return "number"
	case tokString:
		return "string"
	case tokPunct:
		return "punctuation"
	case tokEnd:
		return "end of clause"
	}
	return "token"
}

type token struct {
	kind   tokenKind
	text   string
	ival   int64
	fval   float64
	line   int
	col    int
	layout bool // whitespace or comment directly before the token
	quoted bool // atom written in single quotes
	offset int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF, tokEnd:
		return t.kind.String()
	case tokString:
		return strconv.Quote(t.text)
	}
	return fmt.Sprintf("%q", t.text)
}

type lexError struct {
	line, col int
	msg       string
}

func (e *lexError) Error() string { return e.msg }

// lexer produces tokens from policy source text.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peekRune(offset int) rune {
	p := l.pos
	for i := 0; i < offset; i++ {
		if p >= len(l.src) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(l.src[p:])
		p += size
	}
	if p >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[p:])
	return r
}

func (l *lexer) advance() rune {
	if l.pos >= len(l.src) {
		return -1
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(line, col int, format string, args ...any) *lexError {
	return &lexError{line: line, col: col, msg: fmt.Sprintf(format, args...)}
}

// skipLayout skips whitespace and comments and reports whether any was found.
func (l *lexer) skipLayout() (bool, error) {
	skipped := false
	for {
		r := l.peekRune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			l.advance()
			skipped = true
		case r == '%':
			for r := l.peekRune(0); r != '\n' && r != -1; r = l.peekRune(0) {
				l.advance()
			}
			skipped = true
		case r == '/' && l.peekRune(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			for {
				r := l.advance()
				if r == -1 {
					return skipped, l.errorf(line, col, "unterminated block comment")
				}
				if r == '*' && l.peekRune(0) == '/' {
					l.advance()
					break
				}
			}
			skipped = true
		default:
			return skipped, nil
		}
	}
}

// next returns the next token.
func (l *lexer) next() (token, error) {
	layout, err := l.skipLayout()
	if err != nil {
		return token{}, err
	}
	tok := token{line: l.line, col: l.col, layout: layout, offset: l.pos}
	r := l.peekRune(0)

	switch {
	case r == -1:
		tok.kind = tokEOF
		return tok, nil

	case r >= '0' && r <= '9':
		return l.number(tok)

	case ast.IsUpper(r):
		tok.kind = tokVar
		tok.text = l.identifier()
		return tok, nil

	case ast.IsLower(r):
		tok.kind = tokAtom
		tok.text = l.identifier()
		return tok, nil

	case r == '\'':
		text, err := l.quoted('\'')
		if err != nil {
			return token{}, err
		}
		tok.kind = tokAtom
		tok.text = text
		tok.quoted = true
		return tok, nil

	case r == '"':
		text, err := l.quoted('"')
		if err != nil {
			return token{}, err
		}
		tok.kind = tokString
		tok.text = text
		return tok, nil

	case strings.ContainsRune("()[]{},|", r):
		l.advance()
		tok.kind = tokPunct
		tok.text = string(r)
		if r == '[' && l.peekRune(0) == ']' {
			l.advance()
			tok.kind = tokAtom
			tok.text = "[]"
		} else if r == '{' && l.peekRune(0) == '}' {
			l.advance()
			tok.kind = tokAtom
			tok.text = "{}"
		}
		return tok, nil

	case r == '!' || r == ';':
		l.advance()
		tok.kind = tokAtom
		tok.text = string(r)
		return tok, nil

	case ast.IsSymbolChar(r):
		if r == '.' {
			after := l.peekRune(1)
			if after == -1 || after == '%' || after == ' ' || after == '\n' || after == '\t' || after == '\r' {
				l.advance()
				tok.kind = tokEnd
				tok.text = "."
				return tok, nil
			}
		}
		start := l.pos
		for ast.IsSymbolChar(l.peekRune(0)) {
			l.advance()
		}
		tok.kind = tokAtom
		tok.text = l.src[start:l.pos]
		return tok, nil
	}

	return token{}, l.errorf(tok.line, tok.col, "unexpected character %q", r)
}

func (l *lexer) identifier() string {
	start := l.pos
	for ast.IsAlnum(l.peekRune(0)) {
		l.advance()
	}
	return l.src[start:l.pos]
}

func (l *lexer) digits() string {
	start := l.pos
	for r := l.peekRune(0); (r >= '0' && r <= '9') || r == '_'; r = l.peekRune(0) {
		l.advance()
	}
	return strings.ReplaceAll(l.src[start:l.pos], "_", "")
}

func (l *lexer) number(tok token) (token, error) {
	// Character code and radix literals: 0'a 0x1F 0o17 0b101
	if l.peekRune(0) == '0' {
		switch l.peekRune(1) {
		case '\'':
			l.advance()
			l.advance()
			r := l.advance()
			if r == -1 {
				return token{}, l.errorf(tok.line, tok.col, "incomplete character code literal")
			}
			if r == '\\' {
				esc, err := l.escape(tok.line, tok.col)
				if err != nil {
					return token{}, err
				}
				r = esc
			}
			tok.kind = tokInt
			tok.ival = int64(r)
			tok.text = l.src[tok.offset:l.pos]
			return tok, nil
		case 'x', 'o', 'b':
			base := map[rune]int{'x': 16, 'o': 8, 'b': 2}[l.peekRune(1)]
			l.advance()
			l.advance()
			start := l.pos
			for isDigitIn(l.peekRune(0), base) {
				l.advance()
			}
			v, err := strconv.ParseInt(l.src[start:l.pos], base, 64)
			if err != nil {
				return token{}, l.errorf(tok.line, tok.col, "invalid number literal: %v", err)
			}
			tok.kind = tokInt
			tok.ival = v
			tok.text = l.src[start:l.pos]
			return tok, nil
		}
	}

	intPart := l.digits()
	text := intPart
	isFloat := false
	if l.peekRune(0) == '.' && isDigitIn(l.peekRune(1), 10) {
		isFloat = true
		l.advance()
		text += "." + l.digits()
		if r := l.peekRune(0); r == 'e' || r == 'E' {
			sign := l.peekRune(1)
			if isDigitIn(sign, 10) || ((sign == '+' || sign == '-') && isDigitIn(l.peekRune(2), 10)) {
				l.advance()
				text += "e"
				if sign == '+' || sign == '-' {
					l.advance()
					text += string(sign)
				}
				text += l.digits()
			}
		}
	}

	tok.text = text
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, l.errorf(tok.line, tok.col, "invalid float literal %q", text)
		}
		tok.kind = tokFloat
		tok.fval = f
		return tok, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, l.errorf(tok.line, tok.col, "integer literal %s out of range", text)
	}
	tok.kind = tokInt
	tok.ival = v
	return tok, nil
}

func isDigitIn(r rune, base int) bool {
	switch {
	case r >= '0' && r <= '9':
		return int(r-'0') < base
	case r >= 'a' && r <= 'f':
		return base == 16
	case r >= 'A' && r <= 'F':
		return base == 16
	}
	return false
}

// quoted reads a quoted atom or string. A doubled quote stands for itself.
func (l *lexer) quoted(q rune) (string, error) {
	line, col := l.line, l.col
	l.advance()
	var sb strings.Builder
	for {
		r := l.advance()
		switch r {
		case -1:
			return "", l.errorf(line, col, "unterminated quoted %s", map[rune]string{'\'': "atom", '"': "string"}[q])
		case q:
			if l.peekRune(0) == q {
				l.advance()
				sb.WriteRune(q)
				continue
			}
			return sb.String(), nil
		case '\\':
			if l.peekRune(0) == '\n' {
				l.advance()
				continue
			}
			esc, err := l.escape(line, col)
			if err != nil {
				return "", err
			}
			sb.WriteRune(esc)
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) escape(line, col int) (rune, error) {
	r := l.advance()
	switch r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"', '`':
		return r, nil
	case 'x':
		start := l.pos
		for isDigitIn(l.peekRune(0), 16) {
			l.advance()
		}
		v, err := strconv.ParseInt(l.src[start:l.pos], 16, 32)
		if err != nil {
			return 0, l.errorf(line, col, "invalid hexadecimal escape")
		}
		if l.peekRune(0) == '\\' {
			l.advance()
		}
		return rune(v), nil
	case -1:
		return 0, l.errorf(line, col, "unterminated escape sequence")
	}
	return 0, l.errorf(l.line, l.col-1, "unknown escape sequence \\%c", r)
}
