package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
)

const examplePolicy = `%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%%
%   Prolog representation of a data flow policy
%:- discontiguous service/1.
regex(A,B,C) :- class("java.util.regex.Pattern") <- matches(A,B) returns C.
%%%%%%%% Rules %%%%%%%%%%%%
rule(deleteAfterOneMonth).
has_target(deleteAfterOneMonth, service78096644).
service(service78096644).
has_endpoint(service78096644, "hdfs.*").
receives_label(deleteAfterOneMonth,private).
has_obligation(deleteAfterOneMonth, obl1709554620).
requires_prerequisite(obl1709554620, delete_after_days(30)).
has_alternativedecision(obl1709554620, drop).
rule(anotherRule).
has_target(anotherRule, hiveMqttBroker).
has_property(anonymizer,myProp,anonymize('surname', 'name')).
`

func TestParser_ParseString_ExamplePolicy(t *testing.T) {
	clauses, err := NewParser().ParseString(examplePolicy, "example.pl")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}
	if len(clauses) != 12 {
		t.Fatalf("len(clauses) = %d, want 12", len(clauses))
	}

	first := clauses[0]
	if got := first.Key(); got != (ast.Key{Name: "regex", Arity: 3}) {
		t.Errorf("first clause key = %v, want regex/3", got)
	}
	body, ok := first.Body.(*ast.Compound)
	if !ok || body.Functor != "returns" {
		t.Fatalf("host binding body = %v, want returns/2 at the top", first.Body)
	}
	if inner, ok := body.Args[0].(*ast.Compound); !ok || inner.Functor != "<-" {
		t.Errorf("host binding left operand = %v, want <-/2", body.Args[0])
	}

	if first.Location.Line != 4 || first.Location.File != "example.pl" {
		t.Errorf("first clause location = %v, want example.pl:4:1", first.Location)
	}

	last := clauses[len(clauses)-1]
	if got, want := last.String(), "has_property(anonymizer,myProp,anonymize(surname,name))"; got != want {
		t.Errorf("last clause = %q, want %q", got, want)
	}
}

func TestParser_ParseString_Terms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"fact", "p(a, b).", "p(a,b)"},
		{"rule", "p(X) :- q(X), r(X).", "p(X) :- q(X), r(X)"},
		{"disjunction", "p :- a ; b.", "p :- a ; b"},
		{"bar as disjunction", "p :- a | b.", "p :- a ; b"},
		{"if then else", "p(X) :- ( X > 1 -> a ; b ).", "p(X) :- X > 1 -> a ; b"},
		{"negation", "p(X) :- \\+ q(X).", "p(X) :- \\+ q(X)"},
		{"arithmetic precedence", "p(X) :- X is 1 + 2 * 3.", "p(X) :- X is 1 + 2 * 3"},
		{"left associative", "p(X) :- X is 10 - 2 - 3.", "p(X) :- X is 10 - 2 - 3"},
		{"parenthesized right", "p(X) :- X is 10 - (2 - 3).", "p(X) :- X is 10 - (2 - 3)"},
		{"negative number", "p(-3).", "p(-3)"},
		{"minus with layout", "p(- 3).", "p(-(3))"},
		{"float", "p(1.5e3).", "p(1500.0)"},
		{"character code", "p(0'a).", "p(97)"},
		{"hex", "p(0x1F).", "p(31)"},
		{"list", "p([a, b, c]).", "p([a,b,c])"},
		{"partial list", "p([H|T]) :- q(H, T).", "p([H|T]) :- q(H,T)"},
		{"empty list", "p([]).", "p([])"},
		{"curly", "p({a, b}).", "p({a, b})"},
		{"quoted atom", "p('Hello World').", "p('Hello World')"},
		{"quoted plain atom", "p('abc').", "p(abc)"},
		{"string escape", `p("a\"b\n").`, `p("a\"b\n")`},
		{"doubled quote", "p('it''s').", `p('it\'s')`},
		{"operator as atom", "p(-, +).", "p(-,+)"},
		{"operator functional notation", "p(-(1)).", "p(-(1))"},
		{"block comment", "p(/* inline */ a).", "p(a)"},
		{"cut", "p :- q, !.", "p :- q, !"},
		{"comparison", "p(X, Y) :- X @< Y.", "p(X,Y) :- X @< Y"},
		{"univ", "p(X, L) :- X =.. L.", "p(X,L) :- X =.. L"},
		{"power", "a(2 ** 3).", "a(2 ** 3)"},
		{"operator atom as operand", "a(X) :- X = (-).", "a(X) :- X = (-)"},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := p.ParseString(tt.src, "")
			if err != nil {
				t.Fatalf("ParseString(%q) failed: %v", tt.src, err)
			}
			if len(clauses) != 1 {
				t.Fatalf("len(clauses) = %d, want 1", len(clauses))
			}
			if got := clauses[0].String(); got != tt.want {
				t.Errorf("ParseString(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParser_RoundTrip(t *testing.T) {
	p := NewParser()
	src := examplePolicy + "a(X) :- X = (-).\nb(X) :- X == (:-), - (+) = Y, Y = [-].\nc(X) :- X is 2 ** 3.\n"
	clauses, err := p.ParseString(src, "")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}

	text := ast.FormatClauses(clauses)
	again, err := p.ParseString(text, "")
	if err != nil {
		t.Fatalf("re-parse of rendered theory failed: %v\n%s", err, text)
	}
	if len(again) != len(clauses) {
		t.Fatalf("re-parse produced %d clauses, want %d", len(again), len(clauses))
	}
	for i := range clauses {
		if again[i].String() != clauses[i].String() {
			t.Errorf("clause %d = %q after round trip, want %q", i, again[i].String(), clauses[i].String())
		}
	}
}

func TestParser_VariableScoping(t *testing.T) {
	clauses, err := NewParser().ParseString("p(X, Y, X).\nq(X, _, _).", "")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}

	p := clauses[0].Head.(*ast.Compound)
	if p.Args[0] != p.Args[2] {
		t.Error("X should be the same variable within one clause")
	}
	if p.Args[0] == p.Args[1] {
		t.Error("X and Y should be distinct variables")
	}

	q := clauses[1].Head.(*ast.Compound)
	if q.Args[0] == p.Args[0] {
		t.Error("X should not be shared across clauses")
	}
	if q.Args[1] == q.Args[2] {
		t.Error("each _ should be a fresh variable")
	}
}

func TestParser_Directives(t *testing.T) {
	src := ":- discontiguous service/1.\n:- dynamic rule/1.\nservice(a).\n"
	clauses, err := NewParser().ParseString(src, "")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}
	if len(clauses) != 1 {
		t.Errorf("len(clauses) = %d, want 1 (directives dropped)", len(clauses))
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantType luconErrors.ErrorType
		wantLine int
		contains string
	}{
		{"not a clause", "This is invalid", luconErrors.ErrorTypeSyntax, 1, "expected end of clause"},
		{"missing full stop", "p(a)\nq(b).", luconErrors.ErrorTypeSyntax, 2, "expected end of clause"},
		{"unbalanced", "p(a, b.\n", luconErrors.ErrorTypeSyntax, 1, ""},
		{"unterminated string", "p(\"abc).", luconErrors.ErrorTypeSyntax, 1, "unterminated quoted string"},
		{"unterminated comment", "p(a). /* open", luconErrors.ErrorTypeSyntax, 1, "unterminated block comment"},
		{"variable head", "X :- p(X).", luconErrors.ErrorTypeValidation, 1, "variable"},
		{"number head", "42.", luconErrors.ErrorTypeValidation, 1, "not callable"},
		{"number goal", "p :- q, 1.", luconErrors.ErrorTypeValidation, 1, "non-callable"},
		{"grammar rule", "s --> np, vp.", luconErrors.ErrorTypeValidation, 1, "grammar rules"},
		{"unsupported directive", ":- initialization(main).", luconErrors.ErrorTypeValidation, 1, "unsupported directive"},
		{"redefine control", "(a, b) :- true.", luconErrors.ErrorTypeValidation, 1, "control construct"},
		{"unexpected character", "p(a) :- q(`).", luconErrors.ErrorTypeSyntax, 1, "unexpected character"},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := p.ParseString(tt.src, "")
			if err == nil {
				t.Fatalf("ParseString(%q) = %v, want error", tt.src, clauses)
			}
			errList, ok := err.(*luconErrors.ErrorList)
			if !ok {
				t.Fatalf("error type = %T, want *errors.ErrorList", err)
			}
			first := errList.First()
			if first.Type != tt.wantType {
				t.Errorf("error type = %q, want %q (%v)", first.Type, tt.wantType, first)
			}
			if first.Location.Line != tt.wantLine {
				t.Errorf("error line = %d, want %d", first.Location.Line, tt.wantLine)
			}
			if tt.contains != "" && !strings.Contains(first.Message, tt.contains) {
				t.Errorf("error message = %q, want it to contain %q", first.Message, tt.contains)
			}
		})
	}
}

func TestParser_ErrorRecovery(t *testing.T) {
	src := "p(a.\nq(b).\nr(c\n.\ns(d).\n"
	_, err := NewParser().ParseString(src, "multi.pl")
	errList, ok := err.(*luconErrors.ErrorList)
	if !ok {
		t.Fatalf("error type = %T, want *errors.ErrorList", err)
	}
	if errList.Count() != 2 {
		t.Errorf("Count() = %d, want 2: %v", errList.Count(), errList)
	}
	if errList.First().Context == "" {
		t.Error("expected source context on the first error")
	}
}

func TestParser_Parse_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.pl")
	if err := os.WriteFile(path, []byte(examplePolicy), 0o644); err != nil {
		t.Fatal(err)
	}

	clauses, err := NewParser().Parse(path)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(clauses) != 12 {
		t.Errorf("len(clauses) = %d, want 12", len(clauses))
	}

	if _, err := NewParser().WithMaxFileSize(10).Parse(path); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := NewParser().Parse(filepath.Join(dir, "missing.pl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParser_MaxDepth(t *testing.T) {
	src := "p(" + strings.Repeat("f(", 50) + "a" + strings.Repeat(")", 50) + ")."
	if _, err := NewParser().WithMaxDepth(20).ParseString(src, ""); err == nil {
		t.Error("expected depth limit error")
	}
	if _, err := NewParser().ParseString(src, ""); err != nil {
		t.Errorf("default depth should accept 50 levels: %v", err)
	}
}

func TestParser_ParseGoal(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     string
		wantVars []string
	}{
		{"conjunction", `has_endpoint(X,Y),regex(Y, "hdfs://myendpoint",C),C.`,
			`has_endpoint(X,Y), regex(Y,"hdfs://myendpoint",C), C`, []string{"X", "Y", "C"}},
		{"no full stop", "move(3,left,right,center)", "move(3,left,right,center)", nil},
		{"underscore omitted", "p(_Ignored, X, _)", "p(_Ignored,X,_)", []string{"X"}},
		{"variable goal", "G", "G", []string{"G"}},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal, err := p.ParseGoal(tt.src)
			if err != nil {
				t.Fatalf("ParseGoal(%q) failed: %v", tt.src, err)
			}
			if got := ast.Format(goal.Term); got != tt.want {
				t.Errorf("goal = %q, want %q", got, tt.want)
			}
			var names []string
			for _, v := range goal.Vars {
				names = append(names, v.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantVars, ",") {
				t.Errorf("vars = %v, want %v", names, tt.wantVars)
			}
		})
	}
}

func TestParser_ParseGoal_Errors(t *testing.T) {
	for _, src := range []string{"", "p(", "p. q.", "42", "p :- "} {
		if _, err := NewParser().ParseGoal(src); err == nil {
			t.Errorf("ParseGoal(%q) succeeded, want error", src)
		}
	}
}

func TestParser_ParseTerm(t *testing.T) {
	term, err := NewParser().ParseTerm("42")
	if err != nil {
		t.Fatalf("ParseTerm() failed: %v", err)
	}
	if term != ast.Int(42) {
		t.Errorf("ParseTerm(42) = %v, want 42", term)
	}
}
