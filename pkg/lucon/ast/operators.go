package ast

// OpType is the associativity class of an operator.
type OpType int

const (
	XFX OpType = iota
	XFY
	YFX
	FY
	FX
)

// Operator describes one entry of the operator table.
type Operator struct {
	Name     string
	Priority int
	Type     OpType
}

// IsPrefix reports whether the operator is a prefix operator.
func (o Operator) IsPrefix() bool { return o.Type == FY || o.Type == FX }

// ArgPriorities returns the maximum priorities of the left and right operands.
// For prefix operators only the right value is meaningful.
func (o Operator) ArgPriorities() (left, right int) {
	switch o.Type {
	case XFX:
		return o.Priority - 1, o.Priority - 1
	case XFY:
		return o.Priority - 1, o.Priority
	case YFX:
		return o.Priority, o.Priority - 1
	case FY:
		return 0, o.Priority
	default:
		return 0, o.Priority - 1
	}
}

// OperatorTable holds infix and prefix operator definitions.
type OperatorTable struct {
	infix  map[string]Operator
	prefix map[string]Operator
}

// NewOperatorTable creates an empty table.
func NewOperatorTable() *OperatorTable {
	return &OperatorTable{
		infix:  make(map[string]Operator),
		prefix: make(map[string]Operator),
	}
}

// Add registers an operator, replacing any previous definition of the same
// name and class.
func (t *OperatorTable) Add(priority int, typ OpType, names ...string) {
	for _, name := range names {
		op := Operator{Name: name, Priority: priority, Type: typ}
		if op.IsPrefix() {
			t.prefix[name] = op
		} else {
			t.infix[name] = op
		}
	}
}

// Infix looks up an infix operator.
func (t *OperatorTable) Infix(name string) (Operator, bool) {
	op, ok := t.infix[name]
	return op, ok
}

// Prefix looks up a prefix operator.
func (t *OperatorTable) Prefix(name string) (Operator, bool) {
	op, ok := t.prefix[name]
	return op, ok
}

// IsOperator reports whether name is defined in either class.
func (t *OperatorTable) IsOperator(name string) bool {
	_, in := t.infix[name]
	_, pre := t.prefix[name]
	return in || pre
}

// maxPriority returns the highest priority of name across both classes.
func (t *OperatorTable) maxPriority(name string) int {
	p := 0
	if op, ok := t.infix[name]; ok && op.Priority > p {
		p = op.Priority
	}
	if op, ok := t.prefix[name]; ok && op.Priority > p {
		p = op.Priority
	}
	return p
}

var defaultOps = newDefaultOperators()

// DefaultOperators returns the shared standard operator table. The returned
// table must not be modified.
func DefaultOperators() *OperatorTable {
	return defaultOps
}

func newDefaultOperators() *OperatorTable {
	t := NewOperatorTable()
	t.Add(1200, XFX, ":-", "-->")
	t.Add(1200, FX, ":-", "?-")
	t.Add(1150, FX, "dynamic", "discontiguous", "multifile")
	t.Add(1100, XFY, ";", "|")
	t.Add(1050, XFY, "->")
	t.Add(1000, XFY, ",")
	t.Add(900, FY, "\\+")
	// Legacy host-binding syntax: class("C") <- method(Args) returns R.
	t.Add(850, XFX, "returns")
	t.Add(800, XFX, "<-")
	t.Add(700, XFX, "=", "\\=", "==", "\\==", "@<", "@>", "@=<", "@>=",
		"=..", "is", "=:=", "=\\=", "<", ">", "=<", ">=")
	t.Add(500, YFX, "+", "-", "/\\", "\\/")
	t.Add(400, YFX, "*", "/", "//", "mod", "rem", "<<", ">>")
	t.Add(200, XFX, "**")
	t.Add(200, XFY, "^")
	t.Add(200, FY, "-", "+", "\\")
	return t
}
