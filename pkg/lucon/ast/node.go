package ast

// Node is the structured (tree) form of a term, suitable for JSON encoding.
type Node struct {
	// Kind is the term kind: atom, integer, float, string, var, compound or list.
	Kind string `json:"kind"`

	// Value holds the textual value of atomic terms and the name of variables.
	Value string `json:"value,omitempty"`

	// Functor is set for compound terms.
	Functor string `json:"functor,omitempty"`

	// Args holds compound arguments or list items.
	Args []*Node `json:"args,omitempty"`

	// Tail is set for lists not terminated by [].
	Tail *Node `json:"tail,omitempty"`
}

// ClauseNode is the structured form of a clause.
type ClauseNode struct {
	Head *Node `json:"head"`
	Body *Node `json:"body,omitempty"`
}

// ToNode converts a term into its structured form.
func ToNode(t Term) *Node {
	switch v := t.(type) {
	case Atom:
		return &Node{Kind: KindAtom.String(), Value: string(v)}
	case Int:
		return &Node{Kind: KindInt.String(), Value: v.String()}
	case Float:
		return &Node{Kind: KindFloat.String(), Value: v.String()}
	case String:
		return &Node{Kind: KindString.String(), Value: string(v)}
	case *Var:
		return &Node{Kind: KindVar.String(), Value: v.String()}
	case *Compound:
		if v.Kind() == KindList {
			items, tail := ListItems(v)
			n := &Node{Kind: KindList.String(), Args: make([]*Node, len(items))}
			for i, item := range items {
				n.Args[i] = ToNode(item)
			}
			if tail != Nil {
				n.Tail = ToNode(tail)
			}
			return n
		}
		n := &Node{Kind: KindCompound.String(), Functor: v.Functor, Args: make([]*Node, len(v.Args))}
		for i, a := range v.Args {
			n.Args[i] = ToNode(a)
		}
		return n
	default:
		return nil
	}
}

// ToClauseNode converts a clause into its structured form. Facts omit the body.
func ToClauseNode(c *Clause) *ClauseNode {
	n := &ClauseNode{Head: ToNode(c.Head)}
	if !c.IsFact() {
		n.Body = ToNode(c.Body)
	}
	return n
}
