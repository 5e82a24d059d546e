// Package boolexpr implements the boolean combination language used to fold
// per-entity risk predicates into a single decision.
//
// Grammar (precedence NOT > AND > OR, left-associative):
//
//	expr    := term (OR term)*
//	term    := factor (AND factor)*
//	factor  := NOT factor | primary
//	primary := IDENT | '(' expr ')'
//
// Identifiers are entity ids; each evaluates to risk_score(id) >= threshold.
package boolexpr

// Node is one node of a parsed boolean expression.
type Node interface {
	// String renders the sub-expression in canonical form, used as the key
	// in evaluation traces.
	String() string
}

// Ident is an entity-id leaf.
type Ident struct {
	Name string
}

func (n *Ident) String() string { return n.Name }

// Not is unary negation.
type Not struct {
	Expr Node
}

func (n *Not) String() string { return "NOT " + wrap(n.Expr) }

// And is binary conjunction.
type And struct {
	Left, Right Node
}

func (n *And) String() string { return wrap(n.Left) + " AND " + wrap(n.Right) }

// Or is binary disjunction.
type Or struct {
	Left, Right Node
}

func (n *Or) String() string { return wrap(n.Left) + " OR " + wrap(n.Right) }

// wrap parenthesizes non-leaf operands so trace keys are unambiguous.
func wrap(n Node) string {
	if _, ok := n.(*Ident); ok {
		return n.String()
	}
	return "(" + n.String() + ")"
}

// Vars returns the distinct identifiers referenced by the expression, in
// first-appearance order.
func Vars(n Node) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Ident:
			if _, ok := seen[v.Name]; !ok {
				seen[v.Name] = struct{}{}
				out = append(out, v.Name)
			}
		case *Not:
			walk(v.Expr)
		case *And:
			walk(v.Left)
			walk(v.Right)
		case *Or:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)
	return out
}
