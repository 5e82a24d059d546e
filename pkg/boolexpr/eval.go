package boolexpr

import "sort"

// Step records the evaluated value of one sub-expression, in post-order.
type Step struct {
	Expression string
	Value      bool
}

// Evaluation is the result of evaluating a parsed expression against a set
// of per-entity risk scores.
type Evaluation struct {
	Expression string
	Value      bool
	Threshold  float64
	Steps      []Step
	// Undefined lists identifiers that had no score: they evaluated to
	// false rather than raising, and are surfaced here for the audit trail.
	Undefined []string
}

// Evaluate walks the AST, mapping each identifier to the predicate
// score >= threshold. Identifiers absent from scores evaluate to false and
// are collected in Undefined. Evaluation is total: parse errors are caught
// at request validation, never here.
func Evaluate(root Node, scores map[string]float64, threshold float64) *Evaluation {
	ev := &Evaluation{
		Expression: root.String(),
		Threshold:  threshold,
	}
	undefined := make(map[string]struct{})

	var walk func(Node) bool
	walk = func(n Node) bool {
		var v bool
		switch node := n.(type) {
		case *Ident:
			score, ok := scores[node.Name]
			if !ok {
				undefined[node.Name] = struct{}{}
				v = false
			} else {
				v = score >= threshold
			}
		case *Not:
			v = !walk(node.Expr)
		case *And:
			// Both sides always evaluated: the trace must explain every
			// sub-expression, so no short-circuiting.
			l := walk(node.Left)
			r := walk(node.Right)
			v = l && r
		case *Or:
			l := walk(node.Left)
			r := walk(node.Right)
			v = l || r
		}
		ev.Steps = append(ev.Steps, Step{Expression: n.String(), Value: v})
		return v
	}

	ev.Value = walk(root)

	for name := range undefined {
		ev.Undefined = append(ev.Undefined, name)
	}
	sort.Strings(ev.Undefined)
	return ev
}
