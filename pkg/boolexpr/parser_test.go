package boolexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalForms(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"A", "A"},
		{"A AND B", "A AND B"},
		{"A OR B", "A OR B"},
		{"NOT A", "NOT A"},
		{"(A AND B) OR NOT C", "(A AND B) OR (NOT C)"},
		// NOT binds tighter than AND, AND tighter than OR.
		{"NOT A AND B OR C", "((NOT A) AND B) OR C"},
		// Left-associative within a level.
		{"A OR B OR C", "(A OR B) OR C"},
		{"A AND B AND C", "(A AND B) AND C"},
		// Parens override precedence.
		{"A AND (B OR C)", "A AND (B OR C)"},
		// Keywords are case-insensitive.
		{"a and not b", "a AND (NOT b)"},
		// Entity ids may carry separators.
		{"txn-42 OR user_1.primary", "txn-42 OR user_1.primary"},
	}

	for _, tt := range tests {
		node, err := Parse(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, node.String(), "input %q", tt.input)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"A AND",
		"AND A",
		"(A OR B",
		"A B",
		"A && B",
		"NOT",
		"()",
	}
	for _, input := range inputs {
		_, err := Parse(input)
		assert.Error(t, err, "input %q should not parse", input)
		if err != nil {
			var pe *ParseError
			assert.ErrorAs(t, err, &pe, "input %q", input)
		}
	}
}

func TestVars(t *testing.T) {
	node, err := Parse("(A AND B) OR (NOT C AND A)")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, Vars(node))
}

func TestEvaluateTracesEverySubexpression(t *testing.T) {
	// "(A AND B) OR NOT C" with fixed scores must be deterministic and the
	// trace must explain every sub-expression.
	node, err := Parse("(A AND B) OR NOT C")
	require.NoError(t, err)

	scores := map[string]float64{"A": 0.9, "B": 0.5, "C": 0.2}
	ev := Evaluate(node, scores, 0.7)

	// A=true, B=false -> AND false; C=false -> NOT C=true -> OR true.
	assert.True(t, ev.Value)
	assert.Empty(t, ev.Undefined)

	values := make(map[string]bool)
	for _, step := range ev.Steps {
		values[step.Expression] = step.Value
	}
	assert.True(t, values["A"])
	assert.False(t, values["B"])
	assert.False(t, values["C"])
	assert.False(t, values["A AND B"])
	assert.True(t, values["NOT C"])
	assert.True(t, values["(A AND B) OR (NOT C)"])

	// Re-evaluating yields the identical result.
	again := Evaluate(node, scores, 0.7)
	assert.Equal(t, ev, again)
}

func TestEvaluateUndefinedEntitiesAreFalse(t *testing.T) {
	node, err := Parse("A AND B")
	require.NoError(t, err)

	ev := Evaluate(node, map[string]float64{"A": 0.95}, 0.7)
	assert.False(t, ev.Value)
	assert.Equal(t, []string{"B"}, ev.Undefined)
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	node, err := Parse("A")
	require.NoError(t, err)

	// Predicate is score >= threshold, inclusive.
	assert.True(t, Evaluate(node, map[string]float64{"A": 0.7}, 0.7).Value)
	assert.False(t, Evaluate(node, map[string]float64{"A": 0.699}, 0.7).Value)
}
