package models

// State is the investigation lifecycle state. Transitions are strictly
// forward through the phase sequence; PARTIAL and FAILED are reachable from
// any non-terminal state. No state is ever re-entered.
type State string

const (
	StatePending              State = "PENDING"
	StateEntityInvestigation  State = "ENTITY_INVESTIGATION"
	StateCrossEntityAnalysis  State = "CROSS_ENTITY_ANALYSIS"
	StateRelationshipAnalysis State = "RELATIONSHIP_ANALYSIS"
	StateBooleanEvaluation    State = "BOOLEAN_EVALUATION"
	StateRiskAssessment       State = "RISK_ASSESSMENT"
	StateCompleted            State = "COMPLETED"
	StatePartial              State = "PARTIAL"
	StateFailed               State = "FAILED"
)

// phaseOrder indexes the forward phase sequence. Terminal branch states are
// not part of the ordering.
var phaseOrder = map[State]int{
	StatePending:              0,
	StateEntityInvestigation:  1,
	StateCrossEntityAnalysis:  2,
	StateRelationshipAnalysis: 3,
	StateBooleanEvaluation:    4,
	StateRiskAssessment:       5,
	StateCompleted:            6,
}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StatePartial, StateFailed:
		return true
	}
	return false
}

// Before reports whether s precedes other in the forward phase sequence.
// Terminal branch states (PARTIAL, FAILED) order before nothing.
func (s State) Before(other State) bool {
	from, okFrom := phaseOrder[s]
	to, okTo := phaseOrder[other]
	return okFrom && okTo && from < to
}

// CanTransition reports whether moving from s to next is a legal transition:
// strictly forward through the phase sequence, or a branch to PARTIAL/FAILED
// from any non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StatePartial || next == StateFailed {
		return true
	}
	from, okFrom := phaseOrder[s]
	to, okTo := phaseOrder[next]
	return okFrom && okTo && to > from
}
