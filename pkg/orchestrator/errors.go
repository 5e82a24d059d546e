package orchestrator

import "errors"

// ErrNotReady is returned by Results while the investigation has not yet
// produced its final assessment.
var ErrNotReady = errors.New("assessment not ready")

// ErrAlreadyTerminal is returned by Cancel when the investigation has
// already reached a terminal state.
var ErrAlreadyTerminal = errors.New("investigation already terminal")
