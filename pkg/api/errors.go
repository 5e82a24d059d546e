package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fraudsight/crosscheck/pkg/investigation"
	"github.com/fraudsight/crosscheck/pkg/orchestrator"
	"github.com/fraudsight/crosscheck/pkg/store"
	"github.com/fraudsight/crosscheck/pkg/validate"
)

// mapError maps pipeline errors to HTTP status codes and safe messages.
func mapError(err error) (int, string) {
	if validate.IsValidationError(err) {
		return http.StatusBadRequest, err.Error()
	}
	if errors.Is(err, investigation.ErrNotFound) || errors.Is(err, store.ErrNoRecord) {
		return http.StatusNotFound, "investigation not found"
	}
	if errors.Is(err, orchestrator.ErrNotReady) {
		return http.StatusConflict, "assessment not ready"
	}
	if errors.Is(err, orchestrator.ErrAlreadyTerminal) {
		return http.StatusConflict, "investigation already terminal"
	}
	var stateErr *investigation.StateError
	if errors.As(err, &stateErr) {
		return http.StatusConflict, stateErr.Error()
	}

	slog.Error("Unexpected API error", "error", err)
	return http.StatusInternalServerError, "internal server error"
}
