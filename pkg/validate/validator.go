// Package validate implements synchronous request validation: structural
// rules via go-playground/validator tags, then the semantic checks the tags
// cannot express — referential integrity of relationships and boolean logic,
// enum membership, and self-loop rejection. A request that passes Validate
// never fails validation later in the pipeline.
package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fraudsight/crosscheck/pkg/boolexpr"
	"github.com/fraudsight/crosscheck/pkg/models"
)

// ValidationError wraps field-specific validation failures. Surfaced
// synchronously at start; the investigation is never created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validator validates investigation requests.
type Validator struct {
	structural *validator.Validate
}

// New creates a request validator.
func New() *Validator {
	return &Validator{structural: validator.New()}
}

// Validate checks the whole request. The first violation found is returned.
func (v *Validator) Validate(req *models.InvestigationRequest) error {
	if err := v.structural.Struct(req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("validating request: %w", err)
		}
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return NewValidationError(f.Namespace(), fmt.Sprintf("failed %q constraint", f.Tag()))
		}
		return err
	}

	if len(req.Entities) < models.MinEntities || len(req.Entities) > models.MaxEntities {
		return NewValidationError("entities",
			fmt.Sprintf("entity count must be in [%d,%d], got %d",
				models.MinEntities, models.MaxEntities, len(req.Entities)))
	}

	declared := make(map[string]struct{}, len(req.Entities))
	for i, e := range req.Entities {
		if !e.Type.Valid() {
			return NewValidationError(fmt.Sprintf("entities[%d].type", i),
				fmt.Sprintf("unknown entity type %q", e.Type))
		}
		if _, dup := declared[e.ID]; dup {
			return NewValidationError(fmt.Sprintf("entities[%d].id", i),
				fmt.Sprintf("duplicate entity id %q", e.ID))
		}
		declared[e.ID] = struct{}{}
	}

	if !req.Priority.Valid() {
		return NewValidationError("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}

	for i, domain := range req.Scope {
		if domain == "" {
			return NewValidationError(fmt.Sprintf("investigation_scope[%d]", i), "empty domain name")
		}
	}

	if err := v.ValidateRelationships(req.Relationships, declared); err != nil {
		return err
	}

	if req.BooleanLogic != "" {
		node, err := boolexpr.Parse(req.BooleanLogic)
		if err != nil {
			return NewValidationError("boolean_logic", err.Error())
		}
		for _, name := range boolexpr.Vars(node) {
			if _, ok := declared[name]; !ok {
				return NewValidationError("boolean_logic",
					fmt.Sprintf("expression references undeclared entity %q", name))
			}
		}
	}

	return nil
}

// ValidateRelationships checks a relationship set against a declared entity
// id set. Used both at start and by update_relationships.
func (v *Validator) ValidateRelationships(rels []models.EntityRelationship, declared map[string]struct{}) error {
	for i, rel := range rels {
		field := fmt.Sprintf("relationships[%d]", i)
		if !rel.Type.Valid() {
			return NewValidationError(field, fmt.Sprintf("unknown relationship type %q", rel.Type))
		}
		if rel.SourceID == rel.TargetID {
			return NewValidationError(field, "self-loop relationships are not allowed")
		}
		if _, ok := declared[rel.SourceID]; !ok {
			return NewValidationError(field,
				fmt.Sprintf("source references undeclared entity %q", rel.SourceID))
		}
		if _, ok := declared[rel.TargetID]; !ok {
			return NewValidationError(field,
				fmt.Sprintf("target references undeclared entity %q", rel.TargetID))
		}
		if rel.Strength < 0 || rel.Strength > 1 {
			return NewValidationError(field, "strength must be in [0,1]")
		}
		if rel.Confidence < 0 || rel.Confidence > 1 {
			return NewValidationError(field, "confidence must be in [0,1]")
		}
	}
	return nil
}

// DeclaredSet builds the entity-id set for ValidateRelationships from an
// entity list.
func DeclaredSet(entities []models.Entity) map[string]struct{} {
	declared := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		declared[e.ID] = struct{}{}
	}
	return declared
}
