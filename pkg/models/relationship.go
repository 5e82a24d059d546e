package models

// RelationshipType is the semantic kind of a declared edge between two
// entities.
type RelationshipType string

// Relationship type constants, grouped by semantic family.
const (
	// Temporal
	RelationshipOccurredTogether RelationshipType = "occurred_together"
	RelationshipPrecededBy       RelationshipType = "preceded_by"

	// Transactional
	RelationshipTransactedWith RelationshipType = "transacted_with"
	RelationshipFundedBy       RelationshipType = "funded_by"
	RelationshipPaidTo         RelationshipType = "paid_to"
	RelationshipRefundedTo     RelationshipType = "refunded_to"

	// Identity sharing
	RelationshipSameDevice       RelationshipType = "same_device"
	RelationshipSameIP           RelationshipType = "same_ip"
	RelationshipSameEmail        RelationshipType = "same_email"
	RelationshipSamePhone        RelationshipType = "same_phone"
	RelationshipSameAddress      RelationshipType = "same_address"
	RelationshipSharedCredential RelationshipType = "shared_credential"

	// Business
	RelationshipOwns           RelationshipType = "owns"
	RelationshipEmploys        RelationshipType = "employs"
	RelationshipAffiliatedWith RelationshipType = "affiliated_with"

	// Behavioral
	RelationshipReferredBy     RelationshipType = "referred_by"
	RelationshipLinkedAccount  RelationshipType = "linked_account"
	RelationshipColocated      RelationshipType = "colocated"
	RelationshipSimilarPattern RelationshipType = "similar_pattern"
)

var validRelationshipTypes = map[RelationshipType]struct{}{
	RelationshipOccurredTogether: {}, RelationshipPrecededBy: {},
	RelationshipTransactedWith: {}, RelationshipFundedBy: {},
	RelationshipPaidTo: {}, RelationshipRefundedTo: {},
	RelationshipSameDevice: {}, RelationshipSameIP: {},
	RelationshipSameEmail: {}, RelationshipSamePhone: {},
	RelationshipSameAddress: {}, RelationshipSharedCredential: {},
	RelationshipOwns: {}, RelationshipEmploys: {}, RelationshipAffiliatedWith: {},
	RelationshipReferredBy: {}, RelationshipLinkedAccount: {},
	RelationshipColocated: {}, RelationshipSimilarPattern: {},
}

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	_, ok := validRelationshipTypes[t]
	return ok
}

// EntityRelationship is a typed edge between two declared entities. The
// relationship set is a general graph: cycles are allowed, self-loops are not.
type EntityRelationship struct {
	SourceID      string           `json:"source_id" validate:"required"`
	TargetID      string           `json:"target_id" validate:"required"`
	Type          RelationshipType `json:"relationship_type" validate:"required"`
	Strength      float64          `json:"strength" validate:"gte=0,lte=1"`
	Confidence    float64          `json:"confidence" validate:"gte=0,lte=1"`
	Bidirectional bool             `json:"bidirectional"`
	Evidence      []string         `json:"evidence,omitempty"`
}

// Key returns a stable identifier for the edge, used to key cross-entity
// multipliers in the final assessment.
func (r EntityRelationship) Key() string {
	return r.SourceID + "--" + string(r.Type) + "-->" + r.TargetID
}
