package fact

import (
	"errors"
	"fmt"
	"time"
)

// Dimension selects which time axis a query runs against.
type Dimension string

const (
	// DimensionTransaction orders facts by when they were durably recorded.
	DimensionTransaction Dimension = "transaction"

	// DimensionValid orders facts by when they are asserted to have been
	// true in the modeled world.
	DimensionValid Dimension = "valid"
)

// ParseDimension validates a dimension string.
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimensionTransaction:
		return DimensionTransaction, nil
	case DimensionValid:
		return DimensionValid, nil
	default:
		return "", NewValidationError("dimension", fmt.Sprintf("unknown dimension %q: must be %q or %q", s, DimensionTransaction, DimensionValid))
	}
}

// BitemporalFact is one immutable entry in the ledger. Once appended a fact
// is never mutated or deleted; corrections are new facts.
//
// Seq is a total order consistent with append order. TransactionTime is
// non-decreasing with Seq for facts from the same writer, but may be out of
// order with ValidTime - that is precisely what makes a fact retroactive.
type BitemporalFact struct {
	// ID is an opaque ledger-assigned identifier.
	ID string

	// EntityID identifies the entity the fact is about. Opaque string;
	// no coupling to registry internals.
	EntityID string

	// FieldName identifies the field the fact asserts a value for.
	FieldName string

	// OldValue is the previously believed value, if the writer knew it.
	// nil means the writer asserted no prior value.
	OldValue Value

	// NewValue is the asserted value. Never nil on a stored fact
	// (an explicit Null value is legal, a missing value is not).
	NewValue Value

	// TransactionTime is when the fact was durably recorded.
	TransactionTime time.Time

	// ValidTime is when the fact is asserted to have become true.
	ValidTime time.Time

	// Seq is the globally unique, strictly increasing sequence number.
	Seq int64

	// ActorID identifies who recorded the fact.
	ActorID string

	// Reason optionally explains why the fact was recorded.
	Reason string

	// EventType labels the kind of change (e.g. "correction", "observed").
	EventType string
}

// TimeOn returns the fact's coordinate on the given dimension.
func (f *BitemporalFact) TimeOn(dim Dimension) time.Time {
	if dim == DimensionValid {
		return f.ValidTime
	}
	return f.TransactionTime
}

// IsRetroactive reports whether the fact was recorded after its claimed
// effective time.
func IsRetroactive(f *BitemporalFact) bool {
	return f.TransactionTime.After(f.ValidTime)
}

// TimeLag returns how far behind its effective time the fact was recorded.
// Zero for non-retroactive facts.
func TimeLag(f *BitemporalFact) time.Duration {
	if !IsRetroactive(f) {
		return 0
	}
	return f.TransactionTime.Sub(f.ValidTime)
}

// Draft is the caller-supplied portion of a fact. The store fills in ID,
// Seq, and (when zero) TransactionTime at append.
type Draft struct {
	EntityID        string
	FieldName       string
	OldValue        Value
	NewValue        Value
	TransactionTime time.Time // zero means "now"
	ValidTime       time.Time
	ActorID         string
	Reason          string
	EventType       string
}

// Validate checks the draft for required fields. Ordering relative to other
// facts is never checked here: out-of-order valid time is legal and expected.
func (d Draft) Validate() error {
	if d.EntityID == "" {
		return NewValidationError("entity_id", "entity_id is required")
	}
	if d.FieldName == "" {
		return NewValidationError("field_name", "field_name is required")
	}
	if d.NewValue == nil {
		return NewValidationError("new_value", "new_value is required (use an explicit null value to assert absence)")
	}
	if d.ValidTime.IsZero() {
		return NewValidationError("valid_time", "valid_time is required")
	}
	return nil
}

// ValidationError reports a malformed draft or query with a field-level
// message. Raised before any fetch or write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation returns true if the error is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
