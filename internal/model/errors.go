package model

import (
	"errors"
	"fmt"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyIdentifier    = "E201" // entity or referenced identifier is empty
	ErrAttributeLength    = "E202" // normals/uvs length neither 0 nor len(positions)
	ErrNoSubMesh          = "E203" // mesh has no sub-mesh
	ErrTriangleCount      = "E204" // sub-mesh index count not a multiple of 3
	ErrIndexOutOfRange    = "E205" // triangle index outside the position list
	ErrNonFinite          = "E206" // NaN or Inf component
	ErrCycle              = "E207" // object would contain itself
	ErrDuplicate          = "E208" // repeated child or material reference
	ErrNilChild           = "E209" // nil child object
	ErrEmptyMetadataKey   = "E210" // metadata key is empty
	ErrUnknownKind        = "E211" // record kind not recognised
	ErrIdentifierMismatch = "E212" // record id differs from payload id
)

// ValidationError reports malformed entity data. It is raised when an
// entity is constructed or sent and never reaches the network layer.
type ValidationError struct {
	Code    string     `json:"code"`
	Kind    Kind       `json:"kind"`
	Entity  Identifier `json:"entity,omitempty"`
	Field   string     `json:"field"`
	Message string     `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("[%s] %s %q: %s: %s", e.Code, e.Kind, e.Entity, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Kind, e.Field, e.Message)
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationCode returns the code of a wrapped *ValidationError, or "".
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

func invalid(code string, kind Kind, id Identifier, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Kind:    kind,
		Entity:  id,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
