package confrec

import "errors"

// Sentinel errors returned (possibly wrapped) by the package. Use errors.Is
// to classify a failure.
var (
	// ErrNotAConfig is returned when a value that is not a pointer to a
	// Base-embedding struct is handed to an operation expecting a record.
	ErrNotAConfig = errors.New("not a config record")

	// ErrMissingValue is returned when a mandatory field is read before a
	// value has been assigned to it.
	ErrMissingValue = errors.New("mandatory field is unset")

	// ErrUnserializableValue is returned when a field value cannot be
	// represented in the JSON-compatible value tree.
	ErrUnserializableValue = errors.New("value is not serializable")

	// ErrTypeMismatch is returned when a tree or flag value cannot be
	// coerced to the declared field type.
	ErrTypeMismatch = errors.New("value type does not match field type")

	// ErrCannotInstantiate is returned when a tree update targets a nested
	// record slot that currently holds nil.
	ErrCannotInstantiate = errors.New("cannot update nested config through nil")

	// ErrMissingField is returned by CheckArgument when a restricted field
	// is absent from the value tree.
	ErrMissingField = errors.New("required field is missing")

	// ErrConstraintViolation is returned when a field value fails a
	// declared constraint.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrFlagDecode is returned when a raw-JSON flag value is malformed.
	ErrFlagDecode = errors.New("malformed flag value")

	// ErrCyclicSchema is returned when a record type nests itself without
	// an intervening collection boundary.
	ErrCyclicSchema = errors.New("cyclic config schema")

	// ErrUnknownField is returned by mapping-style access for names that
	// are neither declared fields nor merged extras.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownPath is returned when a dotted/indexed path does not lead
	// to a leaf field of the record.
	ErrUnknownPath = errors.New("unknown path")

	// ErrSerialization wraps file read/write and text codec failures.
	ErrSerialization = errors.New("serialization failed")
)
