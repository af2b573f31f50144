package errors

import (
	"errors"
	"fmt"
)

// Run coordination errors.
var (
	ErrRunInProgress = errors.New(`rebuild: another rebuild run holds the lock`)
	ErrLockNotHeld   = errors.New(`rebuild: lock is not held by this owner`)
	ErrNilRegistry   = errors.New(`rebuild: registry cannot be "nil"`)
	ErrNoIndices     = errors.New(`rebuild: registry resolved to an empty index set`)
)

// EnvVarNotSetError is an error which is returned when a required env var is not set.
type EnvVarNotSetError struct {
	Var string
}

// NewEnvVarNotSetError returns an error for an envVarName whose value is not set.
func NewEnvVarNotSetError(envVarName string) *EnvVarNotSetError {
	return &EnvVarNotSetError{envVarName}
}

// Error implements the error interface.
func (e *EnvVarNotSetError) Error() string {
	return fmt.Sprintf("rebuild: %s env variable not set", e.Var)
}

// UnacknowledgedError is returned when the cluster answers an administrative
// request on an index without acknowledging it.
type UnacknowledgedError struct {
	Op     string
	Index  string
	Detail string
}

// NewUnacknowledgedError returns an error for an op on index that was not acknowledged.
// detail names what was being applied, e.g. the setting or the clone target.
func NewUnacknowledgedError(op, index, detail string) *UnacknowledgedError {
	return &UnacknowledgedError{op, index, detail}
}

// Error implements the error interface.
func (u *UnacknowledgedError) Error() string {
	return fmt.Sprintf("rebuild: %s on index %s not acknowledged (%s)", u.Op, u.Index, u.Detail)
}

// UnsupportedVersionError is returned when the cluster is too old for an operation.
type UnsupportedVersionError struct {
	Op       string
	Version  string
	Required string
}

// NewUnsupportedVersionError returns an error for an op that needs at least the required version.
func NewUnsupportedVersionError(op, version, required string) *UnsupportedVersionError {
	return &UnsupportedVersionError{op, version, required}
}

// Error implements the error interface.
func (u *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("rebuild: %s requires elasticsearch >= %s, cluster runs %s", u.Op, u.Required, u.Version)
}

// NotFoundInContextError is an error which is returned when an expected value in the context is missing.
type NotFoundInContextError struct {
	Field string
}

// NewNotFoundInContextError returns an error for the given field when it is missing from the context.
func NewNotFoundInContextError(field string) *NotFoundInContextError {
	return &NotFoundInContextError{field}
}

// Error implements the error interface.
func (n *NotFoundInContextError) Error() string {
	return fmt.Sprintf("\"%s\" not found in context", n.Field)
}

// InvalidCastError is an error which is returned when an invalid cast of a particular type is attempted.
type InvalidCastError struct {
	From string
	To   string
}

// NewInvalidCastError returns an error two types that were involved in invalid cast operation.
func NewInvalidCastError(from, to string) *InvalidCastError {
	return &InvalidCastError{from, to}
}

// Error implements the error interface.
func (i *InvalidCastError) Error() string {
	return fmt.Sprintf("cannot cast %s to %s", i.From, i.To)
}
