package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a mutation that collides with existing state,
	// e.g. creating a second active journey for one employee.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks an operation not permitted for the employee type or role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState marks an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
