package approle

import "errors"

var (
	// ErrRoleNotFound is returned when a role is not found
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleExists is returned when creating a role whose id is taken
	ErrRoleExists = errors.New("role already exists")

	// ErrInvalidRoleID is returned when a role id does not match the slug pattern
	ErrInvalidRoleID = errors.New("invalid role ID")

	// ErrProtectedRole is returned when editing or deleting a protected role
	ErrProtectedRole = errors.New("protected role cannot be modified")

	// ErrSelfInheritance is returned when a role lists itself in inherits_from
	ErrSelfInheritance = errors.New("role cannot inherit from itself")

	// ErrInvalidResourceKind is returned when a resource kind is unknown
	ErrInvalidResourceKind = errors.New("invalid resource kind")

	// ErrPriorityOutOfRange is returned when a role priority is outside the allowed range
	ErrPriorityOutOfRange = errors.New("role priority out of range")
)
