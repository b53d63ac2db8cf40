package sim

import "errors"

var (
	// ErrInvalidDuration is returned when a job or service duration is below one step.
	ErrInvalidDuration = errors.New("duration must be at least 1 step")

	// ErrUnimplemented is returned when a service behavior lacks a required operation.
	ErrUnimplemented = errors.New("unimplemented service operation")

	// ErrInvalidCapacity is returned for a negative provider capacity.
	ErrInvalidCapacity = errors.New("capacity must be non-negative")

	// ErrUnknownService is returned when a lookup names a service the provider does not own.
	ErrUnknownService = errors.New("unknown service")

	// ErrDuplicateService is returned when two services of one provider share a name.
	ErrDuplicateService = errors.New("duplicate service name")

	// ErrInvariant is returned by CheckInvariants when provider bookkeeping is inconsistent.
	ErrInvariant = errors.New("provider invariant violated")
)
