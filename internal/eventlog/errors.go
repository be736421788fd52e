package eventlog

import "errors"

// Sentinel errors returned by Log.Append. Callers should use errors.Is.
var (
	// ErrDuplicateCreation is returned when a SHIPMENT_CREATED event is
	// appended for a shipment id that already has one.
	ErrDuplicateCreation = errors.New("eventlog: duplicate shipment creation")

	// ErrInvalidTransition is returned when the requested state transition
	// is not present in the lifecycle table.
	ErrInvalidTransition = errors.New("eventlog: invalid lifecycle transition")

	// ErrUnknownCurrentState is returned when current_state is not a
	// recognized lifecycle state.
	ErrUnknownCurrentState = errors.New("eventlog: unknown current state")

	// ErrRoleUnauthorized is returned when actor_role may not emit the
	// requested transition.
	ErrRoleUnauthorized = errors.New("eventlog: role unauthorized for transition")

	// ErrFirstEventNotCreated is returned when the first event appended for
	// a shipment id is not SHIPMENT_CREATED.
	ErrFirstEventNotCreated = errors.New("eventlog: first event for a shipment must be SHIPMENT_CREATED")

	// ErrStorage is fatal: the appender must retry or shut down rather than
	// let the log fall out of sync with its durable backing file.
	ErrStorage = errors.New("eventlog: storage error")
)
