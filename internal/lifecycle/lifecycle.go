// Package lifecycle is the single source of truth for shipment lifecycle
// transitions and the role-authority table that gates them. Both tables are
// pure and declarative — no I/O, no mutable state — so they can be shared
// by the Event Emitter, the Event Log's integrity checks, and tests without
// any risk of drift between callers.
package lifecycle

import "fmt"

// State is a closed enum of shipment lifecycle states, persisted as a
// stable string token.
type State string

const (
	None                 State = "NONE"
	Created              State = "CREATED"
	ManagerOnHold        State = "MANAGER_ON_HOLD"
	HoldForReview        State = "HOLD_FOR_REVIEW"
	ManagerApproved      State = "MANAGER_APPROVED"
	SupervisorApproved   State = "SUPERVISOR_APPROVED"
	InTransit            State = "IN_TRANSIT"
	ReceiverAcknowledged State = "RECEIVER_ACKNOWLEDGED"
	WarehouseIntake      State = "WAREHOUSE_INTAKE"
	OutForDelivery       State = "OUT_FOR_DELIVERY"
	DeliveryFailed       State = "DELIVERY_FAILED"
	Delivered            State = "DELIVERED"
	OverrideApplied      State = "OVERRIDE_APPLIED"
	Cancelled            State = "CANCELLED"
	LifecycleClosed      State = "LIFECYCLE_CLOSED"
)

// EventType is a closed enum of event kinds appended to the log. Most event
// types share a name with the state they transition into; the exceptions are
// SHIPMENT_CREATED, which enters CREATED, and METADATA_UPDATED, which carries
// no state change (see ValidateMetadataUpdate).
type EventType string

const (
	EventShipmentCreated        EventType = "SHIPMENT_CREATED"
	EventManagerApproved        EventType = "MANAGER_APPROVED"
	EventManagerOnHold          EventType = "MANAGER_ON_HOLD"
	EventHoldForReview          EventType = "HOLD_FOR_REVIEW"
	EventSupervisorApproved     EventType = "SUPERVISOR_APPROVED"
	EventInTransit              EventType = "IN_TRANSIT"
	EventReceiverAcknowledged   EventType = "RECEIVER_ACKNOWLEDGED"
	EventWarehouseIntake        EventType = "WAREHOUSE_INTAKE"
	EventOutForDelivery         EventType = "OUT_FOR_DELIVERY"
	EventDeliveryFailed         EventType = "DELIVERY_FAILED"
	EventDelivered              EventType = "DELIVERED"
	EventOverrideApplied        EventType = "OVERRIDE_APPLIED"
	EventCancelled              EventType = "CANCELLED"
	EventLifecycleClosed        EventType = "LIFECYCLE_CLOSED"
	EventMetadataUpdated        EventType = "METADATA_UPDATED"
)

// terminal lists states with no outbound transitions.
var terminal = map[State]bool{
	Cancelled:       true,
	LifecycleClosed: true,
}

// IsTerminal reports whether state has no allowed successor.
func IsTerminal(state State) bool { return terminal[state] }

// transitions is the single source of truth for §3's lifecycle table, with
// the OVERRIDE_APPLIED reconciliation from SPEC_FULL.md §3 folded in:
// OVERRIDE_APPLIED is reachable only from HOLD_FOR_REVIEW, and itself leads
// to MANAGER_APPROVED, HOLD_FOR_REVIEW, CANCELLED, or back to CREATED.
var transitions = map[State]map[State]bool{
	None: {
		Created: true,
	},
	Created: {
		ManagerApproved: true,
		ManagerOnHold:   true,
		HoldForReview:   true,
		Cancelled:       true,
	},
	ManagerOnHold: {
		ManagerApproved: true,
		Created:         true,
		Cancelled:       true,
	},
	HoldForReview: {
		ManagerApproved: true,
		Created:         true,
		OverrideApplied: true,
		Cancelled:       true,
	},
	ManagerApproved: {
		SupervisorApproved: true,
		HoldForReview:      true,
		Cancelled:          true,
	},
	SupervisorApproved: {
		InTransit:     true,
		HoldForReview: true,
		Cancelled:     true,
	},
	InTransit: {
		ReceiverAcknowledged: true,
		HoldForReview:        true,
		Cancelled:            true,
	},
	ReceiverAcknowledged: {
		WarehouseIntake: true,
		HoldForReview:   true,
	},
	WarehouseIntake: {
		OutForDelivery: true,
		HoldForReview:  true,
	},
	OutForDelivery: {
		DeliveryFailed: true,
		Delivered:      true,
		HoldForReview:  true,
		Cancelled:      true,
	},
	DeliveryFailed: {
		OutForDelivery: true,
		Cancelled:      true,
	},
	Delivered: {
		LifecycleClosed: true,
	},
	OverrideApplied: {
		ManagerApproved: true,
		HoldForReview:   true,
		Cancelled:       true,
		Created:         true,
	},
	Cancelled:       {},
	LifecycleClosed: {},
}

// Error is the kind returned by ValidateTransition and ValidateRoleAuthority.
// It is a plain value, not an exception — callers branch on Kind, never on
// string matching.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Kind enumerates the validation failure kinds this package can produce.
type Kind string

const (
	KindUnknownCurrentState Kind = "UnknownCurrentState"
	KindInvalidTransition   Kind = "InvalidTransition"
	KindRoleUnauthorized    Kind = "RoleUnauthorized"
)

// ValidateTransition checks whether next is a legal successor of current.
// It is a total function: every (current, next) pair returns either nil or
// a typed *Error, never a panic.
func ValidateTransition(current, next State) error {
	allowed, known := transitions[current]
	if !known {
		return &Error{Kind: KindUnknownCurrentState, Message: fmt.Sprintf("unknown current state: %s", current)}
	}
	if !allowed[next] {
		return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("invalid transition: %s -> %s", current, next)}
	}
	return nil
}

// ValidateMetadataUpdate resolves the METADATA_UPDATED open question
// (SPEC_FULL.md §3): the table above has no entry for it because it never
// changes current_state. It is allowed from any non-terminal state and
// rejected once a shipment has reached a terminal state.
func ValidateMetadataUpdate(current State) error {
	if _, known := transitions[current]; !known {
		return &Error{Kind: KindUnknownCurrentState, Message: fmt.Sprintf("unknown current state: %s", current)}
	}
	if IsTerminal(current) {
		return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("metadata update rejected: %s is terminal", current)}
	}
	return nil
}
