package lifecycle

import "fmt"

// Role is a closed enum of actor roles, persisted as a stable string token.
type Role string

const (
	RoleSender             Role = "SENDER"
	RoleSenderManager      Role = "SENDER_MANAGER"
	RoleSenderSupervisor   Role = "SENDER_SUPERVISOR"
	RoleReceiverManager    Role = "RECEIVER_MANAGER"
	RoleWarehouseManager   Role = "WAREHOUSE_MANAGER"
	RoleViewer             Role = "VIEWER"
	RoleCOO                Role = "COO"
	RoleSystem             Role = "SYSTEM"
	RoleRegulator          Role = "REGULATOR"
)

// Scope is the geographic-access scope a role is restricted to, consumed by
// the Access Guard (internal/accessguard).
type Scope string

const (
	ScopeSourceState      Scope = "SOURCE_STATE"
	ScopeDestinationState Scope = "DESTINATION_STATE"
	ScopeCorridor         Scope = "CORRIDOR"
	ScopeGlobal           Scope = "GLOBAL"
	ScopeSnapshotOnly     Scope = "SNAPSHOT_ONLY"
)

// roleScopes is the role→scope table from §3.
var roleScopes = map[Role]Scope{
	RoleSenderManager:    ScopeSourceState,
	RoleSenderSupervisor: ScopeSourceState,
	RoleReceiverManager:  ScopeDestinationState,
	RoleWarehouseManager: ScopeDestinationState,
	RoleViewer:           ScopeCorridor,
	RoleCOO:              ScopeGlobal,
	RoleSystem:           ScopeGlobal,
	RoleRegulator:        ScopeSnapshotOnly,
}

// ScopeFor returns the geographic scope bound to role and whether role is known.
func ScopeFor(role Role) (Scope, bool) {
	scope, ok := roleScopes[role]
	return scope, ok
}

// authority maps each state an event type departs FROM to the set of roles
// permitted to emit that transition, i.e. "who may emit which transitions"
// (§3 "Role→authority table"). Keyed by (fromState, eventType).
type authorityKey struct {
	from      State
	eventType EventType
}

var roleAuthority = map[authorityKey]map[Role]bool{
	{None, EventShipmentCreated}: {RoleSender: true, RoleSystem: true},

	{Created, EventManagerApproved}: {RoleSenderManager: true},
	{Created, EventManagerOnHold}:   {RoleSenderManager: true},
	{Created, EventHoldForReview}:   {RoleSenderManager: true, RoleSenderSupervisor: true},
	{Created, EventCancelled}:       {RoleSenderManager: true, RoleSender: true},

	{ManagerOnHold, EventManagerApproved}: {RoleSenderManager: true},
	{ManagerOnHold, EventCancelled}:       {RoleSenderManager: true},

	{HoldForReview, EventManagerApproved}:   {RoleSenderManager: true, RoleSenderSupervisor: true},
	{HoldForReview, EventOverrideApplied}:   {RoleSenderSupervisor: true, RoleCOO: true},
	{HoldForReview, EventCancelled}:         {RoleSenderManager: true, RoleSenderSupervisor: true},

	{ManagerApproved, EventSupervisorApproved}: {RoleSenderSupervisor: true},
	{ManagerApproved, EventHoldForReview}:      {RoleSenderSupervisor: true},
	{ManagerApproved, EventCancelled}:          {RoleSenderSupervisor: true},

	{SupervisorApproved, EventInTransit}:     {RoleSenderSupervisor: true, RoleSystem: true},
	{SupervisorApproved, EventHoldForReview}: {RoleSenderSupervisor: true},
	{SupervisorApproved, EventCancelled}:     {RoleSenderSupervisor: true},

	{InTransit, EventReceiverAcknowledged}: {RoleReceiverManager: true},
	{InTransit, EventHoldForReview}:        {RoleSenderSupervisor: true, RoleReceiverManager: true},
	{InTransit, EventCancelled}:            {RoleSenderSupervisor: true},

	{ReceiverAcknowledged, EventWarehouseIntake}: {RoleWarehouseManager: true},
	{ReceiverAcknowledged, EventHoldForReview}:   {RoleReceiverManager: true},

	{WarehouseIntake, EventOutForDelivery}: {RoleWarehouseManager: true},
	{WarehouseIntake, EventHoldForReview}:  {RoleWarehouseManager: true},

	{OutForDelivery, EventDeliveryFailed}: {RoleWarehouseManager: true},
	{OutForDelivery, EventDelivered}:      {RoleWarehouseManager: true, RoleReceiverManager: true},
	{OutForDelivery, EventHoldForReview}:  {RoleWarehouseManager: true},
	{OutForDelivery, EventCancelled}:      {RoleWarehouseManager: true},

	{DeliveryFailed, EventOutForDelivery}: {RoleWarehouseManager: true},
	{DeliveryFailed, EventCancelled}:      {RoleWarehouseManager: true},

	{Delivered, EventLifecycleClosed}: {RoleSystem: true, RoleCOO: true},

	{OverrideApplied, EventManagerApproved}: {RoleSenderSupervisor: true, RoleCOO: true},
	{OverrideApplied, EventHoldForReview}:   {RoleSenderSupervisor: true, RoleCOO: true},
	{OverrideApplied, EventCancelled}:       {RoleSenderSupervisor: true, RoleCOO: true},
}

// ValidateRoleAuthority checks whether role may emit eventType while the
// shipment sits in currentState. SYSTEM passes for any (state, event type)
// pair that has an authority rule; every other role, COO included, must be
// listed in that rule. A pair with no rule is rejected as InvalidTransition
// for every role.
func ValidateRoleAuthority(role Role, current State, eventType EventType) error {
	if eventType == EventMetadataUpdated {
		// METADATA_UPDATED carries no lifecycle effect; any authenticated
		// non-regulator actor may emit it (enforced by the transport layer).
		return nil
	}

	allowed, known := roleAuthority[authorityKey{current, eventType}]
	if !known {
		return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("no authority rule for %s -> %s", current, eventType)}
	}
	if allowed[role] || role == RoleSystem {
		return nil
	}
	return &Error{Kind: KindRoleUnauthorized, Message: fmt.Sprintf("role %s is not authorized to emit %s from %s", role, eventType, current)}
}
