// Package accessguard implements Geo-RBAC (§4.5): a pure function from
// (role, shipment, allowed regions) to an allow/deny decision plus a
// structured denial reason. It performs no I/O and mutates nothing —
// callers (internal/api, internal/regulator) are responsible for recording
// denials to the Audit Snapshot Store (internal/audit).
package accessguard

import "github.com/nlogistics/control-tower/internal/lifecycle"

// DenialReason is a closed enum of reason codes. The payload attached to a
// denial is always just this code plus the shipment id — never shipment
// content (§3 "Audit denial").
type DenialReason string

const (
	ReasonNone                   DenialReason = ""
	ReasonRoleUnknown            DenialReason = "ROLE_UNKNOWN"
	ReasonRegionListEmpty        DenialReason = "REGION_LIST_EMPTY"
	ReasonMissingGeoData         DenialReason = "MISSING_GEO_DATA"
	ReasonGeoScopeMismatch       DenialReason = "GEO_SCOPE_MISMATCH"
	ReasonScopeUnknown           DenialReason = "SCOPE_UNKNOWN"
)

// Shipment is the minimal read-model projection the guard needs. It is
// intentionally narrower than projector.ShipmentRow so this package has no
// dependency on the projector.
type Shipment struct {
	SourceState      string
	DestinationState string
	Corridor         string
}

// Check returns whether role may access shipment given allowedRegions, and
// a denial reason when it does not. It is deterministic: identical inputs
// always produce the identical decision (§8 testable property).
func Check(role lifecycle.Role, shipment Shipment, allowedRegions []string) (bool, DenialReason) {
	if role == lifecycle.RoleSystem || role == lifecycle.RoleCOO {
		return true, ReasonNone
	}
	if role == lifecycle.RoleViewer {
		return true, ReasonNone
	}

	scope, known := lifecycle.ScopeFor(role)
	if !known {
		return false, ReasonRoleUnknown
	}

	if scope == lifecycle.ScopeGlobal {
		return true, ReasonNone
	}

	if len(allowedRegions) == 0 {
		return false, ReasonRegionListEmpty
	}

	switch scope {
	case lifecycle.ScopeSourceState:
		return checkRegion(shipment.SourceState, allowedRegions)
	case lifecycle.ScopeDestinationState:
		return checkRegion(shipment.DestinationState, allowedRegions)
	case lifecycle.ScopeCorridor:
		return checkRegion(shipment.Corridor, allowedRegions)
	default:
		return false, ReasonScopeUnknown
	}
}

func checkRegion(value string, allowed []string) (bool, DenialReason) {
	if value == "" {
		return false, ReasonMissingGeoData
	}
	for _, region := range allowed {
		if region == value {
			return true, ReasonNone
		}
	}
	return false, ReasonGeoScopeMismatch
}
