package accessguard

import (
	"testing"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

func TestCheckSenderManagerGeoScope(t *testing.T) {
	shipment := Shipment{SourceState: "Gujarat"}

	allowed, reason := Check(lifecycle.RoleSenderManager, shipment, []string{"Maharashtra"})
	if allowed || reason != ReasonGeoScopeMismatch {
		t.Fatalf("expected GEO_SCOPE_MISMATCH, got allowed=%v reason=%s", allowed, reason)
	}

	allowed, reason = Check(lifecycle.RoleSenderManager, shipment, []string{"Gujarat"})
	if !allowed || reason != ReasonNone {
		t.Fatalf("expected allow, got allowed=%v reason=%s", allowed, reason)
	}
}

func TestCheckGlobalRolesAlwaysAllowed(t *testing.T) {
	for _, role := range []lifecycle.Role{lifecycle.RoleSystem, lifecycle.RoleCOO, lifecycle.RoleViewer} {
		allowed, reason := Check(role, Shipment{}, nil)
		if !allowed || reason != ReasonNone {
			t.Fatalf("role %s expected allow, got allowed=%v reason=%s", role, allowed, reason)
		}
	}
}

func TestCheckEmptyRegionList(t *testing.T) {
	allowed, reason := Check(lifecycle.RoleReceiverManager, Shipment{DestinationState: "Kerala"}, nil)
	if allowed || reason != ReasonRegionListEmpty {
		t.Fatalf("expected REGION_LIST_EMPTY, got allowed=%v reason=%s", allowed, reason)
	}
}

func TestCheckMissingGeoData(t *testing.T) {
	allowed, reason := Check(lifecycle.RoleSenderManager, Shipment{}, []string{"Gujarat"})
	if allowed || reason != ReasonMissingGeoData {
		t.Fatalf("expected MISSING_GEO_DATA, got allowed=%v reason=%s", allowed, reason)
	}
}

func TestCheckUnknownRole(t *testing.T) {
	allowed, reason := Check(lifecycle.Role("BOGUS"), Shipment{}, []string{"Gujarat"})
	if allowed || reason != ReasonRoleUnknown {
		t.Fatalf("expected ROLE_UNKNOWN, got allowed=%v reason=%s", allowed, reason)
	}
}
