package regulator

import (
	"context"
	"errors"
	"testing"

	"github.com/nlogistics/control-tower/internal/accessguard"
	"github.com/nlogistics/control-tower/internal/audit"
)

func TestGuardAssertOperationRejectsForbiddenRegardlessOfAllowList(t *testing.T) {
	g := New([]string{"shipment_index"})
	for _, op := range []Operation{OpInvokeEventEmitter, OpReadLiveReadModel, OpInvokeAnalyticsLive} {
		if err := g.AssertOperation(op); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for %s, got %v", op, err)
		}
	}
}

func TestGuardAssertOperationAllowsListedOperations(t *testing.T) {
	g := New(nil)
	for _, op := range []Operation{OpReadSnapshot, OpExportCompliance, OpViewDenialSummary, OpViewDenialCounts} {
		if err := g.AssertOperation(op); err != nil {
			t.Fatalf("expected %s to be permitted, got %v", op, err)
		}
	}
}

func TestGuardAssertSnapshotAccessDeniesUnlistedSnapshot(t *testing.T) {
	g := New([]string{"shipment_index"})
	if err := g.AssertSnapshotAccess("corridor_health"); !errors.Is(err, ErrSnapshotNotAllowed) {
		t.Fatalf("expected ErrSnapshotNotAllowed, got %v", err)
	}
	if err := g.AssertSnapshotAccess("shipment_index"); err != nil {
		t.Fatalf("expected shipment_index to be allowed, got %v", err)
	}
}

func TestGuardEmptyAllowListDeniesEverything(t *testing.T) {
	g := New(nil)
	if err := g.AssertSnapshotAccess("shipment_index"); err == nil {
		t.Fatal("expected an empty allow-list to deny every snapshot")
	}
}

type stubAuditStore struct {
	byRole        []audit.Denial
	total         int64
	countByReason map[accessguard.DenialReason]int64
}

func (s *stubAuditStore) Record(ctx context.Context, role, shipmentID string, reason accessguard.DenialReason) error {
	return nil
}

func (s *stubAuditStore) ByRole(ctx context.Context, role string, opts audit.ListOptions) ([]audit.Denial, int64, error) {
	return s.byRole, s.total, nil
}

func (s *stubAuditStore) ByShipment(ctx context.Context, shipmentID string, opts audit.ListOptions) ([]audit.Denial, int64, error) {
	return nil, 0, nil
}

func (s *stubAuditStore) CountByReason(ctx context.Context) (map[accessguard.DenialReason]int64, error) {
	return s.countByReason, nil
}

func TestViewsDenialSummaryForRoleTabulatesReasons(t *testing.T) {
	store := &stubAuditStore{
		byRole: []audit.Denial{
			{ReasonCode: "GEO_SCOPE_MISMATCH"},
			{ReasonCode: "GEO_SCOPE_MISMATCH"},
			{ReasonCode: "MISSING_GEO_DATA"},
		},
		total: 3,
	}
	views := NewViews(New(nil), nil, nil, store)

	summary, err := views.DenialSummaryForRole(context.Background(), "SENDER_MANAGER")
	if err != nil {
		t.Fatalf("DenialSummaryForRole: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("expected total 3, got %d", summary.Total)
	}
	if summary.Reasons[accessguard.DenialReason("GEO_SCOPE_MISMATCH")] != 2 {
		t.Fatalf("unexpected reasons breakdown: %+v", summary.Reasons)
	}
}

func TestViewsDenialCountsDelegatesToStore(t *testing.T) {
	store := &stubAuditStore{countByReason: map[accessguard.DenialReason]int64{"ROLE_UNAUTHORIZED_FOR_TRANSITION": 5}}
	views := NewViews(New(nil), nil, nil, store)

	counts, err := views.DenialCounts(context.Background())
	if err != nil {
		t.Fatalf("DenialCounts: %v", err)
	}
	if counts["ROLE_UNAUTHORIZED_FOR_TRANSITION"] != 5 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestViewsReadSnapshotRejectsUnlistedSnapshot(t *testing.T) {
	views := NewViews(New([]string{"shipment_index"}), nil, nil, &stubAuditStore{})
	if _, err := views.ReadSnapshot("corridor_health"); !errors.Is(err, ErrSnapshotNotAllowed) {
		t.Fatalf("expected ErrSnapshotNotAllowed, got %v", err)
	}
}
