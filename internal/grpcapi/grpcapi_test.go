package grpcapi

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nlogistics/control-tower/internal/accessguard"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/regulator"
)

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

func newTestServer(allowedSnapshots []string, store audit.Store) *Server {
	views := regulator.NewViews(regulator.New(allowedSnapshots), nil, nil, store)
	return New(Config{}, views, zap.NewNop())
}

func TestServerReadSnapshotRejectsUnlistedSnapshot(t *testing.T) {
	srv := newTestServer([]string{"shipment_index"}, &stubAuditStore{})
	req, _ := structpb.NewStruct(map[string]any{"snapshot_name": "corridor_health"})

	_, err := srv.ReadSnapshot(context.Background(), req)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestServerReadSnapshotRequiresSnapshotName(t *testing.T) {
	srv := newTestServer([]string{"shipment_index"}, &stubAuditStore{})

	_, err := srv.ReadSnapshot(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestServerListAllowedSnapshots(t *testing.T) {
	srv := newTestServer([]string{"shipment_index", "corridor_health"}, &stubAuditStore{})

	resp, err := srv.ListAllowedSnapshots(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ListAllowedSnapshots: %v", err)
	}
	names := resp.Fields["snapshot_names"].GetListValue().GetValues()
	if len(names) != 2 {
		t.Fatalf("expected 2 allowed snapshots, got %d", len(names))
	}
}

func TestServerDenialSummaryTabulatesReasons(t *testing.T) {
	store := &stubAuditStore{
		byRole: []audit.Denial{{ReasonCode: "GEO_SCOPE_MISMATCH"}, {ReasonCode: "GEO_SCOPE_MISMATCH"}},
		total:  2,
	}
	srv := newTestServer(nil, store)
	req, _ := structpb.NewStruct(map[string]any{"role": "SENDER_MANAGER"})

	resp, err := srv.DenialSummary(context.Background(), req)
	if err != nil {
		t.Fatalf("DenialSummary: %v", err)
	}
	if resp.Fields["total"].GetNumberValue() != 2 {
		t.Fatalf("expected total 2, got %v", resp.Fields["total"])
	}
}

func TestServerDenialSummaryRequiresRole(t *testing.T) {
	srv := newTestServer(nil, &stubAuditStore{})

	_, err := srv.DenialSummary(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestServerDenialCounts(t *testing.T) {
	store := &stubAuditStore{countByReason: map[accessguard.DenialReason]int64{"MISSING_GEO_DATA": 7}}
	srv := newTestServer(nil, store)

	resp, err := srv.DenialCounts(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("DenialCounts: %v", err)
	}
	reasons := resp.Fields["by_reason"].GetStructValue().GetFields()
	if reasons["MISSING_GEO_DATA"].GetNumberValue() != 7 {
		t.Fatalf("unexpected reasons: %+v", reasons)
	}
}
