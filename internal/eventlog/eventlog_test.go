package eventlog

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func TestAppendDuplicateCreationRejected(t *testing.T) {
	l := newTestLog(t)

	_, err := l.Append(Candidate{
		ShipmentID: "SHP-0000000001",
		EventType:  lifecycle.EventShipmentCreated,
		NewState:   lifecycle.Created,
		ActorRole:  lifecycle.RoleSender,
	})
	if err != nil {
		t.Fatalf("first creation should succeed: %v", err)
	}

	before, _ := l.ReadAll()

	_, err = l.Append(Candidate{
		ShipmentID: "SHP-0000000001",
		EventType:  lifecycle.EventShipmentCreated,
		NewState:   lifecycle.Created,
		ActorRole:  lifecycle.RoleSender,
	})
	if !errors.Is(err, ErrDuplicateCreation) {
		t.Fatalf("expected ErrDuplicateCreation, got %v", err)
	}

	after, _ := l.ReadAll()
	if len(after) != len(before) {
		t.Fatalf("log size should not grow on rejected append: before=%d after=%d", len(before), len(after))
	}
}

func TestAppendInvalidTransitionRejected(t *testing.T) {
	l := newTestLog(t)

	_, err := l.Append(Candidate{
		ShipmentID:    "SHP-0000000002",
		EventType:     lifecycle.EventShipmentCreated,
		PreviousState: lifecycle.None,
		NewState:      lifecycle.Created,
		ActorRole:     lifecycle.RoleSender,
	})
	if err != nil {
		t.Fatalf("creation should succeed: %v", err)
	}

	_, err = l.Append(Candidate{
		ShipmentID:    "SHP-0000000002",
		EventType:     lifecycle.EventOutForDelivery,
		PreviousState: lifecycle.Created,
		NewState:      lifecycle.OutForDelivery,
		ActorRole:     lifecycle.RoleWarehouseManager,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSequenceIsGapless(t *testing.T) {
	l := newTestLog(t)
	id := "SHP-0000000003"

	_, err := l.Append(Candidate{
		ShipmentID: id, EventType: lifecycle.EventShipmentCreated,
		PreviousState: lifecycle.None, NewState: lifecycle.Created, ActorRole: lifecycle.RoleSender,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.Append(Candidate{
		ShipmentID: id, EventType: lifecycle.EventManagerApproved,
		PreviousState: lifecycle.Created, NewState: lifecycle.ManagerApproved, ActorRole: lifecycle.RoleSenderManager,
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := l.ReadByShipment(id)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range events {
		if e.Sequence != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, e.Sequence)
		}
	}

	report, err := l.VerifyIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid {
		t.Fatalf("expected valid integrity report, got errors: %v", report.Errors)
	}
}

func TestNextShipmentIDIsSequentialAndPadded(t *testing.T) {
	l := newTestLog(t)
	first, err := l.NextShipmentID()
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.NextShipmentID()
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("expected distinct ids")
	}
	if len(first) != len("SHP-0000000001") {
		t.Fatalf("expected zero-padded 10-digit id, got %q", first)
	}
}
