package emitter

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/geo"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventlog.Event
	done   chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Publish(_ context.Context, event eventlog.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.done <- struct{}{}
}

func newTestEmitter(t *testing.T) (*Emitter, *recordingPublisher) {
	t.Helper()
	log, err := eventlog.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	pub := newRecordingPublisher()
	e := New(log, geo.NewStaticResolver(), zap.NewNop(), WithPublisher(pub))
	return e, pub
}

func TestEmitCreatesAndEnrichesGeo(t *testing.T) {
	e, pub := newTestEmitter(t)

	event, err := e.Emit(context.Background(), Request{
		ShipmentID:   "SHP-0000000001",
		CurrentState: lifecycle.None,
		NextState:    lifecycle.Created,
		EventType:    lifecycle.EventShipmentCreated,
		ActorRole:    lifecycle.RoleSender,
		Metadata: map[string]any{
			"source":      "Mumbai, Maharashtra",
			"destination": "Delhi",
		},
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if event.Metadata["source_state"] != "Maharashtra" {
		t.Fatalf("expected source_state enriched, got %v", event.Metadata["source_state"])
	}
	if event.Metadata["destination_state"] != "Delhi" {
		t.Fatalf("expected destination_state enriched, got %v", event.Metadata["destination_state"])
	}

	<-pub.done
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
}

func TestEmitRejectsUnauthorizedRole(t *testing.T) {
	e, _ := newTestEmitter(t)

	_, err := e.Emit(context.Background(), Request{
		ShipmentID:   "SHP-0000000002",
		CurrentState: lifecycle.Created,
		NextState:    lifecycle.ManagerApproved,
		EventType:    lifecycle.EventManagerApproved,
		ActorRole:    lifecycle.RoleViewer,
		Metadata:     map[string]any{},
	})
	if err == nil {
		t.Fatal("expected role authority error")
	}
}

func TestEmitRejectsInvalidTransition(t *testing.T) {
	e, _ := newTestEmitter(t)

	ctx := context.Background()
	_, err := e.Emit(ctx, Request{
		ShipmentID:   "SHP-0000000003",
		CurrentState: lifecycle.None,
		NextState:    lifecycle.Created,
		EventType:    lifecycle.EventShipmentCreated,
		ActorRole:    lifecycle.RoleSender,
		Metadata:     map[string]any{"source": "Pune", "destination": "Nagpur"},
	})
	if err != nil {
		t.Fatalf("emit create: %v", err)
	}

	_, err = e.Emit(ctx, Request{
		ShipmentID:   "SHP-0000000003",
		CurrentState: lifecycle.Created,
		NextState:    lifecycle.Delivered,
		EventType:    lifecycle.EventDelivered,
		ActorRole:    lifecycle.RoleWarehouseManager,
		Metadata:     map[string]any{},
	})
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
}

func TestEmitMetadataUpdateHasNoLifecycleEffect(t *testing.T) {
	e, _ := newTestEmitter(t)
	ctx := context.Background()

	_, err := e.Emit(ctx, Request{
		ShipmentID:   "SHP-0000000004",
		CurrentState: lifecycle.None,
		NextState:    lifecycle.Created,
		EventType:    lifecycle.EventShipmentCreated,
		ActorRole:    lifecycle.RoleSender,
		Metadata:     map[string]any{"source": "Chennai", "destination": "Bengaluru"},
	})
	if err != nil {
		t.Fatalf("emit create: %v", err)
	}

	event, err := e.Emit(ctx, Request{
		ShipmentID:   "SHP-0000000004",
		CurrentState: lifecycle.Created,
		EventType:    lifecycle.EventMetadataUpdated,
		ActorRole:    lifecycle.RoleSenderManager,
		Metadata:     map[string]any{"destination": "Coimbatore"},
	})
	if err != nil {
		t.Fatalf("emit metadata update: %v", err)
	}
	if event.NewState != lifecycle.None {
		t.Fatalf("expected METADATA_UPDATED to carry no new_state, got %s", event.NewState)
	}
}

func TestEmitDuplicateCreationFails(t *testing.T) {
	e, _ := newTestEmitter(t)
	ctx := context.Background()
	req := Request{
		ShipmentID:   "SHP-0000000005",
		CurrentState: lifecycle.None,
		NextState:    lifecycle.Created,
		EventType:    lifecycle.EventShipmentCreated,
		ActorRole:    lifecycle.RoleSender,
		Metadata:     map[string]any{"source": "Hyderabad", "destination": "Vijayawada"},
	}
	if _, err := e.Emit(ctx, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := e.Emit(ctx, req); err == nil {
		t.Fatal("expected duplicate creation error")
	}
}
