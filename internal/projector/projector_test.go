package projector

import (
	"testing"
	"time"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

func TestBuildStateSetsCorridorOnlyFromCreation(t *testing.T) {
	now := time.Now().UTC()
	events := []eventlog.Event{
		{
			ShipmentID: "SHP-0000000001", Sequence: 1, Timestamp: now,
			EventType: lifecycle.EventShipmentCreated, NewState: lifecycle.Created,
			Metadata: map[string]any{
				"source": "Mumbai", "destination": "Delhi",
				"source_state": "Maharashtra", "destination_state": "Delhi",
				"source_geo_confidence": 0.95, "destination_geo_confidence": 0.95,
			},
		},
		{
			ShipmentID: "SHP-0000000001", Sequence: 2, Timestamp: now.Add(time.Hour),
			EventType: lifecycle.EventManagerApproved, PreviousState: lifecycle.Created, NewState: lifecycle.ManagerApproved,
		},
	}

	rows := BuildState(events)
	row := rows["SHP-0000000001"]
	if row == nil {
		t.Fatal("expected row to exist")
	}
	if row.Corridor != "Maharashtra -> Delhi" {
		t.Fatalf("expected corridor set, got %q", row.Corridor)
	}
	if row.CurrentState != lifecycle.ManagerApproved {
		t.Fatalf("expected current_state == last_event.new_state, got %s", row.CurrentState)
	}
	if row.EventCount != len(row.History) {
		t.Fatalf("history length must equal event_count: %d != %d", len(row.History), row.EventCount)
	}
}

func TestMetadataUpdatedDoesNotChangeLifecycle(t *testing.T) {
	now := time.Now().UTC()
	events := []eventlog.Event{
		{ShipmentID: "SHP-0000000002", Sequence: 1, Timestamp: now, EventType: lifecycle.EventShipmentCreated, NewState: lifecycle.Created},
		{ShipmentID: "SHP-0000000002", Sequence: 2, Timestamp: now.Add(time.Minute), EventType: lifecycle.EventMetadataUpdated,
			PreviousState: lifecycle.Created, Metadata: map[string]any{"destination": "Pune"}},
	}

	rows := BuildState(events)
	row := rows["SHP-0000000002"]
	if row.CurrentState != lifecycle.Created {
		t.Fatalf("METADATA_UPDATED must not change current_state, got %s", row.CurrentState)
	}
	if row.Destination != "Pune" {
		t.Fatalf("expected destination updated, got %q", row.Destination)
	}
}

func TestBuildIndexesGroupsByCorridor(t *testing.T) {
	rows := map[string]*ShipmentRow{
		"SHP-1": {ShipmentID: "SHP-1", Corridor: "Gujarat -> Maharashtra"},
		"SHP-2": {ShipmentID: "SHP-2", Corridor: "Gujarat -> Maharashtra"},
	}
	idx := BuildIndexes(rows)
	if len(idx.ByCorridor["Gujarat -> Maharashtra"]) != 2 {
		t.Fatalf("expected 2 shipments in corridor index, got %d", len(idx.ByCorridor["Gujarat -> Maharashtra"]))
	}
}
