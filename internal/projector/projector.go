package projector

import (
	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// BuildState replays events into a map of shipment_id → ShipmentRow in a
// single deterministic pass (§4.4). Same events in, same read models out —
// callers may cache the result keyed by the event log's version counter
// and rebuild only when it advances.
func BuildState(events []eventlog.Event) map[string]*ShipmentRow {
	rows := make(map[string]*ShipmentRow)

	for _, e := range events {
		row, ok := rows[e.ShipmentID]
		if !ok {
			row = &ShipmentRow{
				ShipmentID:     e.ShipmentID,
				CreatedAt:      e.Timestamp,
				CurrentPayload: make(map[string]any),
			}
			rows[e.ShipmentID] = row
		}

		row.LastUpdated = e.Timestamp
		row.EventCount++
		row.History = append(row.History, e)

		for k, v := range e.Metadata {
			row.CurrentPayload[k] = v
		}

		switch e.EventType {
		case lifecycle.EventShipmentCreated:
			applyGeo(row, e)
			row.CurrentState = e.NewState
		case lifecycle.EventMetadataUpdated:
			applyMetadataUpdate(row, e)
			// no lifecycle effect — current_state is untouched
		default:
			row.CurrentState = e.NewState
		}
	}

	return rows
}

// applyGeo sets the geo projection and corridor exclusively from
// SHIPMENT_CREATED metadata (§4.4) — it is never revisited afterward, so
// corridor is immutable once set (§3 invariant).
func applyGeo(row *ShipmentRow, e eventlog.Event) {
	row.Source, _ = e.Metadata["source"].(string)
	row.Destination, _ = e.Metadata["destination"].(string)
	row.SourceState, _ = e.Metadata["source_state"].(string)
	row.DestinationState, _ = e.Metadata["destination_state"].(string)
	row.SourceGeoConfidence = floatOf(e.Metadata["source_geo_confidence"])
	row.DestinationGeoConfidence = floatOf(e.Metadata["destination_geo_confidence"])

	if row.SourceState != "" && row.DestinationState != "" {
		row.Corridor = row.SourceState + " -> " + row.DestinationState
	}
}

// applyMetadataUpdate lets METADATA_UPDATED events adjust the raw
// source/destination strings without touching lifecycle state or the
// corridor (§4.4).
func applyMetadataUpdate(row *ShipmentRow, e eventlog.Event) {
	if v, ok := e.Metadata["source"].(string); ok {
		row.Source = v
	}
	if v, ok := e.Metadata["destination"].(string); ok {
		row.Destination = v
	}
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
