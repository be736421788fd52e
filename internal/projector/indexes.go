package projector

import "github.com/nlogistics/control-tower/internal/lifecycle"

// Indexes are the derived lookups named in §4.4: by_state,
// by_source_state, by_corridor, by_destination_state.
type Indexes struct {
	ByState            map[lifecycle.State][]*ShipmentRow
	BySourceState      map[string][]*ShipmentRow
	ByCorridor         map[string][]*ShipmentRow
	ByDestinationState map[string][]*ShipmentRow
}

// BuildIndexes derives the standard read-model indexes from a state map
// produced by BuildState. Like BuildState, this is pure and deterministic.
func BuildIndexes(rows map[string]*ShipmentRow) Indexes {
	idx := Indexes{
		ByState:            make(map[lifecycle.State][]*ShipmentRow),
		BySourceState:      make(map[string][]*ShipmentRow),
		ByCorridor:         make(map[string][]*ShipmentRow),
		ByDestinationState: make(map[string][]*ShipmentRow),
	}

	for _, row := range rows {
		idx.ByState[row.CurrentState] = append(idx.ByState[row.CurrentState], row)
		if row.SourceState != "" {
			idx.BySourceState[row.SourceState] = append(idx.BySourceState[row.SourceState], row)
		}
		if row.DestinationState != "" {
			idx.ByDestinationState[row.DestinationState] = append(idx.ByDestinationState[row.DestinationState], row)
		}
		if row.Corridor != "" {
			idx.ByCorridor[row.Corridor] = append(idx.ByCorridor[row.Corridor], row)
		}
	}

	return idx
}
