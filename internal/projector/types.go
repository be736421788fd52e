// Package projector implements the Read-Model Projector (§4.4): a pure,
// deterministic replay of the Event Log into per-shipment read models plus
// derived indexes. It performs no I/O and no business logic beyond what
// the event stream itself encodes — everything here is rebuildable from
// scratch at any time.
package projector

import (
	"time"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// ShipmentRow is the derived, per-shipment read model (§3 "Shipment (read
// model, derived)").
type ShipmentRow struct {
	ShipmentID string
	CurrentState lifecycle.State
	CreatedAt    time.Time
	LastUpdated  time.Time
	EventCount   int

	Source                   string
	Destination              string
	SourceState              string
	DestinationState         string
	SourceGeoConfidence      float64
	DestinationGeoConfidence float64
	Corridor                 string

	History        []eventlog.Event
	CurrentPayload map[string]any
}

// RegionFields returns the fields of an accessguard.Shipment. Kept here
// (rather than importing accessguard) so the projector has no dependency
// on the access guard — callers adapt at the call site.
func (s ShipmentRow) RegionFields() (sourceState, destinationState, corridor string) {
	return s.SourceState, s.DestinationState, s.Corridor
}
