// Package eventlog is the single source of truth for the system: an
// append-only, sequenced, validated log of shipment events. It is the only
// component allowed to persist events, and the Event Emitter
// (internal/emitter) is the only caller allowed to append to it.
//
// Storage is a JSONL file (one event per line), matching the teacher's
// repository-over-a-durable-store shape but without a relational database:
// the log is the durability boundary, not a table, because every other
// read model is rebuilt from it by replay (internal/projector).
package eventlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// Event is an immutable record of a state-changing fact. Once appended it
// is never modified or removed.
type Event struct {
	EventID        uuid.UUID              `json:"event_id"`
	Sequence       int                    `json:"sequence"`
	Timestamp      time.Time              `json:"timestamp"`
	ShipmentID     string                 `json:"shipment_id"`
	EventType      lifecycle.EventType    `json:"event_type"`
	PreviousState  lifecycle.State        `json:"previous_state"`
	NewState       lifecycle.State        `json:"new_state"`
	ActorRole      lifecycle.Role         `json:"actor_role"`
	Metadata       map[string]any         `json:"metadata"`
}

// Candidate is the caller-supplied shape of an event before the log assigns
// its sequence, id, and timestamp.
type Candidate struct {
	ShipmentID    string
	EventType     lifecycle.EventType
	PreviousState lifecycle.State
	NewState      lifecycle.State
	ActorRole     lifecycle.Role
	Metadata      map[string]any
}
