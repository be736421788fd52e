// Package regulator enforces the regulator/forensic access contract
// (§4.11): an explicit allow-list of read-only operations against
// snapshots, plus a fixed, non-configurable deny-list that fails closed
// on anything touching live state. The regulator surface is reachable
// only through internal/grpcapi, never through the operator-facing REST
// API.
package regulator

import (
	"errors"
	"fmt"
)

// Operation is a closed enum of actions a caller may attempt against the
// regulator surface.
type Operation string

const (
	OpReadSnapshot      Operation = "READ_SNAPSHOT"
	OpExportCompliance  Operation = "EXPORT_COMPLIANCE"
	OpViewDenialSummary Operation = "VIEW_DENIAL_SUMMARY"
	OpViewDenialCounts  Operation = "VIEW_DENIAL_COUNTS"

	// Forbidden operations. These never appear on an allow-list; Guard
	// rejects them unconditionally regardless of configuration.
	OpInvokeEventEmitter  Operation = "INVOKE_EVENT_EMITTER"
	OpReadLiveReadModel   Operation = "READ_LIVE_READ_MODEL"
	OpInvokeAnalyticsLive Operation = "INVOKE_ANALYTICS_LIVE"
)

// forbidden is the fixed deny-list from §4.11: invoking the Event
// Emitter, reading live read models, invoking analytics engines on live
// data. It is not configuration — no allow-list entry can override it.
var forbidden = map[Operation]bool{
	OpInvokeEventEmitter:  true,
	OpReadLiveReadModel:   true,
	OpInvokeAnalyticsLive: true,
}

// ErrForbidden is returned for any forbidden operation, matching the
// RegulatorForbiddenOperation error kind (§7).
var ErrForbidden = errors.New("regulator: forbidden operation")

// ErrSnapshotNotAllowed is returned when a snapshot name is not on the
// explicit allow-list.
var ErrSnapshotNotAllowed = errors.New("regulator: snapshot not on allow-list")

// Guard enforces the regulator policy: an explicit allow-list of
// snapshot names readable by the regulator, and the fixed deny-list
// above. Guard holds no reference to the event log, emitter, or
// analytics engines — it cannot grant access to something it cannot
// reach.
type Guard struct {
	allowedSnapshots map[string]bool
}

// New builds a Guard whose allow-list is exactly allowedSnapshots —
// anything else is denied (§4.11 "allow-list of operations: read any
// snapshot in an explicit list").
func New(allowedSnapshots []string) *Guard {
	allowed := make(map[string]bool, len(allowedSnapshots))
	for _, name := range allowedSnapshots {
		allowed[name] = true
	}
	return &Guard{allowedSnapshots: allowed}
}

// AssertOperation fails closed on any operation in the fixed deny-list,
// regardless of Guard's configuration.
func (g *Guard) AssertOperation(op Operation) error {
	if forbidden[op] {
		return fmt.Errorf("%w: %s", ErrForbidden, op)
	}
	return nil
}

// AssertSnapshotAccess allows reading name only if it is on the
// allow-list. An empty allow-list denies every snapshot.
func (g *Guard) AssertSnapshotAccess(name string) error {
	if !g.allowedSnapshots[name] {
		return fmt.Errorf("%w: %s", ErrSnapshotNotAllowed, name)
	}
	return nil
}

// AllowedSnapshots returns the configured allow-list, sorted by caller
// convenience not guaranteed (map iteration order).
func (g *Guard) AllowedSnapshots() []string {
	names := make([]string, 0, len(g.allowedSnapshots))
	for name := range g.allowedSnapshots {
		names = append(names, name)
	}
	return names
}
