// Package forensic implements snapshot-driven forensic replay, incident
// timeline reconstruction, and legal evidence export (§4.9). Everything
// here reads exclusively from already-written snapshots — never the
// live event log or read models.
package forensic

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

// ErrReplayFailed wraps every failure replay returns, matching the
// original system's single `ReplayError` type collapsed to one
// sentinel with wrapped context.
var ErrReplayFailed = errors.New("forensic: replay failed")

// Store is the subset of *snapshot.Store replay needs.
type Store interface {
	ReadPayload(family string) ([]byte, error)
	ReadMetadata(family string) (snapshot.Metadata, error)
}

// Replayer reconstructs snapshot state, refusing to proceed on any
// non-INTACT integrity status (§4.9 "runs integrity detection first").
type Replayer struct {
	store    Store
	detector *integrity.Detector
}

// New builds a Replayer over store, verifying integrity with detector.
func New(store Store, detector *integrity.Detector) *Replayer {
	return &Replayer{store: store, detector: detector}
}

// Replay is the result of replaying a snapshot (§4.9 signature).
type Replay struct {
	Name            string
	Timestamp       int64
	Content         map[string]any
	Metadata        snapshot.Metadata
	IntegrityStatus integrity.Status
}

// ReplaySnapshot reconstructs name's content, verifying integrity first
// and refusing atTimestamp earlier than the snapshot's own timestamp.
func (r *Replayer) ReplaySnapshot(name string, atTimestamp *int64) (Replay, error) {
	report := r.detector.Detect(name)
	if report.Status != integrity.StatusIntact {
		return Replay{}, fmt.Errorf("%w: cannot replay non-intact snapshot %s (%s)", ErrReplayFailed, name, report.Status)
	}

	raw, err := r.store.ReadPayload(name)
	if err != nil {
		return Replay{}, fmt.Errorf("%w: read payload: %s", ErrReplayFailed, err)
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		return Replay{}, fmt.Errorf("%w: parse payload: %s", ErrReplayFailed, err)
	}

	meta, err := r.store.ReadMetadata(name)
	if err != nil {
		return Replay{}, fmt.Errorf("%w: read metadata: %s", ErrReplayFailed, err)
	}

	if atTimestamp != nil && *atTimestamp < meta.Timestamp {
		return Replay{}, fmt.Errorf("%w: requested timestamp %d is before snapshot timestamp %d", ErrReplayFailed, *atTimestamp, meta.Timestamp)
	}

	return Replay{
		Name:            name,
		Timestamp:       meta.Timestamp,
		Content:         content,
		Metadata:        meta,
		IntegrityStatus: report.Status,
	}, nil
}

// ReplayMany replays every name, skipping (not failing) individual
// snapshots that cannot be replayed — callers inspect which names are
// missing from the result to know what failed.
func (r *Replayer) ReplayMany(names []string, atTimestamp *int64) map[string]Replay {
	results := make(map[string]Replay, len(names))
	for _, name := range names {
		if replay, err := r.ReplaySnapshot(name, atTimestamp); err == nil {
			results[name] = replay
		}
	}
	return results
}
