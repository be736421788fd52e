package regulator

import (
	"context"

	"github.com/nlogistics/control-tower/internal/accessguard"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/forensic"
)

// SnapshotView is a flat, explainable read of one allowed snapshot —
// no joins, no correlation across snapshots, no drilldown into the live
// event log (§4.11 "flat structures with no joins").
type SnapshotView struct {
	Name            string         `json:"snapshot_name"`
	Content         map[string]any `json:"content"`
	IntegrityStatus string         `json:"integrity_status"`
	Timestamp       int64          `json:"timestamp"`
}

// DenialSummary is a regulator-safe view over access-denial records: ids
// and reason codes only, never shipment content (§3 "the payload never
// contains shipment content").
type DenialSummary struct {
	Role    string                             `json:"role"`
	Total   int64                              `json:"total"`
	Reasons map[accessguard.DenialReason]int64 `json:"by_reason"`
}

// Views is the regulator-safe read surface: every method is gated by
// Guard before touching its collaborator, and every collaborator here is
// itself snapshot- or audit-log-backed, never the live event log or
// read-model projector.
type Views struct {
	guard    *Guard
	replayer *forensic.Replayer
	exporter *forensic.Exporter
	audit    audit.Store
}

// NewViews wires a Views over guard and its read-only collaborators.
func NewViews(guard *Guard, replayer *forensic.Replayer, exporter *forensic.Exporter, auditStore audit.Store) *Views {
	return &Views{guard: guard, replayer: replayer, exporter: exporter, audit: auditStore}
}

// Guard exposes the underlying policy guard, e.g. so a transport adapter
// can list the allow-list without going through a gated operation.
func (v *Views) Guard() *Guard {
	return v.guard
}

// ReadSnapshot returns a flat view of an allowed snapshot, replayed at
// its current state (no at_timestamp travel — that facility is reserved
// for internal forensic use, not the regulator surface).
func (v *Views) ReadSnapshot(name string) (SnapshotView, error) {
	if err := v.guard.AssertOperation(OpReadSnapshot); err != nil {
		return SnapshotView{}, err
	}
	if err := v.guard.AssertSnapshotAccess(name); err != nil {
		return SnapshotView{}, err
	}

	replay, err := v.replayer.ReplaySnapshot(name, nil)
	if err != nil {
		return SnapshotView{}, err
	}
	return SnapshotView{
		Name:            replay.Name,
		Content:         replay.Content,
		IntegrityStatus: string(replay.IntegrityStatus),
		Timestamp:       replay.Timestamp,
	}, nil
}

// ExportCompliance produces an evidence export for an allowed snapshot.
func (v *Views) ExportCompliance(name string, format forensic.Format, includeTimeline bool) ([]byte, error) {
	if err := v.guard.AssertOperation(OpExportCompliance); err != nil {
		return nil, err
	}
	if err := v.guard.AssertSnapshotAccess(name); err != nil {
		return nil, err
	}
	return v.exporter.Export(name, format, includeTimeline)
}

// DenialSummaryForRole returns a reason-code histogram for role's
// recorded access denials — ids and reason codes only.
func (v *Views) DenialSummaryForRole(ctx context.Context, role string) (DenialSummary, error) {
	if err := v.guard.AssertOperation(OpViewDenialSummary); err != nil {
		return DenialSummary{}, err
	}

	denials, total, err := v.audit.ByRole(ctx, role, audit.ListOptions{Limit: 10000})
	if err != nil {
		return DenialSummary{}, err
	}
	reasons := make(map[accessguard.DenialReason]int64, len(denials))
	for _, d := range denials {
		reasons[accessguard.DenialReason(d.ReasonCode)]++
	}
	return DenialSummary{Role: role, Total: total, Reasons: reasons}, nil
}

// DenialCounts returns a global histogram of denials by reason code.
func (v *Views) DenialCounts(ctx context.Context) (map[accessguard.DenialReason]int64, error) {
	if err := v.guard.AssertOperation(OpViewDenialCounts); err != nil {
		return nil, err
	}
	return v.audit.CountByReason(ctx)
}
