package forensic

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

func newHarness(t *testing.T) (*snapshot.Store, *integrity.Detector, *Replayer, *TimelineBuilder) {
	t.Helper()
	signer, err := snapshot.NewSigner("test-signing-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	store, err := snapshot.Open(t.TempDir(), signer, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	detector := integrity.New(store, signer)
	replayer := New(store, detector)
	timeline := NewTimelineBuilder(replayer, detector)
	return store, detector, replayer, timeline
}

func TestReplaySnapshotRefusesTamperedSnapshot(t *testing.T) {
	store, _, _, _ := newHarness(t)
	if _, err := store.Write("shipment_index", map[string]any{"count": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	wrongSigner, err := snapshot.NewSigner("a-different-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tamperedDetector := integrity.New(store, wrongSigner)
	replayer := New(store, tamperedDetector)

	if _, err := replayer.ReplaySnapshot("shipment_index", nil); err == nil {
		t.Fatal("expected replay to refuse a tampered snapshot")
	}
}

func TestReplaySnapshotRejectsTimestampBeforeSnapshot(t *testing.T) {
	store, _, replayer, _ := newHarness(t)
	meta, err := store.Write("heatmap", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	earlier := meta.Timestamp - 3600
	if _, err := replayer.ReplaySnapshot("heatmap", &earlier); err == nil {
		t.Fatal("expected an error for an at_timestamp before the snapshot timestamp")
	}
}

func TestReplaySnapshotRoundTripsContent(t *testing.T) {
	store, _, replayer, _ := newHarness(t)
	if _, err := store.Write("corridor_health", map[string]any{"corridor": "BOM-DEL", "score": 42.5}); err != nil {
		t.Fatalf("write: %v", err)
	}

	replay, err := replayer.ReplaySnapshot("corridor_health", nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Content["corridor"] != "BOM-DEL" {
		t.Fatalf("unexpected content: %+v", replay.Content)
	}
	if replay.IntegrityStatus != integrity.StatusIntact {
		t.Fatalf("expected INTACT, got %s", replay.IntegrityStatus)
	}
}

func TestBuildTimelineOrdersEntriesByTimestamp(t *testing.T) {
	store, _, _, timeline := newHarness(t)
	if _, err := store.Write("alerts", map[string]any{
		"shipment_1": map[string]any{"state": "IN_TRANSIT"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries := timeline.Build("alerts", true)
	if len(entries) < 2 {
		t.Fatalf("expected at least an integrity and creation event, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp < entries[i-1].Timestamp {
			t.Fatalf("timeline not ordered: %+v", entries)
		}
	}

	foundCreated := false
	for _, e := range entries {
		if e.EventType == "SNAPSHOT_CREATED" {
			foundCreated = true
		}
	}
	if !foundCreated {
		t.Fatalf("expected a SNAPSHOT_CREATED entry, got %+v", entries)
	}
}

func TestBuildTimelineReportsReplayErrorForMissingSnapshot(t *testing.T) {
	_, _, _, timeline := newHarness(t)

	entries := timeline.Build("never_written", false)
	if len(entries) != 1 || entries[0].EventType != "REPLAY_ERROR" {
		t.Fatalf("expected a single REPLAY_ERROR entry, got %+v", entries)
	}
}

func TestExportEvidenceZipContainsAllArtifacts(t *testing.T) {
	store, detector, replayer, timeline := newHarness(t)
	if _, err := store.Write("shipment_index", map[string]any{"count": 7}); err != nil {
		t.Fatalf("write: %v", err)
	}

	fixed := time.Unix(1_700_000_000, 0)
	exporter := NewExporter(replayer, detector, timeline, store, func() time.Time { return fixed })

	data, err := exporter.Export("shipment_index", FormatZip, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	want := map[string]bool{
		"shipment_index/snapshot_payload.json":          false,
		"shipment_index/snapshot_metadata.json":         false,
		"shipment_index/integrity_report.json":          false,
		"shipment_index/verification_instructions.txt": false,
		"shipment_index/incident_timeline.txt":          false,
		"shipment_index/manifest.json":                  false,
	}
	for _, f := range zr.File {
		if _, ok := want[f.Name]; ok {
			want[f.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected zip entry %s", name)
		}
	}
}

func TestExportEvidenceJSONRoundTrips(t *testing.T) {
	store, detector, replayer, timeline := newHarness(t)
	if _, err := store.Write("heatmap", map[string]any{"points": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	exporter := NewExporter(replayer, detector, timeline, store, nil)
	data, err := exporter.Export("heatmap", FormatJSON, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal evidence: %v", err)
	}
	if decoded["snapshot_name"] != "heatmap" {
		t.Fatalf("unexpected snapshot_name: %v", decoded["snapshot_name"])
	}
	if _, hasTimeline := decoded["timeline"]; hasTimeline {
		t.Fatalf("expected no timeline key when includeTimeline is false")
	}
}

func TestExportEvidenceCSVHasExpectedFields(t *testing.T) {
	store, detector, replayer, timeline := newHarness(t)
	if _, err := store.Write("corridor_health", map[string]any{"ok": true}); err != nil {
		t.Fatalf("write: %v", err)
	}

	exporter := NewExporter(replayer, detector, timeline, store, nil)
	data, err := exporter.Export("corridor_health", FormatCSV, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if rows[0][0] != "Field" || rows[0][1] != "Value" {
		t.Fatalf("unexpected header: %v", rows[0])
	}

	fields := map[string]string{}
	for _, row := range rows[1:] {
		fields[row[0]] = row[1]
	}
	if fields["Integrity Status"] != string(integrity.StatusIntact) {
		t.Fatalf("expected INTACT integrity status row, got %v", fields)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	store, detector, replayer, timeline := newHarness(t)
	if _, err := store.Write("shipment_index", map[string]any{"count": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	exporter := NewExporter(replayer, detector, timeline, store, nil)
	if _, err := exporter.Export("shipment_index", Format("xml"), false); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestExportManyAddsFailureSentinelForBadSnapshot(t *testing.T) {
	store, detector, replayer, timeline := newHarness(t)
	if _, err := store.Write("shipment_index", map[string]any{"count": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	exporter := NewExporter(replayer, detector, timeline, store, nil)
	data, err := exporter.ExportMany([]string{"shipment_index", "never_written"}, false)
	if err != nil {
		t.Fatalf("export many: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open combined zip: %v", err)
	}
	var sawGood, sawFailure bool
	for _, f := range zr.File {
		switch f.Name {
		case "shipment_index/snapshot_payload.json":
			sawGood = true
		case "never_written/export_failed.txt":
			sawFailure = true
		}
	}
	if !sawGood || !sawFailure {
		t.Fatalf("expected both a successful export and a failure sentinel, files: %+v", zr.File)
	}
}
