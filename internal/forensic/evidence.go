package forensic

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

// Format selects the evidence export's container (§4.9 "archive, single
// JSON, tabular").
type Format string

const (
	FormatZip  Format = "zip"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for any Format outside the closed set.
var ErrUnsupportedFormat = errors.New("forensic: unsupported evidence export format")

// ErrSnapshotNotFound is returned when the named snapshot has no
// metadata on record.
var ErrSnapshotNotFound = errors.New("forensic: snapshot not found")

// ChainStore is the subset of *snapshot.Store evidence export needs to
// attach a chain proof.
type ChainStore interface {
	Chain(family string) ([]snapshot.ChainEntry, error)
}

// Exporter builds legal evidence packages from snapshots.
type Exporter struct {
	replayer *Replayer
	detector *integrity.Detector
	timeline *TimelineBuilder
	chains   ChainStore
	now      func() time.Time
}

// NewExporter wires an Exporter over its collaborators. now defaults to
// time.Now; tests may override it for deterministic export timestamps.
func NewExporter(replayer *Replayer, detector *integrity.Detector, timeline *TimelineBuilder, chains ChainStore, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{replayer: replayer, detector: detector, timeline: timeline, chains: chains, now: now}
}

// Export builds the evidence package for name in the requested format.
func (x *Exporter) Export(name string, format Format, includeTimeline bool) ([]byte, error) {
	switch format {
	case FormatZip:
		return x.exportZip(name, includeTimeline)
	case FormatJSON:
		return x.exportJSON(name, includeTimeline)
	case FormatCSV:
		return x.exportCSV(name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

type evidenceMetadata struct {
	SnapshotName    string   `json:"snapshot_name"`
	ContentHash     string   `json:"content_hash"`
	Signature       string   `json:"signature"`
	Timestamp       int64    `json:"timestamp"`
	SizeBytes       int      `json:"size_bytes"`
	IntegrityStatus string   `json:"integrity_status"`
	ViolatedRules   []string `json:"violated_rules"`
}

func (x *Exporter) buildMetadata(name string, report integrity.Report) (evidenceMetadata, error) {
	meta, err := x.replayer.store.ReadMetadata(name)
	if err != nil {
		return evidenceMetadata{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	return evidenceMetadata{
		SnapshotName:    name,
		ContentHash:     meta.ContentHash,
		Signature:       meta.Signature,
		Timestamp:       meta.Timestamp,
		SizeBytes:       meta.SizeBytes,
		IntegrityStatus: string(report.Status),
		ViolatedRules:   report.ViolatedRules,
	}, nil
}

func (x *Exporter) chainProof(name string) ([]snapshot.ChainEntry, bool) {
	chain, err := x.chains.Chain(name)
	if err != nil || len(chain) == 0 {
		return nil, false
	}
	return chain, true
}

type manifest struct {
	SnapshotName    string          `json:"snapshot_name"`
	ExportTimestamp string          `json:"export_timestamp"`
	Format          string          `json:"format"`
	Version         string          `json:"version"`
	Contents        manifestEntries `json:"contents"`
}

type manifestEntries struct {
	SnapshotPayload          bool `json:"snapshot_payload"`
	Metadata                 bool `json:"metadata"`
	IntegrityReport          bool `json:"integrity_report"`
	VerificationInstructions bool `json:"verification_instructions"`
	Timeline                 bool `json:"timeline"`
	ChainProof               bool `json:"chain_proof"`
}

func (x *Exporter) verificationInstructions(name string, exportedAt time.Time) string {
	return fmt.Sprintf(`EVIDENCE VERIFICATION INSTRUCTIONS
==================================

Snapshot Name: %s
Export Date: %s

OFFLINE VERIFICATION STEPS:

1. VERIFY HASH
   - Open: snapshot_payload.json
   - Compute SHA-256 hash
   - Compare with: snapshot_metadata.json -> content_hash
   - Command: sha256sum snapshot_payload.json

2. VERIFY SIGNATURE
   - Requires signing key (SNAPSHOT_SIGNING_KEY)
   - Compute HMAC-SHA256 of content_hash
   - Compare with: snapshot_metadata.json -> signature
   - Command: echo -n "<hash>" | openssl dgst -sha256 -hmac "<key>"

3. VERIFY CHAIN
   - Open: chain_proof.json (if present)
   - Verify each entry links to the previous entry's content_hash
   - First entry must reference GENESIS

4. VERIFY INTEGRITY
   - Check: integrity_report.json
   - Status must be "INTACT"
   - violated_rules must be empty

REQUIRED TOOLS:
- sha256sum or equivalent
- openssl (for HMAC verification)
- JSON parser (jq, python, etc.)

CHAIN OF CUSTODY:
- Export timestamp: %s
- Snapshot timestamp: see snapshot_metadata.json

For questions or disputes, contact the system administrator.
`, name, exportedAt.UTC().Format(time.RFC3339), exportedAt.UTC().Format(time.RFC3339))
}

func (x *Exporter) exportZip(name string, includeTimeline bool) ([]byte, error) {
	report := x.detector.Detect(name)
	meta, err := x.buildMetadata(name, report)
	if err != nil {
		return nil, err
	}
	payload, err := x.replayer.store.ReadPayload(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZipJSON(zw, fmt.Sprintf("%s/snapshot_payload.json", name), json.RawMessage(payload)); err != nil {
		return nil, err
	}
	if err := writeZipJSON(zw, fmt.Sprintf("%s/snapshot_metadata.json", name), meta); err != nil {
		return nil, err
	}
	if err := writeZipJSON(zw, fmt.Sprintf("%s/integrity_report.json", name), report); err != nil {
		return nil, err
	}

	exportedAt := x.now()
	instructionsWriter, err := zw.Create(fmt.Sprintf("%s/verification_instructions.txt", name))
	if err != nil {
		return nil, fmt.Errorf("forensic: create zip entry: %w", err)
	}
	if _, err := instructionsWriter.Write([]byte(x.verificationInstructions(name, exportedAt))); err != nil {
		return nil, fmt.Errorf("forensic: write zip entry: %w", err)
	}

	if includeTimeline {
		timeline := x.timeline.Build(name, true)
		timelineWriter, err := zw.Create(fmt.Sprintf("%s/incident_timeline.txt", name))
		if err != nil {
			return nil, fmt.Errorf("forensic: create zip entry: %w", err)
		}
		if _, err := timelineWriter.Write([]byte(ExportText(timeline))); err != nil {
			return nil, fmt.Errorf("forensic: write zip entry: %w", err)
		}
	}

	chain, hasChain := x.chainProof(name)
	if hasChain {
		if err := writeZipJSON(zw, fmt.Sprintf("%s/chain_proof.json", name), chain); err != nil {
			return nil, err
		}
	}

	m := manifest{
		SnapshotName:    name,
		ExportTimestamp: exportedAt.UTC().Format(time.RFC3339),
		Format:          "evidence_package",
		Version:         "1.0",
		Contents: manifestEntries{
			SnapshotPayload:          true,
			Metadata:                 true,
			IntegrityReport:          true,
			VerificationInstructions: true,
			Timeline:                 includeTimeline,
			ChainProof:               hasChain,
		},
	}
	if err := writeZipJSON(zw, fmt.Sprintf("%s/manifest.json", name), m); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("forensic: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipJSON(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("forensic: create zip entry %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("forensic: encode zip entry %s: %w", name, err)
	}
	return nil
}

type jsonEvidence struct {
	SnapshotName    string           `json:"snapshot_name"`
	ExportTimestamp string           `json:"export_timestamp"`
	SnapshotPayload json.RawMessage  `json:"snapshot_payload"`
	Metadata        evidenceMetadata `json:"metadata"`
	IntegrityReport integrity.Report `json:"integrity_report"`
	Timeline        []Entry          `json:"timeline,omitempty"`
}

func (x *Exporter) exportJSON(name string, includeTimeline bool) ([]byte, error) {
	report := x.detector.Detect(name)
	meta, err := x.buildMetadata(name, report)
	if err != nil {
		return nil, err
	}
	payload, err := x.replayer.store.ReadPayload(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}

	evidence := jsonEvidence{
		SnapshotName:    name,
		ExportTimestamp: x.now().UTC().Format(time.RFC3339),
		SnapshotPayload: json.RawMessage(payload),
		Metadata:        meta,
		IntegrityReport: report,
	}
	if includeTimeline {
		evidence.Timeline = x.timeline.Build(name, true)
	}

	out, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("forensic: marshal evidence: %w", err)
	}
	return out, nil
}

func (x *Exporter) exportCSV(name string) ([]byte, error) {
	report := x.detector.Detect(name)
	meta, err := x.buildMetadata(name, report)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Field", "Value"},
		{"Snapshot Name", name},
		{"Export Time", x.now().UTC().Format(time.RFC3339)},
		{"Content Hash", meta.ContentHash},
		{"Signature", meta.Signature},
		{"Timestamp", strconv.FormatInt(meta.Timestamp, 10)},
		{"Integrity Status", string(report.Status)},
		{"Severity", string(report.Severity)},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("forensic: write csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("forensic: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportMany bundles name's individual zip evidence packages into one
// combined archive. A snapshot that fails to export does not abort the
// bundle — it gets an export_failed.txt sentinel in its place (§4.9
// "produce a sentinel error file per failed snapshot rather than
// aborting the bundle").
func (x *Exporter) ExportMany(names []string, includeTimeline bool) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range names {
		single, err := x.exportZip(name, includeTimeline)
		if err != nil {
			w, zerr := zw.Create(fmt.Sprintf("%s/export_failed.txt", name))
			if zerr != nil {
				return nil, fmt.Errorf("forensic: create failure entry: %w", zerr)
			}
			if _, zerr := w.Write([]byte(fmt.Sprintf("Failed to export snapshot: %s (%s)", name, err))); zerr != nil {
				return nil, fmt.Errorf("forensic: write failure entry: %w", zerr)
			}
			continue
		}

		zr, err := zip.NewReader(bytes.NewReader(single), int64(len(single)))
		if err != nil {
			return nil, fmt.Errorf("forensic: reopen sub-archive: %w", err)
		}
		for _, f := range zr.File {
			src, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("forensic: read sub-archive entry: %w", err)
			}
			dst, err := zw.Create(f.Name)
			if err != nil {
				src.Close()
				return nil, fmt.Errorf("forensic: create combined entry: %w", err)
			}
			if _, err := io.Copy(dst, src); err != nil {
				src.Close()
				return nil, fmt.Errorf("forensic: copy combined entry: %w", err)
			}
			src.Close()
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("forensic: close combined archive: %w", err)
	}
	return buf.Bytes(), nil
}
