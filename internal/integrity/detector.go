// Package integrity implements the Tamper Detector (§4.8): hash,
// signature, and chain verification over snapshots written by
// internal/snapshot, failing loudly and never recovering silently.
package integrity

import (
	"errors"
	"fmt"
	"os"

	"github.com/nlogistics/control-tower/internal/snapshot"
)

// Status is the closed result of a single Detect call.
type Status string

const (
	StatusIntact   Status = "INTACT"
	StatusTampered Status = "TAMPERED"
	StatusMissing  Status = "MISSING"
	StatusError    Status = "ERROR"
)

// Severity grades how serious a detected violation is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Report is the result of Detect (§4.8 signature).
type Report struct {
	SnapshotName   string
	Status         Status
	ViolatedRules  []string
	Severity       Severity
	Details        map[string]string
}

// Store is the subset of *snapshot.Store the detector depends on.
type Store interface {
	ReadPayload(family string) ([]byte, error)
	ReadMetadata(family string) (snapshot.Metadata, error)
}

// Detector runs integrity checks against a snapshot store.
type Detector struct {
	store  Store
	signer *snapshot.Signer
}

// New builds a Detector over store, verifying signatures with signer.
func New(store Store, signer *snapshot.Signer) *Detector {
	return &Detector{store: store, signer: signer}
}

// Detect runs the checks of §4.8 in order: snapshot exists; metadata
// exists and parses; recomputed content_hash matches stored; signature
// verifies with a constant-time comparison. The first violated check
// wins and short-circuits the rest.
func (d *Detector) Detect(snapshotName string) Report {
	report := Report{SnapshotName: snapshotName, Status: StatusIntact, Details: map[string]string{}}

	payload, err := d.store.ReadPayload(snapshotName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			report.Status = StatusMissing
			report.ViolatedRules = []string{"snapshot_not_found"}
			report.Severity = SeverityHigh
			report.Details["error"] = fmt.Sprintf("snapshot %s not found", snapshotName)
			snapshot.RecordTamperDetection(snapshotName, string(StatusMissing))
			return report
		}
		report.Status = StatusError
		report.ViolatedRules = []string{"snapshot_read_error"}
		report.Severity = SeverityHigh
		report.Details["error"] = err.Error()
		snapshot.RecordTamperDetection(snapshotName, string(StatusError))
		return report
	}

	meta, err := d.store.ReadMetadata(snapshotName)
	if err != nil {
		report.Status = StatusError
		report.ViolatedRules = []string{"metadata_missing"}
		report.Severity = SeverityHigh
		report.Details["error"] = "snapshot metadata not found"
		snapshot.RecordTamperDetection(snapshotName, string(StatusError))
		return report
	}
	if !meta.Valid() {
		report.Status = StatusError
		report.ViolatedRules = []string{"metadata_invalid"}
		report.Severity = SeverityHigh
		report.Details["error"] = "metadata failed structural validity checks"
		snapshot.RecordTamperDetection(snapshotName, string(StatusError))
		return report
	}

	actualHash := snapshot.HashContent(payload)
	if actualHash != meta.ContentHash {
		report.Status = StatusTampered
		report.ViolatedRules = []string{"hash_mismatch"}
		report.Severity = SeverityCritical
		report.Details["expected_hash"] = meta.ContentHash
		report.Details["actual_hash"] = actualHash
		snapshot.RecordTamperDetection(snapshotName, string(StatusTampered))
		return report
	}

	if !d.signer.Verify(meta.ContentHash, meta.Signature) {
		report.Status = StatusTampered
		report.ViolatedRules = []string{"signature_invalid"}
		report.Severity = SeverityCritical
		report.Details["signature"] = meta.Signature
		snapshot.RecordTamperDetection(snapshotName, string(StatusTampered))
		return report
	}

	report.Details["hash"] = actualHash
	snapshot.RecordTamperDetection(snapshotName, string(StatusIntact))
	return report
}

// ErrTamperDetected is returned by AssertIntegrity on any non-INTACT
// status — the caller must never recover from this silently (§4.8
// "assert_integrity raises a dedicated failure; silent recovery is
// forbidden").
var ErrTamperDetected = errors.New("integrity: tamper detected")

// AssertIntegrity runs Detect and fails with ErrTamperDetected wrapping
// the violated rules if the snapshot is not INTACT.
func (d *Detector) AssertIntegrity(snapshotName string) error {
	report := d.Detect(snapshotName)
	if report.Status == StatusIntact {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrTamperDetected, snapshotName, report.ViolatedRules)
}
