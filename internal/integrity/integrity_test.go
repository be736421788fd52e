package integrity

import (
	"testing"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/snapshot"
)

func newTestStore(t *testing.T) *snapshot.Store {
	t.Helper()
	signer, err := snapshot.NewSigner("test-signing-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	store, err := snapshot.Open(t.TempDir(), signer, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func testSigner(t *testing.T) *snapshot.Signer {
	t.Helper()
	signer, err := snapshot.NewSigner("test-signing-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func TestDetectIntact(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Write("shipment_index", map[string]any{"count": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	detector := New(store, testSigner(t))
	report := detector.Detect("shipment_index")
	if report.Status != StatusIntact {
		t.Fatalf("expected INTACT, got %s (%v)", report.Status, report.ViolatedRules)
	}
}

func TestDetectMissing(t *testing.T) {
	store := newTestStore(t)
	detector := New(store, testSigner(t))
	report := detector.Detect("never_written")
	if report.Status != StatusMissing {
		t.Fatalf("expected MISSING, got %s", report.Status)
	}
	if report.Severity != SeverityHigh {
		t.Fatalf("expected HIGH severity, got %s", report.Severity)
	}
}

func TestDetectTamperedSignature(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Write("heatmap", map[string]any{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	wrongSigner, err := snapshot.NewSigner("a-different-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	detector := New(store, wrongSigner)
	report := detector.Detect("heatmap")
	if report.Status != StatusTampered {
		t.Fatalf("expected TAMPERED, got %s", report.Status)
	}
	if report.Severity != SeverityCritical {
		t.Fatalf("expected CRITICAL severity, got %s", report.Severity)
	}
}

func TestAssertIntegrityFailsOnTamper(t *testing.T) {
	store := newTestStore(t)
	detector := New(store, testSigner(t))
	if err := detector.AssertIntegrity("missing_snapshot"); err == nil {
		t.Fatal("expected assert to fail for a missing snapshot")
	}
}

func TestVerifyChainAcrossWrites(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.Write("alerts", map[string]any{"i": i}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	verification, err := VerifyChain(store, "alerts")
	if err != nil {
		t.Fatalf("verify chain: %v", err)
	}
	if !verification.Valid || verification.Length != 3 {
		t.Fatalf("expected valid 3-entry chain, got %+v", verification)
	}
}

func TestDetectAllTallies(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Write("shipment_index", map[string]any{"ok": true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	detector := New(store, testSigner(t))

	summary := detector.DetectAll([]string{"shipment_index", "missing_one"})
	if summary.Total != 2 || summary.Intact != 1 || summary.Missing != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
