package snapshot

import (
	"testing"

	"go.uber.org/zap"
)

func TestCanonicalizeIsDeterministicAndSortsKeys(t *testing.T) {
	a, err := Canonicalize(map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := Canonicalize(map[string]any{"a": 2, "b": 1})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected key order to not affect output: %q vs %q", a, b)
	}
	if string(a) != `{"a":2,"b":1}` {
		t.Fatalf("unexpected canonical form: %s", a)
	}
}

func TestSignerSignAndVerify(t *testing.T) {
	signer, err := NewSigner("test-signing-key", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	hash := HashContent([]byte(`{"a":1}`))
	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !signer.Verify(hash, sig) {
		t.Fatal("expected signature to verify")
	}
	if signer.Verify(hash, "0000") {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestNewSignerFailsClosedWithoutKey(t *testing.T) {
	if _, err := NewSigner("", false); err != ErrSigningKeyMissing {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
	if _, err := NewSigner("", true); err != nil {
		t.Fatalf("expected dev-mode fallback to succeed, got %v", err)
	}
}

func TestStoreWriteBuildsChain(t *testing.T) {
	signer, _ := NewSigner("test-signing-key", false)
	store, err := Open(t.TempDir(), signer, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	first, err := store.Write("shipment_index", map[string]any{"count": 1})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if first.PrevHash != Genesis {
		t.Fatalf("expected first entry to reference genesis, got %s", first.PrevHash)
	}
	if first.Sequence != 0 {
		t.Fatalf("expected sequence 0, got %d", first.Sequence)
	}

	second, err := store.Write("shipment_index", map[string]any{"count": 2})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if second.PrevHash != first.ContentHash {
		t.Fatalf("expected second entry to chain off first")
	}
	if second.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", second.Sequence)
	}

	chain, err := store.Chain("shipment_index")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	verification := VerifyChain(chain)
	if !verification.Valid {
		t.Fatalf("expected chain to verify, got %+v", verification)
	}
}

func TestStoreReadRoundTrip(t *testing.T) {
	signer, _ := NewSigner("test-signing-key", false)
	store, err := Open(t.TempDir(), signer, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	meta, err := store.Write("heatmap", map[string]any{"state": "Gujarat", "risk": 42})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	readMeta, err := store.ReadMetadata("heatmap")
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if readMeta.ContentHash != meta.ContentHash {
		t.Fatalf("expected metadata round trip, got %+v vs %+v", readMeta, meta)
	}
	if !readMeta.Valid() {
		t.Fatal("expected metadata to pass structural validity checks")
	}

	payload, err := store.ReadPayload("heatmap")
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if HashContent(payload) != meta.ContentHash {
		t.Fatal("expected stored payload hash to match metadata")
	}
}
