package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store writes and reads named snapshot families to disk, maintaining a
// hash chain per family and serializing writers with a mutex (§4.7
// "writers are serialized via a lock").
type Store struct {
	dir    string
	signer *Signer
	logger *zap.Logger

	mu     sync.Mutex
	chains map[string][]ChainEntry
}

// Open roots a Store at dir (created if missing) and loads any existing
// chain files found there.
func Open(dir string, signer *Signer, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create store dir: %w", err)
	}
	s := &Store{
		dir:    dir,
		signer: signer,
		logger: logger.Named("snapshot"),
		chains: make(map[string][]ChainEntry),
	}
	if err := s.loadChains(); err != nil {
		return nil, err
	}
	return s, nil
}

// loadChains discovers existing <family>/chain.json files under the
// store root so a reopened Store resumes each family's sequence and
// prev_hash instead of restarting at genesis.
func (s *Store) loadChains() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("snapshot: read store dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		family := e.Name()
		raw, err := os.ReadFile(s.chainPath(family))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("snapshot: read chain for %s: %w", family, err)
		}
		var chain []ChainEntry
		if err := json.Unmarshal(raw, &chain); err != nil {
			return fmt.Errorf("snapshot: parse chain for %s: %w", family, err)
		}
		s.chains[family] = chain
	}
	return nil
}

func (s *Store) familyDir(family string) string {
	return filepath.Join(s.dir, family)
}

func (s *Store) payloadPath(family string) string {
	return filepath.Join(s.familyDir(family), "payload.json")
}

func (s *Store) metadataPath(family string) string {
	return filepath.Join(s.familyDir(family), "metadata.json")
}

func (s *Store) chainPath(family string) string {
	return filepath.Join(s.familyDir(family), "chain.json")
}

// Write canonicalizes payload, hashes and signs it, appends a chain
// entry, and atomically persists payload + metadata + chain (§4.7
// "write(name, payload) -> metadata"). Each of the three files is written
// to a temp path and renamed into place only after a successful fsync, so
// no single file is ever seen half-written. The three renames are separate
// steps: a crash between them can leave payload, metadata and chain from
// different generations.
func (s *Store) Write(family string, payload any) (Metadata, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := Canonicalize(payload)
	if err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, err
	}

	contentHash := HashContent(canonical)
	signature, err := s.signer.Sign(contentHash)
	if err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, err
	}

	chain := s.chains[family]
	var head *ChainEntry
	if len(chain) > 0 {
		head = &chain[len(chain)-1]
	}
	now := time.Now().UTC().Unix()
	entry := NextChainEntry(head, family, contentHash, now)

	meta := Metadata{
		SnapshotName: family,
		ContentHash:  contentHash,
		Signature:    signature,
		PrevHash:     entry.PrevHash,
		Sequence:     entry.Sequence,
		Timestamp:    now,
		SizeBytes:    len(canonical),
	}

	if err := os.MkdirAll(s.familyDir(family), 0o755); err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, fmt.Errorf("snapshot: create family dir: %w", err)
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, fmt.Errorf("snapshot: marshal metadata: %w", err)
	}

	updatedChain := append(append([]ChainEntry{}, chain...), entry)
	chainBytes, err := json.Marshal(updatedChain)
	if err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, fmt.Errorf("snapshot: marshal chain: %w", err)
	}

	if err := writeAtomic(s.payloadPath(family), canonical); err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, err
	}
	if err := writeAtomic(s.metadataPath(family), metaBytes); err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, err
	}
	if err := writeAtomic(s.chainPath(family), chainBytes); err != nil {
		metrics.writesTotal.WithLabelValues(family, "error").Inc()
		return Metadata{}, err
	}

	s.chains[family] = updatedChain

	metrics.writesTotal.WithLabelValues(family, "ok").Inc()
	metrics.writeDuration.WithLabelValues(family).Observe(time.Since(start).Seconds())

	s.logger.Info("snapshot written",
		zap.String("family", family),
		zap.Int("sequence", meta.Sequence),
		zap.String("content_hash", meta.ContentHash),
	)

	return meta, nil
}

// ReadPayload returns the raw canonical bytes last written for family.
func (s *Store) ReadPayload(family string) ([]byte, error) {
	return os.ReadFile(s.payloadPath(family))
}

// ReadMetadata returns the metadata record last written for family.
func (s *Store) ReadMetadata(family string) (Metadata, error) {
	raw, err := os.ReadFile(s.metadataPath(family))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("snapshot: parse metadata: %w", err)
	}
	return meta, nil
}

// Chain returns the full chain history recorded for family.
func (s *Store) Chain(family string) ([]ChainEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chain, ok := s.chains[family]; ok {
		return append([]ChainEntry{}, chain...), nil
	}

	raw, err := os.ReadFile(s.chainPath(family))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var chain []ChainEntry
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("snapshot: parse chain: %w", err)
	}
	return chain, nil
}

// writeAtomic writes data to a temp file in the same directory as path,
// fsyncs it, then renames over path — a crash before the rename leaves
// the previous file untouched (§4.7 "write-to-tmp + rename, or
// equivalent").
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}
