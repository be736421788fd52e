package api

import (
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

// SnapshotHandler groups the snapshot HTTP handlers. Snapshots are
// read-only over REST — families are written exclusively by
// internal/scheduler's cadence and rollup jobs (§4.7). Deletion and
// mutation have no analogue here: a snapshot is an append to a hash
// chain, never an editable or removable row.
type SnapshotHandler struct {
	store    *snapshot.Store
	detector *integrity.Detector
	families []string
	logger   *zap.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler. families is the known
// set of snapshot family names this deployment writes (cmd/towerd passes
// scheduler.Families, e.g. "shipment_index" or "daily_rollup") — used to
// answer List.
func NewSnapshotHandler(store *snapshot.Store, detector *integrity.Detector, families []string, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		store:    store,
		detector: detector,
		families: families,
		logger:   logger.Named("snapshot_handler"),
	}
}

// snapshotResponse is the JSON representation of a snapshot's current
// metadata and integrity status.
type snapshotResponse struct {
	Family        string `json:"family"`
	ContentHash   string `json:"content_hash"`
	PrevHash      string `json:"prev_hash"`
	Sequence      int    `json:"sequence"`
	Timestamp     int64  `json:"timestamp"`
	SizeBytes     int    `json:"size_bytes"`
	IntegrityOK   bool   `json:"integrity_ok"`
	ViolatedRules []string `json:"violated_rules,omitempty"`
}

// listSnapshotsResponse wraps the known snapshot families with their
// current metadata.
type listSnapshotsResponse struct {
	Items []snapshotResponse `json:"items"`
}

// List handles GET /api/v1/snapshots. Returns current metadata and
// integrity status for every known snapshot family. Families with no
// snapshot written yet are omitted rather than erroring.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	items := make([]snapshotResponse, 0, len(h.families))
	for _, family := range h.families {
		resp, ok := h.describe(family)
		if !ok {
			continue
		}
		items = append(items, resp)
	}
	Ok(w, listSnapshotsResponse{Items: items})
}

// GetByName handles GET /api/v1/snapshots/{family}.
func (h *SnapshotHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	family := pathParam(r, "family")
	if family == "" {
		ErrBadRequest(w, "missing snapshot family")
		return
	}

	resp, ok := h.describe(family)
	if !ok {
		ErrNotFound(w)
		return
	}
	Ok(w, resp)
}

// chainResponse is the JSON representation of a family's full hash chain.
type chainResponse struct {
	Family string                 `json:"family"`
	Chain  []snapshot.ChainEntry  `json:"chain"`
}

// GetChain handles GET /api/v1/snapshots/{family}/chain, returning the
// full hash-chain history for forensic inspection (§4.7, §4.9).
func (h *SnapshotHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	family := pathParam(r, "family")
	if family == "" {
		ErrBadRequest(w, "missing snapshot family")
		return
	}

	chain, err := h.store.Chain(family)
	if err != nil {
		h.logger.Error("failed to read snapshot chain", zap.String("family", family), zap.Error(err))
		ErrInternal(w)
		return
	}
	if len(chain) == 0 {
		ErrNotFound(w)
		return
	}

	Ok(w, chainResponse{Family: family, Chain: chain})
}

func (h *SnapshotHandler) describe(family string) (snapshotResponse, bool) {
	meta, err := h.store.ReadMetadata(family)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snapshotResponse{}, false
		}
		h.logger.Error("failed to read snapshot metadata", zap.String("family", family), zap.Error(err))
		return snapshotResponse{}, false
	}

	report := h.detector.Detect(family)

	return snapshotResponse{
		Family:        family,
		ContentHash:   meta.ContentHash,
		PrevHash:      meta.PrevHash,
		Sequence:      meta.Sequence,
		Timestamp:     meta.Timestamp,
		SizeBytes:     meta.SizeBytes,
		IntegrityOK:   report.Status == integrity.StatusIntact,
		ViolatedRules: report.ViolatedRules,
	}, true
}
