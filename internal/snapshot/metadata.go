package snapshot

// Metadata is the immutable record kept alongside a snapshot's payload,
// sufficient to verify the payload without re-deriving the chain (§4.7
// "separate from snapshot content").
type Metadata struct {
	SnapshotName string `json:"snapshot_name"`
	ContentHash  string `json:"content_hash"`
	Signature    string `json:"signature"`
	PrevHash     string `json:"prev_hash"`
	Sequence     int    `json:"sequence"`
	Timestamp    int64  `json:"timestamp"`
	SizeBytes    int    `json:"size_bytes"`
}

// Valid performs the basic structural checks the original system ran
// before trusting a metadata record: hash/signature/prev_hash length,
// non-negative sequence, positive timestamp.
func (m Metadata) Valid() bool {
	return len(m.ContentHash) == 64 &&
		len(m.Signature) == 64 &&
		len(m.PrevHash) == 64 &&
		m.Sequence >= 0 &&
		m.Timestamp > 0
}
