package snapshot

import "fmt"

// Genesis is the prev_hash value of the first entry in any chain (§4.7
// "first entry's prev_hash = GENESIS (64 zeros)").
const Genesis = "0000000000000000000000000000000000000000000000000000000000000000"

// ChainEntry is one link in a snapshot family's hash chain.
type ChainEntry struct {
	SnapshotName string `json:"snapshot_name"`
	ContentHash  string `json:"content_hash"`
	PrevHash     string `json:"prev_hash"`
	Timestamp    int64  `json:"timestamp"`
	Sequence     int    `json:"sequence"`
}

// NextChainEntry builds the entry that should follow the current chain
// head (nil head means this is the first entry in the family, so
// prev_hash is Genesis and sequence is 0).
func NextChainEntry(head *ChainEntry, snapshotName, contentHash string, timestamp int64) ChainEntry {
	prevHash := Genesis
	sequence := 0
	if head != nil {
		prevHash = head.ContentHash
		sequence = head.Sequence + 1
	}
	return ChainEntry{
		SnapshotName: snapshotName,
		ContentHash:  contentHash,
		PrevHash:     prevHash,
		Timestamp:    timestamp,
		Sequence:     sequence,
	}
}

// ChainVerification is the result of VerifyChain.
type ChainVerification struct {
	Valid     bool
	Length    int
	BrokenAt  int
	HasBroken bool
	Err       error
}

// VerifyChain confirms every entry's prev_hash equals the previous
// entry's content_hash and sequences are consecutive, reporting the
// first broken index (§4.8 "report broken_at on first mismatch").
func VerifyChain(entries []ChainEntry) ChainVerification {
	if len(entries) == 0 {
		return ChainVerification{Err: fmt.Errorf("snapshot: chain is empty")}
	}

	if entries[0].PrevHash != Genesis {
		return ChainVerification{Length: len(entries), BrokenAt: 0, HasBroken: true,
			Err: fmt.Errorf("snapshot: first entry must reference genesis, got %s", entries[0].PrevHash)}
	}

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.PrevHash != prev.ContentHash {
			return ChainVerification{Length: len(entries), BrokenAt: i, HasBroken: true,
				Err: fmt.Errorf("snapshot: chain break at index %d", i)}
		}
		if cur.Sequence != prev.Sequence+1 {
			return ChainVerification{Length: len(entries), BrokenAt: i, HasBroken: true,
				Err: fmt.Errorf("snapshot: sequence break at index %d", i)}
		}
	}

	return ChainVerification{Valid: true, Length: len(entries)}
}
