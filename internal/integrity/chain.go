package integrity

import "github.com/nlogistics/control-tower/internal/snapshot"

// ChainStore is the subset of *snapshot.Store needed to verify a family's
// chain history.
type ChainStore interface {
	Chain(family string) ([]snapshot.ChainEntry, error)
}

// VerifyChain loads family's full chain and delegates to
// snapshot.VerifyChain, matching §4.8's "chain verification ... first
// entry references GENESIS" contract.
func VerifyChain(store ChainStore, family string) (snapshot.ChainVerification, error) {
	chain, err := store.Chain(family)
	if err != nil {
		return snapshot.ChainVerification{}, err
	}
	return snapshot.VerifyChain(chain), nil
}

// Summary aggregates Detect results across many snapshots (§4.8
// "get_integrity_status" equivalent).
type Summary struct {
	Total    int
	Intact   int
	Tampered int
	Missing  int
	Error    int
	Reports  []Report
}

// DetectAll runs Detect over every name and tallies the outcome.
func (d *Detector) DetectAll(names []string) Summary {
	summary := Summary{Total: len(names)}
	for _, name := range names {
		report := d.Detect(name)
		summary.Reports = append(summary.Reports, report)
		switch report.Status {
		case StatusIntact:
			summary.Intact++
		case StatusTampered:
			summary.Tampered++
		case StatusMissing:
			summary.Missing++
		default:
			summary.Error++
		}
	}
	return summary
}
