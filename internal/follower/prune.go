package follower

import "github.com/lay2dev/chainindex/internal/store"

// Prune runs a prune pass against the current tip immediately, outside the
// append-triggered cadence. Exposed for manual/administrative use and
// tests; the poll loop triggers it automatically every PruneInterval
// blocks from append.
func (f *Follower) Prune() (*store.PruneResult, error) {
	tip, err := f.store.Tip()
	if err != nil {
		return nil, &StoreError{Op: "prune: read tip", Cause: err}
	}
	if tip == nil {
		return &store.PruneResult{}, nil
	}
	res, err := f.store.Prune(tip.BlockNumber, f.cfg.KeepNum)
	if err != nil {
		return nil, &StoreError{Op: "prune", Cause: err}
	}
	return res, nil
}
