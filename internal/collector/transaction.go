package collector

import (
	"context"
	"fmt"

	"github.com/lay2dev/chainindex/internal/codec"
	"github.com/lay2dev/chainindex/internal/rpc"
	"github.com/lay2dev/chainindex/internal/store"
)

// MissingTransactionError reports a tx hash the collector selected that
// the RPC backend no longer has, raised only when SkipMissing is false.
type MissingTransactionError struct {
	TxHash [32]byte
}

func (e *MissingTransactionError) Error() string {
	return fmt.Sprintf("collector: transaction %x not found", e.TxHash)
}

// TransactionFilter accepts up to four independent script-slot
// constraints; at least one must be supplied.
type TransactionFilter struct {
	InputLock  *ScriptFilter
	OutputLock *ScriptFilter
	InputType  *ScriptFilter
	OutputType *ScriptFilter

	// SkipMissing, when false (the default), raises MissingTransactionError
	// if any selected tx hash no longer resolves via RPC. When true, such
	// hashes are dropped silently.
	SkipMissing bool

	// IncludeStatus, when true (the default), yields the full
	// {transaction, tx_status} envelope; when false, only the transaction.
	IncludeStatus bool
}

// Transaction is one yielded result: Status is nil unless IncludeStatus
// was requested.
type Transaction struct {
	Transaction *rpc.Transaction
	Status      *rpc.TxStatus
}

// TransactionCollector intersects the ordered per-filter transaction-id
// sets and fetches bodies from RPC.
type TransactionCollector struct {
	store  *store.Storage
	client *rpc.Client
	filter TransactionFilter
}

// DefaultTransactionFilter returns a TransactionFilter with the documented
// option defaults (SkipMissing: false, IncludeStatus: true) and no
// script-slot constraints; callers fill in at least one slot before use.
func DefaultTransactionFilter() TransactionFilter {
	return TransactionFilter{IncludeStatus: true}
}

// NewTransactionCollector validates filter and prepares a collector. At
// least one of the four script-slot filters must be supplied.
func NewTransactionCollector(st *store.Storage, client *rpc.Client, filter TransactionFilter) (*TransactionCollector, error) {
	if filter.InputLock == nil && filter.OutputLock == nil && filter.InputType == nil && filter.OutputType == nil {
		return nil, &ValidationError{Reason: "at least one of input_lock, output_lock, input_type, output_type must be supplied"}
	}
	for _, f := range []*ScriptFilter{filter.InputLock, filter.OutputLock, filter.InputType, filter.OutputType} {
		if f == nil {
			continue
		}
		if err := validateScript(f.Script); err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
	}
	return &TransactionCollector{store: st, client: client, filter: filter}, nil
}

// ids resolves one optional ScriptFilter slot into its ordered
// transaction_digest_id set, or nil if the slot wasn't supplied.
func (c *TransactionCollector) ids(f *ScriptFilter, scriptType store.ScriptType, ioType store.IOType) ([]int64, error) {
	if f == nil {
		return nil, nil
	}
	scriptIDs, err := resolveScriptIDs(c.store, *f)
	if err != nil {
		return nil, err
	}
	if len(scriptIDs) == 0 {
		return []int64{}, nil
	}
	return c.store.DistinctTransactionIDsForScripts(scriptIDs, scriptType, ioType)
}

// intersect returns the ordered intersection of sets, preserving the order
// of the first one. The first call (started == false) seeds the
// accumulator with set instead of intersecting with an empty start; every
// later call intersects, so an empty or nil set then empties the result.
// Unsupplied filter slots are skipped by the caller and never reach here.
func intersect(acc []int64, started bool, set []int64) ([]int64, bool) {
	if !started {
		return append([]int64(nil), set...), true
	}
	present := make(map[int64]bool, len(set))
	for _, id := range set {
		present[id] = true
	}
	out := acc[:0:0]
	for _, id := range acc {
		if present[id] {
			out = append(out, id)
		}
	}
	return out, true
}

// Collect resolves the intersected transaction id set and fetches each
// surviving transaction's body via RPC, in set order.
func (c *TransactionCollector) Collect(ctx context.Context, fn func(Transaction) (bool, error)) error {
	var acc []int64
	started := false

	sets := []struct {
		filter     *ScriptFilter
		scriptType store.ScriptType
		ioType     store.IOType
	}{
		{c.filter.InputLock, store.ScriptTypeLock, store.IOTypeInput},
		{c.filter.OutputLock, store.ScriptTypeLock, store.IOTypeOutput},
		{c.filter.InputType, store.ScriptTypeType, store.IOTypeInput},
		{c.filter.OutputType, store.ScriptTypeType, store.IOTypeOutput},
	}

	for _, s := range sets {
		if s.filter == nil {
			continue
		}
		ids, err := c.ids(s.filter, s.scriptType, s.ioType)
		if err != nil {
			return err
		}
		acc, started = intersect(acc, started, ids)
	}

	for _, id := range acc {
		hash, err := c.store.TransactionHashByID(id)
		if err != nil {
			return fmt.Errorf("collector: resolve tx hash: %w", err)
		}

		withStatus, err := c.client.GetTransaction(ctx, codec.BytesToHex(hash[:]))
		if err != nil {
			return fmt.Errorf("collector: fetch transaction %x: %w", hash, err)
		}
		if withStatus == nil || withStatus.Transaction == nil {
			if c.filter.SkipMissing {
				continue
			}
			return &MissingTransactionError{TxHash: hash}
		}

		result := Transaction{Transaction: withStatus.Transaction}
		if c.filter.IncludeStatus {
			result.Status = withStatus.TxStatus
		}

		cont, err := fn(result)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}
