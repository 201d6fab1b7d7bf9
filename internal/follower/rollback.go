package follower

import (
	"database/sql"
	"fmt"

	"github.com/lay2dev/chainindex/internal/store"
)

// rollback undoes the current tip block: every cell it consumed is marked
// unconsumed again, its transaction rows are deleted, and its own
// outputs (the cells it produced) disappear along with it.
func (f *Follower) rollback(tip *store.BlockDigest) error {
	tx, err := f.store.DB().Begin()
	if err != nil {
		return &StoreError{Op: "begin rollback", Cause: err}
	}
	defer tx.Rollback()

	digests, err := f.store.TransactionDigestsForBlock(tip.BlockNumber)
	if err != nil {
		return &StoreError{Op: "rollback: load transaction digests", Cause: err}
	}

	for _, d := range digests {
		if err := f.unspendTransaction(tx, d); err != nil {
			return &StoreError{Op: "rollback: unspend transaction", Cause: err}
		}
	}

	if err := f.store.DeleteTransactionScriptsForBlock(tx, tip.BlockNumber); err != nil {
		return &StoreError{Op: "rollback: delete transaction scripts", Cause: err}
	}
	if err := f.store.DeleteTransactionInputsForBlock(tx, tip.BlockNumber); err != nil {
		return &StoreError{Op: "rollback: delete transaction inputs", Cause: err}
	}
	if err := f.store.DeleteCellsForBlock(tx, tip.BlockNumber); err != nil {
		return &StoreError{Op: "rollback: delete cells", Cause: err}
	}
	if err := f.store.DeleteTransactionDigestsForBlock(tx, tip.BlockNumber); err != nil {
		return &StoreError{Op: "rollback: delete transaction digests", Cause: err}
	}
	if err := f.store.DeleteBlockDigest(tx, tip.BlockNumber); err != nil {
		return &StoreError{Op: "rollback: delete block digest", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit rollback", Cause: err}
	}

	f.log.Info("rolled back block", "block_number", tip.BlockNumber)
	return nil
}

// unspendTransaction re-marks every cell one transaction's (non-cellbase)
// inputs had consumed as live again. The input rows themselves are deleted
// in bulk by the caller afterward.
func (f *Follower) unspendTransaction(tx *sql.Tx, d store.TransactionDigest) error {
	if d.TxIndex == 0 {
		return nil
	}

	rows, err := tx.Query(
		`SELECT previous_tx_hash, previous_index FROM transaction_inputs WHERE transaction_digest_id = $1`,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("query inputs: %w", err)
	}

	type outpoint struct {
		hash  []byte
		index uint64
	}
	var outpoints []outpoint
	for rows.Next() {
		var o outpoint
		if err := rows.Scan(&o.hash, &o.index); err != nil {
			rows.Close()
			return fmt.Errorf("scan input: %w", err)
		}
		outpoints = append(outpoints, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, o := range outpoints {
		var h [32]byte
		copy(h[:], o.hash)
		if err := f.store.MarkUnconsumed(tx, h, o.index); err != nil {
			return fmt.Errorf("mark unconsumed: %w", err)
		}
	}
	return nil
}
