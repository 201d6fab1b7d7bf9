package store

import "fmt"

// PruneResult reports how much a prune pass removed, for logging.
type PruneResult struct {
	PruneBelow    uint64
	CellsDeleted  int64
	InputsDeleted int64
}

// Prune deletes consumed cells and their transaction_inputs rows born
// before tip-keepNum. block_digests, transaction_digests, and
// transactions_scripts are retained so transaction/script lookups keep
// working across the pruned window.
func (s *Storage) Prune(tip, keepNum uint64) (*PruneResult, error) {
	if tip <= keepNum {
		return &PruneResult{PruneBelow: 0}, nil
	}
	pruneBelow := tip - keepNum

	cellsDeleted, err := s.DeleteConsumedCellsBelow(pruneBelow)
	if err != nil {
		return nil, fmt.Errorf("store: prune cells: %w", err)
	}

	inputsDeleted, err := s.deleteTransactionInputsBelow(pruneBelow)
	if err != nil {
		return nil, fmt.Errorf("store: prune transaction inputs: %w", err)
	}

	return &PruneResult{
		PruneBelow:    pruneBelow,
		CellsDeleted:  cellsDeleted,
		InputsDeleted: inputsDeleted,
	}, nil
}

func (s *Storage) deleteTransactionInputsBelow(pruneBelow uint64) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM transaction_inputs WHERE transaction_digest_id IN (
			SELECT id FROM transaction_digests WHERE block_number < $1
		)`,
		pruneBelow,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
