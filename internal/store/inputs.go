package store

import (
	"database/sql"
	"fmt"
)

// InsertTransactionInputs bulk-inserts one transaction's input rows,
// including the synthetic cellbase input (which spends nothing but is
// still recorded so the row count matches the wire transaction's inputs).
func (s *Storage) InsertTransactionInputs(tx *sql.Tx, inputs []TransactionInput) error {
	stmt, err := tx.Prepare(
		`INSERT INTO transaction_inputs (transaction_digest_id, previous_tx_hash, previous_index, input_index)
		 VALUES ($1, $2, $3, $4)`,
	)
	if err != nil {
		return fmt.Errorf("store: prepare insert transaction inputs: %w", err)
	}
	defer stmt.Close()

	for _, in := range inputs {
		if _, err := stmt.Exec(in.TransactionDigestID, in.PreviousTxHash[:], in.PreviousIndex, in.InputIndex); err != nil {
			return fmt.Errorf("store: insert transaction input: %w", err)
		}
	}
	return nil
}

// DeleteTransactionInputsForBlock removes every input row belonging to
// transactions in a block, used by rollback.
func (s *Storage) DeleteTransactionInputsForBlock(tx *sql.Tx, blockNumber uint64) error {
	_, err := tx.Exec(
		`DELETE FROM transaction_inputs WHERE transaction_digest_id IN (
			SELECT id FROM transaction_digests WHERE block_number = $1
		)`,
		blockNumber,
	)
	if err != nil {
		return fmt.Errorf("store: delete transaction inputs for block %d: %w", blockNumber, err)
	}
	return nil
}

// SpendersOf returns the transaction_digest_id of every transaction that
// references (prevTxHash, prevIndex) as an input. Append and rollback do
// not use it: append resolves the cell by outpoint, and rollback reads the
// block's input rows directly.
func (s *Storage) SpendersOf(prevTxHash [32]byte, prevIndex uint64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT transaction_digest_id FROM transaction_inputs WHERE previous_tx_hash = $1 AND previous_index = $2`,
		prevTxHash[:], prevIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("store: spenders of %x:%d: %w", prevTxHash, prevIndex, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan spender: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
