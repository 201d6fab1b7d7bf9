package store

import (
	"database/sql"
	"fmt"
)

// InsertTransactionDigest records one transaction's position within a block
// and returns its store id, used as the foreign key for its inputs, cells,
// and script references.
func (s *Storage) InsertTransactionDigest(tx *sql.Tx, d TransactionDigest) (int64, error) {
	query := `INSERT INTO transaction_digests (tx_hash, tx_index, output_count, block_number)
	          VALUES ($1, $2, $3, $4)`

	if s.driver == DriverPostgres {
		var id int64
		err := tx.QueryRow(query+" RETURNING id", d.TxHash[:], d.TxIndex, d.OutputCount, d.BlockNumber).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("store: insert transaction digest %x: %w", d.TxHash, err)
		}
		return id, nil
	}

	res, err := tx.Exec(query, d.TxHash[:], d.TxIndex, d.OutputCount, d.BlockNumber)
	if err != nil {
		return 0, fmt.Errorf("store: insert transaction digest %x: %w", d.TxHash, err)
	}
	return res.LastInsertId()
}

// DeleteTransactionDigestsForBlock removes every transaction digest row for
// a block, used by rollback.
func (s *Storage) DeleteTransactionDigestsForBlock(tx *sql.Tx, blockNumber uint64) error {
	_, err := tx.Exec(`DELETE FROM transaction_digests WHERE block_number = $1`, blockNumber)
	if err != nil {
		return fmt.Errorf("store: delete transaction digests for block %d: %w", blockNumber, err)
	}
	return nil
}

// TransactionDigestsForBlock returns every retained transaction in a block,
// ordered by tx_index, used by rollback to reconstruct what must be undone.
func (s *Storage) TransactionDigestsForBlock(blockNumber uint64) ([]TransactionDigest, error) {
	rows, err := s.db.Query(
		`SELECT id, tx_hash, tx_index, output_count, block_number FROM transaction_digests
		 WHERE block_number = $1 ORDER BY tx_index ASC`,
		blockNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("store: transaction digests for block %d: %w", blockNumber, err)
	}
	defer rows.Close()

	var out []TransactionDigest
	for rows.Next() {
		var d TransactionDigest
		var hash []byte
		if err := rows.Scan(&d.ID, &hash, &d.TxIndex, &d.OutputCount, &d.BlockNumber); err != nil {
			return nil, fmt.Errorf("store: scan transaction digest: %w", err)
		}
		copy(d.TxHash[:], hash)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetTransactionDigestByHash looks up a transaction's store id and block
// position by its hash, or returns nil if no such transaction is retained.
func (s *Storage) GetTransactionDigestByHash(txHash [32]byte) (*TransactionDigest, error) {
	var d TransactionDigest
	var hash []byte
	err := s.db.QueryRow(
		`SELECT id, tx_hash, tx_index, output_count, block_number FROM transaction_digests WHERE tx_hash = $1`,
		txHash[:],
	).Scan(&d.ID, &hash, &d.TxIndex, &d.OutputCount, &d.BlockNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get transaction digest %x: %w", txHash, err)
	}
	copy(d.TxHash[:], hash)
	return &d, nil
}
