package store

import (
	"database/sql"
	"fmt"
)

// InsertTransactionScripts bulk-inserts the lock/type, input/output script
// associations for one transaction.
func (s *Storage) InsertTransactionScripts(tx *sql.Tx, rows []TransactionScript) error {
	stmt, err := tx.Prepare(
		`INSERT INTO transactions_scripts (transaction_digest_id, script_type, io_type, idx, script_id)
		 VALUES ($1, $2, $3, $4, $5)`,
	)
	if err != nil {
		return fmt.Errorf("store: prepare insert transaction scripts: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.TransactionDigestID, r.ScriptType, r.IOType, r.Index, r.ScriptID); err != nil {
			return fmt.Errorf("store: insert transaction script: %w", err)
		}
	}
	return nil
}

// DeleteTransactionScriptsForBlock removes every transactions_scripts row
// belonging to transactions in a block, used by rollback.
func (s *Storage) DeleteTransactionScriptsForBlock(tx *sql.Tx, blockNumber uint64) error {
	_, err := tx.Exec(
		`DELETE FROM transactions_scripts WHERE transaction_digest_id IN (
			SELECT id FROM transaction_digests WHERE block_number = $1
		)`,
		blockNumber,
	)
	if err != nil {
		return fmt.Errorf("store: delete transaction scripts for block %d: %w", blockNumber, err)
	}
	return nil
}

// DistinctTransactionIDsForScripts returns, for a given (script_type,
// io_type) slot, the distinct transaction_digest_ids referencing any of
// scriptIDs, ordered by first appearance (block_number, tx_index). This is
// the per-filter ordered set the Transaction Collector intersects.
func (s *Storage) DistinctTransactionIDsForScripts(scriptIDs []int64, scriptType ScriptType, ioType IOType) ([]int64, error) {
	if len(scriptIDs) == 0 {
		return nil, nil
	}
	query, args := transactionIDsForScriptsQuery(scriptIDs, scriptType, ioType)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: distinct transaction ids for scripts: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan transaction id: %w", err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, rows.Err()
}

// transactionIDsForScriptsQuery builds the join positioning every matching
// transaction by (block_number, tx_index). The rows carry duplicates when a
// transaction references several of the scripts; the caller deduplicates in
// order. No SELECT DISTINCT here: Postgres requires a DISTINCT query's
// ORDER BY expressions to appear in the select list, and the ordering
// columns are not part of the result.
func transactionIDsForScriptsQuery(scriptIDs []int64, scriptType ScriptType, ioType IOType) (string, []any) {
	ph, args, n := inPlaceholders(scriptIDs, 1)
	args = append(args, scriptType, ioType)
	query := fmt.Sprintf(
		`SELECT d.id FROM transactions_scripts ts
		 JOIN transaction_digests d ON d.id = ts.transaction_digest_id
		 WHERE ts.script_id IN %s AND ts.script_type = $%d AND ts.io_type = $%d
		 ORDER BY d.block_number ASC, d.tx_index ASC`,
		ph, n, n+1,
	)
	return query, args
}

// TransactionHashByID resolves a transaction_digests.id to its tx_hash, used
// to turn the intersected id set into RPC lookup keys.
func (s *Storage) TransactionHashByID(id int64) ([32]byte, error) {
	var hash []byte
	var out [32]byte
	err := s.db.QueryRow(`SELECT tx_hash FROM transaction_digests WHERE id = $1`, id).Scan(&hash)
	if err != nil {
		return out, fmt.Errorf("store: transaction hash by id %d: %w", id, err)
	}
	copy(out[:], hash)
	return out, nil
}
