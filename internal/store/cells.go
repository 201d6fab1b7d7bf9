package store

import (
	"database/sql"
	"fmt"
)

// InsertCell records one transaction output as a fresh, unconsumed cell.
func (s *Storage) InsertCell(tx *sql.Tx, c Cell) error {
	data := c.Data
	if data == nil {
		// The data column is NOT NULL: absent output data is the empty byte
		// string, never NULL.
		data = []byte{}
	}
	_, err := tx.Exec(
		`INSERT INTO cells (tx_hash, idx, block_number, tx_index, capacity, data, udt_amount, lock_script_id, type_script_id, consumed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.TxHash[:], c.Index, c.BlockNumber, c.TxIndex, c.Capacity, data, c.UDTAmount, c.LockScriptID, c.TypeScriptID, false,
	)
	if err != nil {
		return fmt.Errorf("store: insert cell %x:%d: %w", c.TxHash, c.Index, err)
	}
	return nil
}

// GetCellByOutpoint fetches a cell by (tx_hash, index), regardless of its
// consumed state, used to resolve spent inputs at append time.
func (s *Storage) GetCellByOutpoint(tx *sql.Tx, txHash [32]byte, index uint64) (*Cell, error) {
	var c Cell
	var hash, data []byte
	var typeID sql.NullInt64
	var consumed bool
	err := tx.QueryRow(
		`SELECT id, tx_hash, idx, block_number, tx_index, capacity, data, udt_amount, lock_script_id, type_script_id, consumed
		 FROM cells WHERE tx_hash = $1 AND idx = $2`,
		txHash[:], index,
	).Scan(&c.ID, &hash, &c.Index, &c.BlockNumber, &c.TxIndex, &c.Capacity, &data, &c.UDTAmount, &c.LockScriptID, &typeID, &consumed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get cell %x:%d: %w", txHash, index, err)
	}
	copy(c.TxHash[:], hash)
	c.Data = data
	c.Consumed = consumed
	if typeID.Valid {
		v := typeID.Int64
		c.TypeScriptID = &v
	}
	return &c, nil
}

// MarkConsumed flips a cell's consumed flag to true, called when its
// outpoint is referenced by a non-cellbase input.
func (s *Storage) MarkConsumed(tx *sql.Tx, txHash [32]byte, index uint64) error {
	_, err := tx.Exec(`UPDATE cells SET consumed = true WHERE tx_hash = $1 AND idx = $2`, txHash[:], index)
	if err != nil {
		return fmt.Errorf("store: mark consumed %x:%d: %w", txHash, index, err)
	}
	return nil
}

// MarkUnconsumed flips a cell's consumed flag back to false, used by
// rollback to undo a spend recorded in the block being removed.
func (s *Storage) MarkUnconsumed(tx *sql.Tx, txHash [32]byte, index uint64) error {
	_, err := tx.Exec(`UPDATE cells SET consumed = false WHERE tx_hash = $1 AND idx = $2`, txHash[:], index)
	if err != nil {
		return fmt.Errorf("store: mark unconsumed %x:%d: %w", txHash, index, err)
	}
	return nil
}

// DeleteCellsForBlock removes every cell produced by a block, used by
// rollback (outputs of the rolled-back block simply disappear).
func (s *Storage) DeleteCellsForBlock(tx *sql.Tx, blockNumber uint64) error {
	_, err := tx.Exec(`DELETE FROM cells WHERE block_number = $1`, blockNumber)
	if err != nil {
		return fmt.Errorf("store: delete cells for block %d: %w", blockNumber, err)
	}
	return nil
}

// DeleteConsumedCellsBelow removes consumed cells born before pruneBelow,
// part of prune().
func (s *Storage) DeleteConsumedCellsBelow(pruneBelow uint64) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM cells WHERE consumed = true AND block_number < $1`, pruneBelow)
	if err != nil {
		return 0, fmt.Errorf("store: delete consumed cells below %d: %w", pruneBelow, err)
	}
	return res.RowsAffected()
}

// CellScanFilter names the SQL fragments a compiled Cell Collector query
// needs, so store stays the only package that knows the cells table's
// column names.
type CellScanFilter struct {
	LockScriptIDs []int64 // nil means "no lock constraint"
	TypeScriptIDs []int64 // nil means "no type constraint"
	RequireNoType bool    // type = "empty": type_script_id IS NULL
	Data          []byte  // nil means "no data constraint"
	HasData       bool    // distinguishes "" (empty-data sentinel) from "no constraint"
}

// ScanLiveCells runs the compiled filter against the cells table, ordered
// by (block_number, tx_index, idx) as required by the collector's
// determinism contract, and returns matching rows via fn until exhausted
// or fn returns false.
func (s *Storage) ScanLiveCells(f CellScanFilter, fn func(Cell) (bool, error)) error {
	query := `SELECT id, tx_hash, idx, block_number, tx_index, capacity, data, udt_amount, lock_script_id, type_script_id, consumed
	          FROM cells WHERE consumed = false`
	var args []any
	n := 1

	if f.LockScriptIDs != nil {
		if len(f.LockScriptIDs) == 0 {
			// The filter's lock script matched no interned script row: no
			// cell can satisfy it.
			return nil
		}
		ph, newArgs, newN := inPlaceholders(f.LockScriptIDs, n)
		query += " AND lock_script_id IN " + ph
		args = append(args, newArgs...)
		n = newN
	}

	if f.RequireNoType {
		query += " AND type_script_id IS NULL"
	} else if f.TypeScriptIDs != nil {
		if len(f.TypeScriptIDs) == 0 {
			return nil
		}
		ph, newArgs, newN := inPlaceholders(f.TypeScriptIDs, n)
		query += " AND type_script_id IN " + ph
		args = append(args, newArgs...)
		n = newN
	}

	if f.HasData {
		query += fmt.Sprintf(" AND data = $%d", n)
		args = append(args, f.Data)
		n++
	}

	query += " ORDER BY block_number ASC, tx_index ASC, idx ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("store: scan live cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Cell
		var hash, data []byte
		var typeID sql.NullInt64
		var consumed bool
		if err := rows.Scan(&c.ID, &hash, &c.Index, &c.BlockNumber, &c.TxIndex, &c.Capacity, &data, &c.UDTAmount, &c.LockScriptID, &typeID, &consumed); err != nil {
			return fmt.Errorf("store: scan cell row: %w", err)
		}
		copy(c.TxHash[:], hash)
		c.Data = data
		c.Consumed = consumed
		if typeID.Valid {
			v := typeID.Int64
			c.TypeScriptID = &v
		}
		cont, err := fn(c)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return rows.Err()
}

// CountLiveCells is ScanLiveCells's cardinality-only counterpart, used by
// the collector's count() operation.
func (s *Storage) CountLiveCells(f CellScanFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM cells WHERE consumed = false`
	var args []any
	n := 1

	if f.LockScriptIDs != nil {
		if len(f.LockScriptIDs) == 0 {
			return 0, nil
		}
		ph, newArgs, newN := inPlaceholders(f.LockScriptIDs, n)
		query += " AND lock_script_id IN " + ph
		args = append(args, newArgs...)
		n = newN
	}
	if f.RequireNoType {
		query += " AND type_script_id IS NULL"
	} else if f.TypeScriptIDs != nil {
		if len(f.TypeScriptIDs) == 0 {
			return 0, nil
		}
		ph, newArgs, newN := inPlaceholders(f.TypeScriptIDs, n)
		query += " AND type_script_id IN " + ph
		args = append(args, newArgs...)
		n = newN
	}
	if f.HasData {
		query += fmt.Sprintf(" AND data = $%d", n)
		args = append(args, f.Data)
		n++
	}

	var count int64
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count live cells: %w", err)
	}
	return count, nil
}

// inPlaceholders renders a "($n, $n+1, ...)" list for ids, starting the
// placeholder numbering at startN, and returns the next free placeholder
// number.
func inPlaceholders(ids []int64, startN int) (string, []any, int) {
	ph := "("
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			ph += ", "
		}
		ph += fmt.Sprintf("$%d", startN+i)
		args[i] = id
	}
	ph += ")"
	return ph, args, startN + len(ids)
}
