package store

import (
	"database/sql"
	"fmt"
)

// GetScriptByID resolves an interned script row by id, used by collectors
// to render the lock/type script of a matched cell.
func (s *Storage) GetScriptByID(id int64) (*ScriptRow, error) {
	var r ScriptRow
	var codeHash, args, scriptHash []byte
	err := s.db.QueryRow(
		`SELECT id, code_hash, hash_type, args, script_hash FROM scripts WHERE id = $1`,
		id,
	).Scan(&r.ID, &codeHash, &r.HashType, &args, &scriptHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get script %d: %w", id, err)
	}
	copy(r.CodeHash[:], codeHash)
	r.Args = args
	copy(r.ScriptHash[:], scriptHash)
	return &r, nil
}

// FindScriptIDs resolves every scripts.id whose (code_hash, hash_type) match
// and whose args satisfy the given predicate, applied in Go after a coarse
// SQL prefilter on (code_hash, hash_type). Used to compile a lock/type
// filter with an args-prefix or args-length constraint into a concrete set
// of script ids for the cell/transaction collectors.
func (s *Storage) FindScriptIDs(codeHash [32]byte, hashType uint8, match func(args []byte) bool) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id, args FROM scripts WHERE code_hash = $1 AND hash_type = $2`,
		codeHash[:], hashType,
	)
	if err != nil {
		return nil, fmt.Errorf("store: find script ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		var args []byte
		if err := rows.Scan(&id, &args); err != nil {
			return nil, fmt.Errorf("store: scan script id: %w", err)
		}
		if match == nil || match(args) {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}
