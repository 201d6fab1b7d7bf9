package script

import (
	"database/sql"
	"fmt"
)

// InternFailure wraps a failure to resolve or insert a script row.
type InternFailure struct {
	Script Script
	Cause  error
}

func (e *InternFailure) Error() string {
	return fmt.Sprintf("script: intern failed for script_hash %x: %v", e.Script.Hash(), e.Cause)
}

func (e *InternFailure) Unwrap() error { return e.Cause }

// Querier is the subset of *sql.DB / *sql.Tx the interner needs, so it can
// run inside the follower's append transaction or standalone.
type Querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// Ensure looks up the script by its (code_hash, hash_type, args) tuple and
// returns its store id, inserting a new row on first sight. Dedup is keyed
// on the tuple rather than the derived hash so that the interner never needs
// to trust a caller-supplied hash.
func Ensure(q Querier, s Script) (int64, error) {
	var id int64
	err := q.QueryRow(
		`SELECT id FROM scripts WHERE code_hash = $1 AND hash_type = $2 AND args = $3`,
		s.CodeHash[:], byte(s.HashType), s.Args,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, &InternFailure{Script: s, Cause: err}
	}

	hash := s.Hash()
	res, err := q.Exec(
		`INSERT INTO scripts (code_hash, hash_type, args, script_hash) VALUES ($1, $2, $3, $4)
		 ON CONFLICT(code_hash, hash_type, args) DO NOTHING`,
		s.CodeHash[:], byte(s.HashType), s.Args, hash[:],
	)
	if err != nil {
		return 0, &InternFailure{Script: s, Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 1 {
		id, err = res.LastInsertId()
		if err == nil && id != 0 {
			return id, nil
		}
	}

	// Either the row already existed (lost the race to a concurrent writer
	// that won't happen under the single-writer follower, but SQLite's
	// driver doesn't always populate LastInsertId on a no-op conflict) or
	// the driver doesn't support LastInsertId (lib/pq): re-select.
	err = q.QueryRow(
		`SELECT id FROM scripts WHERE code_hash = $1 AND hash_type = $2 AND args = $3`,
		s.CodeHash[:], byte(s.HashType), s.Args,
	).Scan(&id)
	if err != nil {
		return 0, &InternFailure{Script: s, Cause: err}
	}
	return id, nil
}
