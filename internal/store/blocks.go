package store

import (
	"database/sql"
	"fmt"
)

// InsertBlockDigest records a block on the best chain. Called once per
// append, inside the same transaction as its transaction/cell rows.
func (s *Storage) InsertBlockDigest(tx *sql.Tx, d BlockDigest) error {
	_, err := tx.Exec(
		`INSERT INTO block_digests (block_number, block_hash, epoch, dao, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.BlockNumber, d.BlockHash[:], d.Epoch[:], d.Dao[:], d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("store: insert block digest %d: %w", d.BlockNumber, err)
	}
	return nil
}

// DeleteBlockDigest removes a block digest row, used by rollback.
func (s *Storage) DeleteBlockDigest(tx *sql.Tx, blockNumber uint64) error {
	_, err := tx.Exec(`DELETE FROM block_digests WHERE block_number = $1`, blockNumber)
	if err != nil {
		return fmt.Errorf("store: delete block digest %d: %w", blockNumber, err)
	}
	return nil
}

// GetBlockDigest fetches a single retained block by height.
func (s *Storage) GetBlockDigest(blockNumber uint64) (*BlockDigest, error) {
	var d BlockDigest
	var hash, epoch, dao []byte
	err := s.db.QueryRow(
		`SELECT block_number, block_hash, epoch, dao, timestamp FROM block_digests WHERE block_number = $1`,
		blockNumber,
	).Scan(&d.BlockNumber, &hash, &epoch, &dao, &d.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get block digest %d: %w", blockNumber, err)
	}
	copy(d.BlockHash[:], hash)
	copy(d.Epoch[:], epoch)
	copy(d.Dao[:], dao)
	return &d, nil
}

// Tip returns the highest retained block digest, or nil if the store is
// empty (the follower has not appended a genesis block yet).
func (s *Storage) Tip() (*BlockDigest, error) {
	var d BlockDigest
	var hash, epoch, dao []byte
	err := s.db.QueryRow(
		`SELECT block_number, block_hash, epoch, dao, timestamp FROM block_digests
		 ORDER BY block_number DESC LIMIT 1`,
	).Scan(&d.BlockNumber, &hash, &epoch, &dao, &d.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get tip: %w", err)
	}
	copy(d.BlockHash[:], hash)
	copy(d.Epoch[:], epoch)
	copy(d.Dao[:], dao)
	return &d, nil
}
