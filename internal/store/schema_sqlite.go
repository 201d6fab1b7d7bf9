package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS block_digests (
	block_number INTEGER PRIMARY KEY,
	block_hash   BLOB NOT NULL,
	epoch        BLOB NOT NULL,
	dao          BLOB NOT NULL,
	timestamp    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scripts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	code_hash   BLOB NOT NULL,
	hash_type   INTEGER NOT NULL,
	args        BLOB NOT NULL,
	script_hash BLOB NOT NULL,
	UNIQUE(code_hash, hash_type, args)
);

CREATE TABLE IF NOT EXISTS transaction_digests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tx_hash       BLOB NOT NULL,
	tx_index      INTEGER NOT NULL,
	output_count  INTEGER NOT NULL,
	block_number  INTEGER NOT NULL,
	UNIQUE(block_number, tx_index),
	UNIQUE(tx_hash)
);

CREATE INDEX IF NOT EXISTS idx_transaction_digests_block ON transaction_digests(block_number, tx_index);

CREATE TABLE IF NOT EXISTS transaction_inputs (
	transaction_digest_id INTEGER NOT NULL,
	previous_tx_hash      BLOB NOT NULL,
	previous_index        INTEGER NOT NULL,
	input_index           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transaction_inputs_digest ON transaction_inputs(transaction_digest_id);
CREATE INDEX IF NOT EXISTS idx_transaction_inputs_prev ON transaction_inputs(previous_tx_hash, previous_index);

CREATE TABLE IF NOT EXISTS cells (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	tx_hash        BLOB NOT NULL,
	idx            INTEGER NOT NULL,
	block_number   INTEGER NOT NULL,
	tx_index       INTEGER NOT NULL,
	capacity       INTEGER NOT NULL,
	data           BLOB NOT NULL,
	udt_amount     TEXT NOT NULL,
	lock_script_id INTEGER NOT NULL,
	type_script_id INTEGER,
	consumed       INTEGER NOT NULL DEFAULT 0,
	UNIQUE(tx_hash, idx)
);

CREATE INDEX IF NOT EXISTS idx_cells_live_order ON cells(consumed, block_number, tx_index, idx);
CREATE INDEX IF NOT EXISTS idx_cells_lock ON cells(lock_script_id);
CREATE INDEX IF NOT EXISTS idx_cells_type ON cells(type_script_id);

CREATE TABLE IF NOT EXISTS transactions_scripts (
	transaction_digest_id INTEGER NOT NULL,
	script_type           INTEGER NOT NULL,
	io_type               INTEGER NOT NULL,
	idx                   INTEGER NOT NULL,
	script_id             INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_scripts_lookup ON transactions_scripts(script_id, script_type, io_type);
CREATE INDEX IF NOT EXISTS idx_transactions_scripts_digest ON transactions_scripts(transaction_digest_id);
`
