package store

const postgresSchema = `
CREATE TABLE IF NOT EXISTS block_digests (
	block_number BIGINT PRIMARY KEY,
	block_hash   BYTEA NOT NULL,
	epoch        BYTEA NOT NULL,
	dao          BYTEA NOT NULL,
	timestamp    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS scripts (
	id          BIGSERIAL PRIMARY KEY,
	code_hash   BYTEA NOT NULL,
	hash_type   SMALLINT NOT NULL,
	args        BYTEA NOT NULL,
	script_hash BYTEA NOT NULL,
	UNIQUE(code_hash, hash_type, args)
);

CREATE TABLE IF NOT EXISTS transaction_digests (
	id            BIGSERIAL PRIMARY KEY,
	tx_hash       BYTEA NOT NULL,
	tx_index      BIGINT NOT NULL,
	output_count  BIGINT NOT NULL,
	block_number  BIGINT NOT NULL,
	UNIQUE(block_number, tx_index),
	UNIQUE(tx_hash)
);

CREATE INDEX IF NOT EXISTS idx_transaction_digests_block ON transaction_digests(block_number, tx_index);

CREATE TABLE IF NOT EXISTS transaction_inputs (
	transaction_digest_id BIGINT NOT NULL,
	previous_tx_hash      BYTEA NOT NULL,
	previous_index        BIGINT NOT NULL,
	input_index           BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transaction_inputs_digest ON transaction_inputs(transaction_digest_id);
CREATE INDEX IF NOT EXISTS idx_transaction_inputs_prev ON transaction_inputs(previous_tx_hash, previous_index);

CREATE TABLE IF NOT EXISTS cells (
	id             BIGSERIAL PRIMARY KEY,
	tx_hash        BYTEA NOT NULL,
	idx            BIGINT NOT NULL,
	block_number   BIGINT NOT NULL,
	tx_index       BIGINT NOT NULL,
	capacity       BIGINT NOT NULL,
	data           BYTEA NOT NULL,
	udt_amount     TEXT NOT NULL,
	lock_script_id BIGINT NOT NULL,
	type_script_id BIGINT,
	consumed       BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE(tx_hash, idx)
);

CREATE INDEX IF NOT EXISTS idx_cells_live_order ON cells(consumed, block_number, tx_index, idx);
CREATE INDEX IF NOT EXISTS idx_cells_lock ON cells(lock_script_id);
CREATE INDEX IF NOT EXISTS idx_cells_type ON cells(type_script_id);

CREATE TABLE IF NOT EXISTS transactions_scripts (
	transaction_digest_id BIGINT NOT NULL,
	script_type           SMALLINT NOT NULL,
	io_type               SMALLINT NOT NULL,
	idx                   BIGINT NOT NULL,
	script_id             BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_scripts_lookup ON transactions_scripts(script_id, script_type, io_type);
CREATE INDEX IF NOT EXISTS idx_transactions_scripts_digest ON transactions_scripts(transaction_digest_id);
`
