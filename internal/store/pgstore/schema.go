package pgstore

// schema is applied in order by InitSchema. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_number  TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		balance         NUMERIC(18, 2) NOT NULL,
		password_hash   TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user',
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		is_locked       BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id             BIGSERIAL PRIMARY KEY,
		account_number TEXT NOT NULL REFERENCES accounts (account_number) ON DELETE CASCADE,
		occurred_at    TIMESTAMPTZ NOT NULL,
		kind           TEXT NOT NULL,
		amount         NUMERIC(18, 2) NOT NULL,
		balance_after  NUMERIC(18, 2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_number, occurred_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id          BIGSERIAL PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		admin       TEXT NOT NULL,
		action      TEXT NOT NULL,
		target      TEXT NOT NULL,
		details     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS system_config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

const seedInterestRate = `INSERT INTO system_config (key, value) VALUES ('interest_rate', $1) ON CONFLICT (key) DO NOTHING`
