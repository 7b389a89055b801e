package storage

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the ledger tables.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// times are unix nanoseconds so both drivers agree on the column type
var schema = []string{
	`CREATE TABLE IF NOT EXISTS block (
    block_index BIGINT PRIMARY KEY,
    payload TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS campaign (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    candidates TEXT NOT NULL,
    start_time BIGINT NOT NULL,
    end_time BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS voter (
    campaign_id BIGINT NOT NULL,
    voter_id_hash TEXT NOT NULL,
    voter_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    registered_at BIGINT NOT NULL,
    PRIMARY KEY (campaign_id, voter_id_hash)
)`,
	`CREATE INDEX IF NOT EXISTS idx_voter_email ON voter(campaign_id, email)`,
	`CREATE TABLE IF NOT EXISTS pending_transaction (
    campaign_id BIGINT NOT NULL,
    voter_id TEXT NOT NULL,
    candidate TEXT NOT NULL,
    sequence BIGINT NOT NULL,
    PRIMARY KEY (campaign_id, voter_id)
)`,
}
