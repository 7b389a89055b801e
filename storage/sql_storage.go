package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"voting-ledger/models"
)

// SQLStore persists the ledger in SQLite or PostgreSQL
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens the database and creates the schema. kind is
// TypeSQLite or TypePostgres.
func NewSQLStore(kind string, dsn string) (*SQLStore, error) {
	driver := "postgres"
	if kind == TypeSQLite {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	if kind == TypeSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) LoadChain() ([]*models.Block, error) {
	rows, err := s.db.Query(`SELECT payload FROM block ORDER BY block_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	blocks := make([]*models.Block, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var block models.Block
		if err := json.Unmarshal([]byte(payload), &block); err != nil {
			return nil, fmt.Errorf("failed to unmarshal block: %w", err)
		}
		blocks = append(blocks, &block)
	}
	return blocks, rows.Err()
}

func (s *SQLStore) SaveBlock(block *models.Block) error {
	payload, err := json.Marshal(block)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO block (block_index, payload) VALUES ($1, $2)`, block.Index, string(payload)); err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	for _, t := range block.Transactions {
		if t.IsReward() {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM pending_transaction WHERE campaign_id = $1 AND voter_id = $2`, t.CampaignID, t.VoterID); err != nil {
			return fmt.Errorf("failed to release pending transaction: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) LoadCampaigns() ([]*models.Campaign, error) {
	rows, err := s.db.Query(`SELECT id, name, candidates, start_time, end_time FROM campaign ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]*models.Campaign, 0)
	for rows.Next() {
		var (
			c          models.Campaign
			candidates string
			start, end int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &candidates, &start, &end); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(candidates), &c.Candidates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
		}
		c.StartTime = time.Unix(0, start).UTC()
		c.EndTime = time.Unix(0, end).UTC()
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}

func (s *SQLStore) SaveCampaign(campaign *models.Campaign) error {
	candidates, err := json.Marshal(campaign.Candidates)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO campaign (id, name, candidates, start_time, end_time) VALUES ($1, $2, $3, $4, $5)`,
		campaign.ID, campaign.Name, string(candidates), campaign.StartTime.UnixNano(), campaign.EndTime.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadVoters() ([]*models.Voter, error) {
	rows, err := s.db.Query(`SELECT campaign_id, voter_id_hash, voter_id, name, email, password_hash, has_voted, registered_at
FROM voter ORDER BY campaign_id, registered_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voters: %w", err)
	}
	defer rows.Close()

	voters := make([]*models.Voter, 0)
	for rows.Next() {
		var (
			v            models.Voter
			registeredAt int64
		)
		if err := rows.Scan(&v.CampaignID, &v.VoterIDHash, &v.VoterID, &v.Name, &v.Email, &v.CredentialHash, &v.HasVoted, &registeredAt); err != nil {
			return nil, err
		}
		v.RegisteredAt = time.Unix(0, registeredAt).UTC()
		voters = append(voters, &v)
	}
	return voters, rows.Err()
}

func (s *SQLStore) SaveVoter(voter *models.Voter) error {
	_, err := s.db.Exec(`INSERT INTO voter (campaign_id, voter_id_hash, voter_id, name, email, password_hash, has_voted, registered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (campaign_id, voter_id_hash) DO UPDATE SET has_voted = excluded.has_voted`,
		voter.CampaignID, voter.VoterIDHash, voter.VoterID, voter.Name, voter.Email, voter.CredentialHash, voter.HasVoted, voter.RegisteredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save voter: %w", err)
	}
	return nil
}

func (s *SQLStore) SaveVote(voter *models.Voter, pending models.PendingTransaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE voter SET has_voted = $1 WHERE campaign_id = $2 AND voter_id_hash = $3`,
		voter.HasVoted, voter.CampaignID, voter.VoterIDHash); err != nil {
		return fmt.Errorf("failed to mark voter: %w", err)
	}

	t := pending.Transaction
	if _, err := tx.Exec(`INSERT INTO pending_transaction (campaign_id, voter_id, candidate, sequence) VALUES ($1, $2, $3, $4)`,
		t.CampaignID, t.VoterID, t.Candidate, pending.Sequence); err != nil {
		return fmt.Errorf("failed to insert pending transaction: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) LoadPending() ([]models.PendingTransaction, error) {
	rows, err := s.db.Query(`SELECT campaign_id, voter_id, candidate, sequence FROM pending_transaction ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transactions: %w", err)
	}
	defer rows.Close()

	pending := make([]models.PendingTransaction, 0)
	for rows.Next() {
		var p models.PendingTransaction
		if err := rows.Scan(&p.Transaction.CampaignID, &p.Transaction.VoterID, &p.Transaction.Candidate, &p.Sequence); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
