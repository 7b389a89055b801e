// Package storage persists the ledger: blocks, campaigns, voters and the
// pending pool. Every backend must make a write durable before returning,
// since callers only publish state after a successful save.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"voting-ledger/fault"
	"voting-ledger/models"
)

// backend names accepted by Open
const (
	TypeJSON     = "json"
	TypeLevelDB  = "leveldb"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Store is implemented by every backend
type Store interface {
	// blocks in index order
	LoadChain() ([]*models.Block, error)

	// SaveBlock appends a block and releases its transactions from the
	// pending set in one write
	SaveBlock(block *models.Block) error

	LoadCampaigns() ([]*models.Campaign, error)
	SaveCampaign(campaign *models.Campaign) error

	LoadVoters() ([]*models.Voter, error)

	// SaveVoter records a registration, or updates the voted flag of an
	// existing one
	SaveVoter(voter *models.Voter) error

	// SaveVote marks the voter as voted and adds the pending transaction
	// in one write
	SaveVote(voter *models.Voter, pending models.PendingTransaction) error

	// pending transactions in sequence order
	LoadPending() ([]models.PendingTransaction, error)

	Close() error
}

// Options selects and locates a backend
type Options struct {
	Type      string
	Directory string
	URL       string
}

// Open creates the chosen backend, creating its files or schema if needed
func Open(options Options) (Store, error) {
	log := logger.New("storage")

	if options.Directory != "" {
		if err := os.MkdirAll(options.Directory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var (
		store Store
		err   error
	)
	switch options.Type {
	case TypeJSON, "":
		store, err = NewJSONStore(options.Directory)
	case TypeLevelDB:
		store, err = NewLevelDBStore(filepath.Join(options.Directory, "ledger.leveldb"))
	case TypeSQLite:
		dsn := options.URL
		if dsn == "" {
			dsn = filepath.Join(options.Directory, "ledger.db")
		}
		store, err = NewSQLStore(TypeSQLite, dsn)
	case TypePostgres:
		if options.URL == "" {
			return nil, fault.ErrMissingDatabaseURL
		}
		store, err = NewSQLStore(TypePostgres, options.URL)
	default:
		return nil, fault.ErrInvalidDatabaseType
	}
	if err != nil {
		log.Errorf("open %s store: %s", options.Type, err)
		return nil, fmt.Errorf("open %s store: %w", options.Type, err)
	}

	log.Infof("opened %s store", options.Type)
	return store, nil
}

// pendingKey identifies a pending transaction; a voter has at most one
// per campaign
func pendingKey(campaignID uint64, voterID string) string {
	return fmt.Sprintf("%d/%s", campaignID, voterID)
}

// voterKey identifies a registration
func voterKey(campaignID uint64, voterIDHash string) string {
	return fmt.Sprintf("%d/%s", campaignID, voterIDHash)
}
