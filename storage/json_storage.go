package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"voting-ledger/models"
)

const (
	chainFile     = "chain.json"
	campaignsFile = "campaigns.json"
	votersFile    = "voters.json"
	pendingFile   = "pending.json"
)

// JSONStore keeps the whole ledger in memory and rewrites one file per
// collection on every change
type JSONStore struct {
	basePath  string
	mu        sync.RWMutex
	blocks    []*models.Block
	campaigns []*models.Campaign
	voters    map[string]*models.Voter
	pending   map[string]models.PendingTransaction
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	// Create storage directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store := &JSONStore{
		basePath: basePath,
		voters:   make(map[string]*models.Voter),
		pending:  make(map[string]models.PendingTransaction),
	}

	if err := store.loadFile(chainFile, &store.blocks); err != nil {
		return nil, err
	}
	if err := store.loadFile(campaignsFile, &store.campaigns); err != nil {
		return nil, err
	}

	var voters []*models.Voter
	if err := store.loadFile(votersFile, &voters); err != nil {
		return nil, err
	}
	for _, v := range voters {
		store.voters[voterKey(v.CampaignID, v.VoterIDHash)] = v
	}

	var pending []models.PendingTransaction
	if err := store.loadFile(pendingFile, &pending); err != nil {
		return nil, err
	}
	for _, p := range pending {
		store.pending[pendingKey(p.Transaction.CampaignID, p.Transaction.VoterID)] = p
	}

	return store, nil
}

func (s *JSONStore) LoadChain() ([]*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]*models.Block, len(s.blocks))
	for i, b := range s.blocks {
		blocks[i] = b.Copy()
	}
	return blocks, nil
}

func (s *JSONStore) SaveBlock(block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := append(s.blocks[:len(s.blocks):len(s.blocks)], block.Copy())
	if err := s.saveFile(chainFile, blocks); err != nil {
		return err
	}
	s.blocks = blocks

	removed := false
	for _, tx := range block.Transactions {
		key := pendingKey(tx.CampaignID, tx.VoterID)
		if _, ok := s.pending[key]; ok {
			delete(s.pending, key)
			removed = true
		}
	}
	if !removed {
		return nil
	}

	// the block is durable at this point; a stale pending.json is
	// rewritten by the next vote and sealed rows are dropped at startup
	_ = s.saveFile(pendingFile, s.sortedPending())
	return nil
}

func (s *JSONStore) LoadCampaigns() ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaigns := make([]*models.Campaign, len(s.campaigns))
	for i, c := range s.campaigns {
		copied := *c
		campaigns[i] = &copied
	}
	return campaigns, nil
}

func (s *JSONStore) SaveCampaign(campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *campaign
	campaigns := append(s.campaigns[:len(s.campaigns):len(s.campaigns)], &copied)
	if err := s.saveFile(campaignsFile, campaigns); err != nil {
		return err
	}
	s.campaigns = campaigns
	return nil
}

func (s *JSONStore) LoadVoters() ([]*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedVoters(s.voters), nil
}

func (s *JSONStore) SaveVoter(voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putVoter(voter)
}

// SaveVote writes the pending transaction before the voter flag, so a
// crash between the two files leaves a transaction the service can
// reconcile rather than a voter marked with no vote. A failed voter write
// withdraws the transaction again.
func (s *JSONStore) SaveVote(voter *models.Voter, pending models.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pendingKey(pending.Transaction.CampaignID, pending.Transaction.VoterID)
	s.pending[key] = pending
	if err := s.saveFile(pendingFile, s.sortedPending()); err != nil {
		delete(s.pending, key)
		return err
	}

	if err := s.putVoter(voter); err != nil {
		delete(s.pending, key)
		if rollbackErr := s.saveFile(pendingFile, s.sortedPending()); rollbackErr != nil {
			return fmt.Errorf("%w (withdraw pending: %s)", err, rollbackErr)
		}
		return err
	}
	return nil
}

func (s *JSONStore) LoadPending() ([]models.PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPending(), nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) putVoter(voter *models.Voter) error {
	key := voterKey(voter.CampaignID, voter.VoterIDHash)
	previous, existed := s.voters[key]

	s.voters[key] = voter.Copy()
	if err := s.saveFile(votersFile, s.sortedVoters(s.voters)); err != nil {
		if existed {
			s.voters[key] = previous
		} else {
			delete(s.voters, key)
		}
		return err
	}
	return nil
}

func (s *JSONStore) sortedVoters(voters map[string]*models.Voter) []*models.Voter {
	list := make([]*models.Voter, 0, len(voters))
	for _, v := range voters {
		list = append(list, v.Copy())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CampaignID != list[j].CampaignID {
			return list[i].CampaignID < list[j].CampaignID
		}
		if !list[i].RegisteredAt.Equal(list[j].RegisteredAt) {
			return list[i].RegisteredAt.Before(list[j].RegisteredAt)
		}
		return list[i].VoterID < list[j].VoterID
	})
	return list
}

func (s *JSONStore) sortedPending() []models.PendingTransaction {
	list := make([]models.PendingTransaction, 0, len(s.pending))
	for _, p := range s.pending {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list
}

func (s *JSONStore) loadFile(name string, v interface{}) error {
	path := filepath.Join(s.basePath, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) saveFile(name string, v interface{}) error {
	path := filepath.Join(s.basePath, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Write to temporary file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	// Atomic rename to ensure consistency
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}
