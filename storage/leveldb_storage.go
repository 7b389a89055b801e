package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"voting-ledger/models"
)

// key prefixes, one per collection
const (
	prefixBlock    = 'B'
	prefixCampaign = 'C'
	prefixVoter    = 'V'
	prefixPending  = 'P'
)

var syncWrite = &ldb_opt.WriteOptions{Sync: true}

// LevelDBStore keeps each record under a prefixed key. Blocks and
// campaigns use big-endian numeric keys so iteration returns them in order.
type LevelDBStore struct {
	db *leveldb.DB
}

func NewLevelDBStore(name string) (*LevelDBStore, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}

	db, err := leveldb.OpenFile(name, opt)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func numericKey(prefix byte, n uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], n)
	return key
}

func stringKey(prefix byte, s string) []byte {
	return append([]byte{prefix}, s...)
}

func (l *LevelDBStore) LoadChain() ([]*models.Block, error) {
	blocks := make([]*models.Block, 0)
	err := l.each(prefixBlock, func(value []byte) error {
		var block models.Block
		if err := json.Unmarshal(value, &block); err != nil {
			return err
		}
		blocks = append(blocks, &block)
		return nil
	})
	return blocks, err
}

func (l *LevelDBStore) SaveBlock(block *models.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(numericKey(prefixBlock, block.Index), data)
	for _, tx := range block.Transactions {
		batch.Delete(stringKey(prefixPending, pendingKey(tx.CampaignID, tx.VoterID)))
	}
	return l.db.Write(batch, syncWrite)
}

func (l *LevelDBStore) LoadCampaigns() ([]*models.Campaign, error) {
	campaigns := make([]*models.Campaign, 0)
	err := l.each(prefixCampaign, func(value []byte) error {
		var campaign models.Campaign
		if err := json.Unmarshal(value, &campaign); err != nil {
			return err
		}
		campaigns = append(campaigns, &campaign)
		return nil
	})
	return campaigns, err
}

func (l *LevelDBStore) SaveCampaign(campaign *models.Campaign) error {
	data, err := json.Marshal(campaign)
	if err != nil {
		return err
	}
	return l.db.Put(numericKey(prefixCampaign, campaign.ID), data, syncWrite)
}

func (l *LevelDBStore) LoadVoters() ([]*models.Voter, error) {
	voters := make([]*models.Voter, 0)
	err := l.each(prefixVoter, func(value []byte) error {
		var voter models.Voter
		if err := json.Unmarshal(value, &voter); err != nil {
			return err
		}
		voters = append(voters, &voter)
		return nil
	})
	return voters, err
}

func (l *LevelDBStore) SaveVoter(voter *models.Voter) error {
	data, err := json.Marshal(voter)
	if err != nil {
		return err
	}
	return l.db.Put(stringKey(prefixVoter, voterKey(voter.CampaignID, voter.VoterIDHash)), data, syncWrite)
}

func (l *LevelDBStore) SaveVote(voter *models.Voter, pending models.PendingTransaction) error {
	voterData, err := json.Marshal(voter)
	if err != nil {
		return err
	}
	pendingData, err := json.Marshal(pending)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(stringKey(prefixVoter, voterKey(voter.CampaignID, voter.VoterIDHash)), voterData)
	batch.Put(stringKey(prefixPending, pendingKey(pending.Transaction.CampaignID, pending.Transaction.VoterID)), pendingData)
	return l.db.Write(batch, syncWrite)
}

func (l *LevelDBStore) LoadPending() ([]models.PendingTransaction, error) {
	pending := make([]models.PendingTransaction, 0)
	err := l.each(prefixPending, func(value []byte) error {
		var p models.PendingTransaction
		if err := json.Unmarshal(value, &p); err != nil {
			return err
		}
		pending = append(pending, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].Sequence < pending[j].Sequence })
	return pending, nil
}

func (l *LevelDBStore) Close() error {
	return l.db.Close()
}

// each calls fn with every value under prefix, in key order
func (l *LevelDBStore) each(prefix byte, fn func(value []byte) error) error {
	iter := l.db.NewIterator(ldb_util.BytesPrefix([]byte{prefix}), nil)
	defer iter.Release()

	for iter.Next() {
		// the iterator's buffer is reused on Next
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		if err := fn(value); err != nil {
			return fmt.Errorf("decode %q record: %w", prefix, err)
		}
	}
	return iter.Error()
}
