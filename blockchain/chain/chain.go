// Package chain is the append-only sequence of sealed blocks
package chain

import (
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"

	"voting-ledger/fault"
	"voting-ledger/models"
)

// BlockStore persists appended blocks
type BlockStore interface {
	SaveBlock(block *models.Block) error
}

type Chain struct {
	mu         sync.RWMutex
	blocks     []*models.Block
	store      BlockStore
	difficulty int
	log        *logger.L
}

func New(store BlockStore, difficulty int, log *logger.L) *Chain {
	return &Chain{
		blocks:     make([]*models.Block, 0),
		store:      store,
		difficulty: difficulty,
		log:        log,
	}
}

// Load replaces the chain with persisted blocks after checking every link
func (c *Chain) Load(blocks []*models.Block) error {
	if index, err := models.ValidateChain(blocks, c.difficulty); err != nil {
		return fmt.Errorf("stored chain invalid at block %d: %w", index, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks = make([]*models.Block, len(blocks))
	for i, b := range blocks {
		c.blocks[i] = b.Copy()
	}
	c.log.Infof("loaded %d blocks", len(blocks))
	return nil
}

// CreateGenesis persists and installs block 0 on an empty chain
func (c *Chain) CreateGenesis(timestamp float64) (*models.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) != 0 {
		return nil, fault.ErrInvalidGenesis
	}

	genesis := models.NewGenesisBlock(timestamp)
	if err := c.store.SaveBlock(genesis); err != nil {
		return nil, fmt.Errorf("save genesis block: %w", err)
	}
	c.blocks = append(c.blocks, genesis)
	c.log.Infof("created genesis block: %s", genesis.Hash())
	return genesis.Copy(), nil
}

// LastBlock returns a copy of the tip, or nil for an empty chain
func (c *Chain) LastBlock() *models.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1].Copy()
}

func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

func (c *Chain) Difficulty() int {
	return c.difficulty
}

// Append validates block against the current tip, persists it and only
// then makes it visible. A rejected or unsaved block leaves the chain
// untouched.
func (c *Chain) Append(block *models.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return fault.ErrEmptyChain
	}

	tip := c.blocks[len(c.blocks)-1]
	if err := models.ValidateLink(tip, block, c.difficulty); err != nil {
		c.log.Debugf("reject block %d on tip %d: %s", block.Index, tip.Index, err)
		return err
	}

	stored := block.Copy()
	if err := c.store.SaveBlock(stored); err != nil {
		c.log.Errorf("save block %d: %s", block.Index, err)
		return fmt.Errorf("save block %d: %w", block.Index, err)
	}

	c.blocks = append(c.blocks, stored)
	c.log.Infof("appended block %d with %d transactions", block.Index, len(block.Transactions))
	return nil
}

// FullChain returns copies of every block in order
func (c *Chain) FullChain() []*models.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]*models.Block, len(c.blocks))
	for i, b := range c.blocks {
		blocks[i] = b.Copy()
	}
	return blocks
}

// IsValid re-verifies every link
func (c *Chain) IsValid() bool {
	_, ok := c.FirstInvalid()
	return ok
}

// FirstInvalid returns the index of the first block that breaks the chain;
// ok is true when there is none
func (c *Chain) FirstInvalid() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	index, err := models.ValidateChain(c.blocks, c.difficulty)
	if err != nil {
		c.log.Warnf("chain invalid at block %d: %s", index, err)
		return index, false
	}
	return -1, true
}
