// Package miner seals pending transactions into blocks
package miner

import (
	"context"
	"errors"
	"time"

	"github.com/bitmark-inc/logger"

	"voting-ledger/blockchain/chain"
	"voting-ledger/blockchain/pool"
	"voting-ledger/clock"
	"voting-ledger/fault"
	"voting-ledger/models"
)

// how many proofs to try between checks for cancellation or a new tip
const checkInterval = 4096

var errSuperseded = errors.New("chain tip moved during proof search")

// Stats reports what one Mine call did
type Stats struct {
	Attempts uint64
	Retries  int
	Duration time.Duration
}

type Miner struct {
	chain          *chain.Chain
	pool           *pool.Pool
	clock          clock.Clock
	nodeIdentifier string
	log            *logger.L
}

func New(c *chain.Chain, p *pool.Pool, clk clock.Clock, nodeIdentifier string, log *logger.L) *Miner {
	return &Miner{
		chain:          c,
		pool:           p,
		clock:          clk,
		nodeIdentifier: nodeIdentifier,
		log:            log,
	}
}

func (m *Miner) NodeIdentifier() string {
	return m.nodeIdentifier
}

// Mine seals everything pending, plus a reward transaction, into the next
// block. No lock is held while searching for a proof. When another miner
// wins the race the drained transactions are carried over to a search on
// the new tip; on any other failure they go back to the pool.
func (m *Miner) Mine(ctx context.Context) (*models.Block, Stats, error) {
	var (
		stats   Stats
		drained []models.PendingTransaction
		haveTxs bool
	)
	start := time.Now()

	for {
		tip := m.chain.LastBlock()
		if tip == nil {
			m.pool.Requeue(drained)
			return nil, stats, fault.ErrEmptyChain
		}
		tipHash := tip.Hash()

		proof, attempts, err := m.proofOfWork(ctx, tip, tipHash)
		stats.Attempts += attempts
		if err == errSuperseded {
			stats.Retries++
			m.log.Debugf("tip moved past %d, restarting proof search", tip.Index)
			continue
		}
		if err != nil {
			m.pool.Requeue(drained)
			return nil, stats, err
		}

		if !haveTxs {
			drained = m.pool.Drain()
			haveTxs = true
		}

		txs := make([]models.Transaction, 0, len(drained)+1)
		txs = append(txs, models.NewRewardTransaction(m.nodeIdentifier))
		txs = append(txs, models.Transactions(drained)...)

		block := models.NewBlock(tip.Index+1, clock.Timestamp(m.clock.Now()), txs, proof, tipHash)

		err = m.chain.Append(block)
		if err == nil {
			stats.Duration = time.Since(start)
			m.log.Infof("forged block %d: %d votes, proof %d after %d attempts", block.Index, len(drained), proof, stats.Attempts)
			return block, stats, nil
		}
		if fault.IsErrIntegrity(err) {
			stats.Retries++
			m.log.Debugf("block %d lost the race: %s", block.Index, err)
			continue
		}

		m.pool.Requeue(drained)
		m.log.Errorf("append block %d: %s", block.Index, err)
		return nil, stats, err
	}
}

// proofOfWork searches upward from zero for a proof that seals on tip
func (m *Miner) proofOfWork(ctx context.Context, tip *models.Block, tipHash string) (uint64, uint64, error) {
	difficulty := m.chain.Difficulty()

	var proof uint64
	for {
		if models.ValidProof(tip.Proof, proof, tipHash, difficulty) {
			return proof, proof + 1, nil
		}
		proof++

		if proof%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, proof, ctx.Err()
			default:
			}
			if m.chain.Length() != int(tip.Index)+1 {
				return 0, proof, errSuperseded
			}
		}
	}
}
