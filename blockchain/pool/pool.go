// Package pool holds accepted votes until the next block seals them
package pool

import (
	"sync"

	"voting-ledger/models"
)

// Pool is an insertion-ordered queue of pending transactions
type Pool struct {
	mu       sync.Mutex
	pending  []models.PendingTransaction
	sequence uint64
}

// New creates a pool, restoring transactions persisted before a restart
func New(restored []models.PendingTransaction) *Pool {
	p := &Pool{
		pending: make([]models.PendingTransaction, 0, len(restored)),
	}
	for _, tx := range restored {
		p.pending = append(p.pending, tx)
		if tx.Sequence > p.sequence {
			p.sequence = tx.Sequence
		}
	}
	return p
}

// NextSequence reserves the next sequence number
func (p *Pool) NextSequence() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequence++
	return p.sequence
}

// Submit appends a transaction and returns its 1-based position
func (p *Pool) Submit(tx models.PendingTransaction) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tx.Sequence > p.sequence {
		p.sequence = tx.Sequence
	}
	p.pending = append(p.pending, tx)
	return len(p.pending)
}

// Drain removes and returns everything pending
func (p *Pool) Drain() []models.PendingTransaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	drained := p.pending
	p.pending = make([]models.PendingTransaction, 0, len(drained))
	return drained
}

// Requeue puts drained transactions back ahead of anything submitted since
func (p *Pool) Requeue(txs []models.PendingTransaction) {
	if len(txs) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	restored := make([]models.PendingTransaction, 0, len(txs)+len(p.pending))
	restored = append(restored, txs...)
	p.pending = append(restored, p.pending...)
}

// Pending returns a snapshot of the queue
func (p *Pool) Pending() []models.PendingTransaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]models.PendingTransaction, len(p.pending))
	copy(snapshot, p.pending)
	return snapshot
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.pending)
}
