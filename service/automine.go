package service

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
)

// AutoMiner seals the pending pool on a fixed interval, skipping ticks
// when there is nothing to seal
type AutoMiner struct {
	votingService *VotingService
	interval      time.Duration
	shutdownCh    chan struct{}
	cancel        context.CancelFunc
	processingWg  sync.WaitGroup
	stopOnce      sync.Once
	log           *logger.L
}

func NewAutoMiner(votingService *VotingService, interval time.Duration) *AutoMiner {
	return &AutoMiner{
		votingService: votingService,
		interval:      interval,
		shutdownCh:    make(chan struct{}),
		log:           logger.New("automine"),
	}
}

// Start launches the mining worker
func (am *AutoMiner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	am.cancel = cancel

	am.processingWg.Add(1)
	go am.mineWorker(ctx)
	am.log.Infof("mining every %s", am.interval)
}

// Stop interrupts any proof search in progress and waits for the worker
func (am *AutoMiner) Stop() {
	am.stopOnce.Do(func() {
		close(am.shutdownCh)
		if am.cancel != nil {
			am.cancel()
		}
		am.processingWg.Wait()
	})
}

func (am *AutoMiner) mineWorker(ctx context.Context) {
	defer am.processingWg.Done()

	ticker := time.NewTicker(am.interval)
	defer ticker.Stop()

	for {
		select {
		case <-am.shutdownCh:
			return
		case <-ticker.C:
			if am.votingService.PendingCount() == 0 {
				continue
			}
			block, err := am.votingService.Mine(ctx)
			if err != nil {
				if ctx.Err() == nil {
					am.log.Errorf("mine: %s", err)
				}
				continue
			}
			am.log.Infof("sealed block %d with %d transactions", block.Index, len(block.Transactions))
		}
	}
}
