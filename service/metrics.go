package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks counts and timings for ledger operations
type MetricsCollector struct {
	mu sync.RWMutex

	registrationCount     int
	registrationTotalTime time.Duration

	votingCount     int
	votingRejected  int
	votingTotalTime time.Duration

	blocksMined    int
	miningRetries  int
	miningAttempts uint64
	miningTime     time.Duration
	lastBlockTime  time.Time

	startTime time.Time
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	Count          int   `json:"count"`
	ProcessingTime int64 `json:"processing_time_ms"`
}

// MiningMetrics describes the work done sealing blocks
type MiningMetrics struct {
	BlocksMined    int       `json:"blocks_mined"`
	Retries        int       `json:"retries"`
	ProofAttempts  uint64    `json:"proof_attempts"`
	ProcessingTime int64     `json:"processing_time_ms"`
	LastBlockTime  time.Time `json:"last_block_time,omitempty"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Registration  OperationMetrics `json:"registration"`
	Voting        OperationMetrics `json:"voting"`
	RejectedVotes int              `json:"rejected_votes"`
	Mining        MiningMetrics    `json:"mining"`
	Uptime        int64            `json:"uptime_seconds"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

func (mc *MetricsCollector) RecordRegistration(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.registrationCount++
	mc.registrationTotalTime += duration
}

func (mc *MetricsCollector) RecordVote(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingCount++
	mc.votingTotalTime += duration
}

func (mc *MetricsCollector) RecordRejectedVote() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingRejected++
}

func (mc *MetricsCollector) RecordBlock(duration time.Duration, attempts uint64, retries int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.blocksMined++
	mc.miningAttempts += attempts
	mc.miningRetries += retries
	mc.miningTime += duration
	mc.lastBlockTime = time.Now().UTC()
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Registration: OperationMetrics{
			Count:          mc.registrationCount,
			ProcessingTime: mc.registrationTotalTime.Milliseconds(),
		},
		Voting: OperationMetrics{
			Count:          mc.votingCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		RejectedVotes: mc.votingRejected,
		Mining: MiningMetrics{
			BlocksMined:    mc.blocksMined,
			Retries:        mc.miningRetries,
			ProofAttempts:  mc.miningAttempts,
			ProcessingTime: mc.miningTime.Milliseconds(),
			LastBlockTime:  mc.lastBlockTime,
		},
		Uptime: int64(time.Since(mc.startTime).Seconds()),
	}
}
