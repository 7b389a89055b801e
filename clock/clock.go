// Package clock supplies time and identifiers to the ledger so tests can
// control both.
package clock

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock is the source of the current time
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Manual is a clock that only moves when told to
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Timestamp converts t to fractional unix seconds, the block timestamp format
func Timestamp(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// NodeIdentifier returns a fresh random identifier for this node, used as
// the recipient of mining rewards
func NodeIdentifier() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
