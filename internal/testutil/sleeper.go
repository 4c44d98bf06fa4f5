package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested sleeps without blocking.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// NewRecordingSleeper creates a sleeper with no recorded sleeps.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

// Sleep records d and returns immediately, or returns ctx.Err() if the
// context is already done. Its signature matches messenger.Sleeper.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

// Sleeps returns the recorded durations in call order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// Total returns the sum of recorded durations.
func (s *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Sleeps() {
		total += d
	}
	return total
}
