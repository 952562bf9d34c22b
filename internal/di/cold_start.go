package di

import (
	"sync"
	"time"
)

// ColdStartTracker reports whether an invocation is the first one served by this Lambda
// instance and how long initialization took.
type ColdStartTracker struct {
	startedAt time.Time
	once      sync.Once
	initTook  time.Duration
	served    bool
	mu        sync.Mutex
}

// NewColdStartTracker starts the cold start clock.
func NewColdStartTracker() *ColdStartTracker {
	return &ColdStartTracker{startedAt: time.Now()}
}

// Ready records the end of initialization. Only the first call counts.
func (t *ColdStartTracker) Ready() {
	t.once.Do(func() { t.initTook = time.Since(t.startedAt) })
}

// Observe marks an invocation. cold is true only for the first one.
func (t *ColdStartTracker) Observe() (cold bool, initTook time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cold = !t.served
	t.served = true
	return cold, t.initTook
}
