package slot

import (
	"context"
	"time"
)

// acquire reserves the process-wide slot gate. Callers from concurrent
// executions serialize here; this is the mutual exclusion that enforces
// single residency, not an incidental queue.
// Returns a release func to be deferred.
func (m *Manager) acquire(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context.
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.gate <- struct{}{}:
		return func() { <-m.gate }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}
}
