package slot

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Reclaimer releases all accelerator and host memory held by a model
// handle with an observable completion guarantee.
type Reclaimer struct {
	// Timeout bounds the close barrier. Expiry means pending device work
	// never drained; the slot must be treated as poisoned.
	Timeout time.Duration
}

// Reclaim tears down a handle in strict order: the caller has already
// dropped its reference so no further generate calls can reach the handle;
// the host collector runs; then the engine is asked to release device
// memory and the call blocks until the engine confirms, or the timeout
// elapses and a reclaim-timeout error is returned.
//
// Reclaim deliberately takes no context: a canceled request must not abort
// teardown, only the configured timeout bounds it.
func (r *Reclaimer) Reclaim(h Handle) error {
	if h == nil {
		return nil
	}
	runtime.GC()
	debug.FreeOSMemory()

	done := make(chan error, 1)
	go func() {
		// Close frees accelerator memory and acts as the synchronization
		// barrier: it returns only after pending operations complete.
		done <- h.Close()
	}()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrReclaimTimeout()
	}
}
