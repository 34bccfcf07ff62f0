package syncer

import (
	"errors"
	"sync/atomic"
)

// ErrSyncInProgress is returned when a run is requested while another
// run holds the guard. The caller is expected to retry later; nothing
// is queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// Guard enforces the one-run-at-a-time rule for a single process. The
// zero value is ready to use.
type Guard struct {
	running atomic.Bool
}

// TryAcquire claims the guard, reporting false if another run holds it.
func (g *Guard) TryAcquire() bool {
	return g.running.CompareAndSwap(false, true)
}

// Release returns the guard to idle. Safe to call from a deferred
// function regardless of how the run ended.
func (g *Guard) Release() {
	g.running.Store(false)
}

// Active reports whether a run currently holds the guard.
func (g *Guard) Active() bool {
	return g.running.Load()
}
