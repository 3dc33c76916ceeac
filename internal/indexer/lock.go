package indexer

import "sync/atomic"

// runLock rejects overlapping indexing runs on one Indexer without
// blocking. A second caller gets an immediate refusal instead of queueing
// behind a potentially long run.
type runLock struct {
	state atomic.Int32 // 0 = idle, 1 = running
}

// TryAcquire attempts to start a run. Returns false when one is already
// in progress.
func (l *runLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release marks the run finished. Must only be called after a successful
// TryAcquire.
func (l *runLock) Release() {
	l.state.Store(0)
}
