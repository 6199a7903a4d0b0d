package usecase

import "sync"

// ScanGuard admits at most one active scan per process.
type ScanGuard struct {
	status *ScanStatus
	mu     sync.Mutex
	held   bool
}

func NewScanGuard(status *ScanStatus) *ScanGuard {
	return &ScanGuard{status: status}
}

// TryAcquire resets the status and marks it scanning, unless a scan is already running.
func (g *ScanGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.status.begin() {
		return false
	}
	g.held = true
	return true
}

// Release ends the current acquisition. Extra calls are no-ops.
func (g *ScanGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return
	}
	g.held = false
	g.status.end()
}
