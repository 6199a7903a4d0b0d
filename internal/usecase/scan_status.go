package usecase

import (
	"sync"

	"SetupScan/internal/domain/models"
)

const initialMessage = "Initializing..."

// ProgressSink receives progress transitions emitted by the pipeline.
type ProgressSink interface {
	Update(progress int, message, symbol string)
}

// ScanStatus is the lock-protected state shared between a running scan and its observers.
// Every method is a single critical section.
type ScanStatus struct {
	mu       sync.Mutex
	progress int
	message  string
	scanning bool
	symbol   string
	errors   []string
	results  models.ResultSet
	done     bool
}

func NewScanStatus() *ScanStatus {
	s := &ScanStatus{}
	s.reset()
	return s
}

// Get returns a deep copy of the current state.
func (s *ScanStatus) Get() models.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.ProgressSnapshot{
		Progress:   s.progress,
		Message:    s.message,
		IsScanning: s.scanning,
		Errors:     append(make([]string, 0, len(s.errors)), s.errors...),
	}
	if s.symbol != "" {
		sym := s.symbol
		snap.CurrentSymbol = &sym
	}
	if s.done {
		rs := s.results.Clone()
		if rs == nil {
			rs = models.ResultSet{}
		}
		snap.Results = &rs
	}
	return snap
}

// Update records a progress transition. progress is clamped to [0,100]; an empty symbol clears it.
func (s *ScanStatus) Update(progress int, message, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = clamp(progress)
	s.message = message
	s.symbol = symbol
}

func (s *ScanStatus) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

// SetResults stores a copy of rs. A nil set is stored as empty, which still counts as populated.
func (s *ScanStatus) SetResults(rs models.ResultSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = rs.Clone()
	if s.results == nil {
		s.results = models.ResultSet{}
	}
	s.done = true
}

func (s *ScanStatus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *ScanStatus) reset() {
	s.progress = 0
	s.message = initialMessage
	s.scanning = false
	s.symbol = ""
	s.errors = nil
	s.results = nil
	s.done = false
}

// begin resets the state and marks it scanning unless a scan is already active.
func (s *ScanStatus) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return false
	}
	s.reset()
	s.scanning = true
	return true
}

// end clears the scanning flag and reports whether it was set.
func (s *ScanStatus) end() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.scanning
	s.scanning = false
	return was
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
