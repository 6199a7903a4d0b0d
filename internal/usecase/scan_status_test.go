package usecase

import (
	"sync"
	"testing"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStatusStartsReset(t *testing.T) {
	snap := NewScanStatus().Get()

	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, "Initializing...", snap.Message)
	assert.False(t, snap.IsScanning)
	assert.Nil(t, snap.CurrentSymbol)
	assert.Empty(t, snap.Errors)
	assert.Nil(t, snap.Results)
}

func TestScanStatusUpdateClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{150, 100},
	}
	s := NewScanStatus()
	for _, tt := range tests {
		s.Update(tt.in, "m", "")
		assert.Equal(t, tt.want, s.Get().Progress, "input %d", tt.in)
	}
}

func TestScanStatusUpdateSetsSymbol(t *testing.T) {
	s := NewScanStatus()
	s.Update(50, "Processing AAA... (1/2)", "AAA")

	snap := s.Get()
	require.NotNil(t, snap.CurrentSymbol)
	assert.Equal(t, "AAA", *snap.CurrentSymbol)

	s.Update(100, "done", "")
	assert.Nil(t, s.Get().CurrentSymbol)
}

func TestScanStatusGetIsDeepCopy(t *testing.T) {
	s := NewScanStatus()
	s.AddError("first")
	s.SetResults(models.ResultSet{{Symbol: "AAA", Reasons: []string{"r"}}})

	snap := s.Get()
	snap.Errors[0] = "changed"
	(*snap.Results)[0].Symbol = "ZZZ"
	(*snap.Results)[0].Reasons[0] = "x"

	again := s.Get()
	assert.Equal(t, []string{"first"}, again.Errors)
	assert.Equal(t, "AAA", (*again.Results)[0].Symbol)
	assert.Equal(t, "r", (*again.Results)[0].Reasons[0])
}

func TestScanStatusEmptyResultsArePopulated(t *testing.T) {
	s := NewScanStatus()
	s.SetResults(nil)

	snap := s.Get()
	require.NotNil(t, snap.Results)
	assert.NotNil(t, *snap.Results)
	assert.Empty(t, *snap.Results)
}

func TestScanStatusReset(t *testing.T) {
	s := NewScanStatus()
	require.True(t, s.begin())
	s.Update(70, "Processing", "AAA")
	s.AddError("boom")
	s.SetResults(models.ResultSet{})

	s.Reset()
	assert.Equal(t, NewScanStatus().Get(), s.Get())
}

func TestScanStatusBeginEnd(t *testing.T) {
	s := NewScanStatus()
	s.AddError("stale")

	require.True(t, s.begin())
	assert.True(t, s.Get().IsScanning)
	assert.Empty(t, s.Get().Errors, "begin resets")
	assert.False(t, s.begin())

	assert.True(t, s.end())
	assert.False(t, s.end())
	assert.False(t, s.Get().IsScanning)
}

func TestScanStatusConcurrentAccess(t *testing.T) {
	s := NewScanStatus()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update(i*10, "tick", "AAA")
			s.AddError("e")
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Get()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Get().Errors, 8)
}
