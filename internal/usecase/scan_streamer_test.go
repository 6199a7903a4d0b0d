package usecase

import (
	"context"
	"testing"
	"time"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalEvent(t *testing.T) {
	empty := models.ResultSet{}
	one := models.ResultSet{{Symbol: "AAA"}}

	tests := []struct {
		name string
		snap models.ProgressSnapshot
		want interface{}
	}{
		{"results", models.ProgressSnapshot{Results: &one}, models.ResultEvent{Success: true, Results: one}},
		{"empty results", models.ProgressSnapshot{Results: &empty}, models.ResultEvent{Success: true, Results: models.ResultSet{}}},
		{"errors joined", models.ProgressSnapshot{Errors: []string{"a", "b"}}, models.ErrorEvent{Error: "a; b"}},
		{"nothing recorded", models.ProgressSnapshot{}, models.ErrorEvent{Error: "Scan completed but no results were found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terminal(tt.snap))
		})
	}
}

func TestStreamSkipsUnchangedProgress(t *testing.T) {
	status := NewScanStatus()
	require.True(t, status.begin())
	status.Update(10, "Processing AAA... (1/10)", "AAA")

	sink := &recordingSink{}
	done := make(chan error, 1)
	go func() { done <- NewEventStreamer(status, time.Millisecond).Stream(context.Background(), sink) }()

	time.Sleep(20 * time.Millisecond)
	status.Update(20, "Processing BBB... (2/10)", "BBB")
	time.Sleep(20 * time.Millisecond)
	status.SetResults(nil)
	status.end()

	require.NoError(t, <-done)
	assert.Equal(t, []interface{}{
		models.ProgressEvent{Progress: 0, Message: "Starting scan..."},
		models.ProgressEvent{Progress: 10, Message: "Processing AAA... (1/10)"},
		models.ProgressEvent{Progress: 20, Message: "Processing BBB... (2/10)"},
		models.ResultEvent{Success: true, Results: models.ResultSet{}},
	}, sink.snapshot())
}

func TestStreamStopsWhenSubscriberLeaves(t *testing.T) {
	status := NewScanStatus()
	require.True(t, status.begin())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewEventStreamer(status, time.Millisecond).Stream(ctx, &recordingSink{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, status.Get().IsScanning, "the scan is not touched")
}
