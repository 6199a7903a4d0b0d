package usecase

import (
	"context"
	"strings"
	"time"

	"SetupScan/internal/domain/models"
)

const (
	startMessage     = "Starting scan..."
	noResultsMessage = "Scan completed but no results were found"
)

// EventSink delivers one event to the subscriber. Implementations serialize v as JSON.
type EventSink interface {
	Send(v interface{}) error
}

// EventStreamer polls a ScanStatus and forwards de-duplicated progress, then one terminal event.
type EventStreamer struct {
	status   *ScanStatus
	interval time.Duration
}

func NewEventStreamer(status *ScanStatus, interval time.Duration) *EventStreamer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &EventStreamer{status: status, interval: interval}
}

// Stream blocks until the scan ends, ctx is done or the sink fails. The scan itself is unaffected.
func (e *EventStreamer) Stream(ctx context.Context, sink EventSink) error {
	last := models.ProgressEvent{Progress: 0, Message: startMessage}
	if err := sink.Send(last); err != nil {
		return err
	}

	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		snap := e.status.Get()
		if !snap.IsScanning {
			return sink.Send(Terminal(snap))
		}
		ev := models.ProgressEvent{Progress: snap.Progress, Message: snap.Message}
		if ev == last {
			continue
		}
		if err := sink.Send(ev); err != nil {
			return err
		}
		last = ev
	}
}

// Terminal builds the closing event for a finished scan.
func Terminal(snap models.ProgressSnapshot) interface{} {
	if snap.Results != nil {
		rs := *snap.Results
		if rs == nil {
			rs = models.ResultSet{}
		}
		return models.ResultEvent{Success: true, Results: rs}
	}
	if len(snap.Errors) > 0 {
		return models.ErrorEvent{Error: strings.Join(snap.Errors, "; ")}
	}
	return models.ErrorEvent{Error: noResultsMessage}
}
