package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "boom", map[string]interface{}{"symbol": "AAA"}, "usecase/x.go:1")
	}
	c.AddLog("error", "boom", map[string]interface{}{"symbol": "BBB"}, "usecase/x.go:1")
	assert.Equal(t, 2, c.Len())

	c.Close()
	require.Equal(t, 1, pub.count())
	assert.Equal(t, []string{"logs"}, pub.topics)

	counts := map[interface{}]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["symbol"]] = e.Count
	}
	assert.Equal(t, map[interface{}]int{"AAA": 3, "BBB": 1}, counts)

	// closing twice is harmless
	c.Close()
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, c.Len())
	c.Close()
	assert.Equal(t, 1, pub.count())
}

func TestErrorsReachCollectorThroughChildLoggers(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "t", Publisher: pub})
	child := l.With(String("component", "scan"))

	child.Error("scan failed", Error(errors.New("disk full")), String("symbol", "AAA"))
	child.Info("not collected")
	child.Warn("not collected either")
	l.RemoveCollector()

	require.Equal(t, 1, pub.count())
	require.Len(t, pub.batches[0], 1)
	e := pub.batches[0][0]
	assert.Equal(t, "scan failed", e.Message)
	assert.Equal(t, "disk full", e.Fields["error"])
	assert.Equal(t, "AAA", e.Fields["symbol"])
	assert.Contains(t, e.Caller, "logger/logger_test.go")

	child.Error("after removal")
	assert.Equal(t, 1, pub.count())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stderr"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	l.Debug("dropped", Duration("took", time.Second), Bool("ok", true), Float("conf", 1.5))
}
