package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var (
	publishedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "setupscan_kafka_messages_total",
		Help: "Messages handed to Kafka, by topic and outcome",
	}, []string{"topic", "result"})
	publishedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "setupscan_kafka_bytes_total",
		Help: "Encoded payload bytes handed to Kafka",
	}, []string{"topic"})
	publishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "setupscan_kafka_publish_seconds",
		Help:    "Time spent in WriteMessages",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is one record to publish. Value is sent as is when it is a string or []byte
// and JSON encoded otherwise.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer publishes JSON messages and records per-topic metrics.
type Producer struct {
	w   writer
	now func() time.Time
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	return newProducer(cfg.writer()), nil
}

func newProducer(w writer) *Producer {
	return &Producer{w: w, now: time.Now}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage sends one unkeyed message. The log collector ships its batches through it.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

// PublishBatch encodes every message before writing any, so an encoding error sends nothing.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	at := p.now()
	out := make([]kafka.Message, len(messages))
	var size int
	for i, m := range messages {
		v, err := payload(m.Value)
		if err != nil {
			return fmt.Errorf("kafka encode %s: %w", topic, err)
		}
		out[i] = kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: at}
		size += len(v)
	}

	err := p.w.WriteMessages(ctx, out...)
	publishLatency.WithLabelValues(topic).Observe(time.Since(at).Seconds())
	if err != nil {
		publishedMessages.WithLabelValues(topic, "error").Add(float64(len(out)))
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	publishedMessages.WithLabelValues(topic, "ok").Add(float64(len(out)))
	publishedBytes.WithLabelValues(topic).Add(float64(size))
	return nil
}

// Close flushes pending async batches and releases connections.
func (p *Producer) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

func payload(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	}
	return json.Marshal(v)
}
