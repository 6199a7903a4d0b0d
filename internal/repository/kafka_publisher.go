package repository

import (
	"context"
	"fmt"

	"SetupScan/internal/domain/models"
	pkgkafka "SetupScan/pkg/kafka"
)

// batchPublisher is the subset of *pkgkafka.Producer used here.
type batchPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// ScanEvent is the payload of a scan-completed message.
type ScanEvent struct {
	models.ScanSummary
	Symbols []string `json:"symbols"`
}

// RecordEvent carries one ranked record of a scan.
type RecordEvent struct {
	ScanID string                `json:"scan_id"`
	Rank   int                   `json:"rank"`
	Record models.AnalysisRecord `json:"record"`
}

// KafkaPublisher emits one summary message per scan and one message per ranked record.
type KafkaPublisher struct {
	producer     batchPublisher
	topic        string
	recordsTopic string
}

func NewKafkaPublisher(p *pkgkafka.Producer, topic, recordsTopic string) *KafkaPublisher {
	return newKafkaPublisher(p, topic, recordsTopic)
}

func newKafkaPublisher(p batchPublisher, topic, recordsTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, recordsTopic: recordsTopic}
}

// PublishScan sends the records first, keyed by symbol, then the summary keyed by scan id.
// Failed scans only produce the summary.
func (k *KafkaPublisher) PublishScan(ctx context.Context, summary models.ScanSummary, rs models.ResultSet) error {
	if k.recordsTopic != "" && len(rs) > 0 {
		msgs := make([]pkgkafka.Message, 0, len(rs))
		for i, r := range rs {
			msgs = append(msgs, pkgkafka.Message{
				Key:   []byte(r.Symbol),
				Value: RecordEvent{ScanID: summary.ScanID, Rank: i + 1, Record: r},
			})
		}
		if err := k.producer.PublishBatch(ctx, k.recordsTopic, msgs); err != nil {
			return fmt.Errorf("publish records: %w", err)
		}
	}

	ev := ScanEvent{ScanSummary: summary, Symbols: make([]string, 0, len(rs))}
	for _, r := range rs {
		ev.Symbols = append(ev.Symbols, r.Symbol)
	}
	if err := k.producer.Publish(ctx, k.topic, []byte(summary.ScanID), ev); err != nil {
		return fmt.Errorf("publish scan: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
