// Package events publishes committed completion records to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/julianstephens/chime/internal/logger"
	"github.com/julianstephens/chime/internal/models"
)

// RecordEvent is the JSON value of each message.
type RecordEvent struct {
	RecordID  string        `json:"record_id"`
	AlarmID   string        `json:"alarm_id"`
	Action    models.Action `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink is a lifecycle.RecordSink. Messages are keyed by alarm id so
// one alarm's history stays ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaSink(brokers []string, topic string, batchTimeout time.Duration) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

// Message converts a record to its Kafka message.
func Message(r models.CompletionRecord) (kafka.Message, error) {
	value, err := json.Marshal(RecordEvent{
		RecordID:  r.ID,
		AlarmID:   r.AlarmID,
		Action:    r.Action,
		Timestamp: r.Timestamp.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal record %s: %w", r.ID, err)
	}
	return kafka.Message{
		Key:   []byte(r.AlarmID),
		Value: value,
		Time:  r.Timestamp,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(r.Action)},
		},
	}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, r models.CompletionRecord) error {
	msg, err := Message(r)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s record for %s: %w", r.Action, r.AlarmID, err)
	}
	logger.Debug("Published record", "topic", s.topic, "alarm_id", r.AlarmID, "action", r.Action)
	return nil
}

// Ping dials each broker in turn and succeeds on the first that answers.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, b := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return fmt.Errorf("no kafka brokers configured")
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (s *KafkaSink) Close() error {
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}
