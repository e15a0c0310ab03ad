package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kenchiwar/fe-invetory/pkg/commsutil"
)

const kafkaLogPrefix = "events:kafka"

// DefaultKafkaTopic receives entity changes when no topic is configured.
const DefaultKafkaTopic = "inventory.changed"

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader is the subset of *kafka.Reader used by KafkaSubscriber.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPublisher writes change events to a Kafka topic keyed by entity.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	source string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic, source string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	slog.Info(fmt.Sprintf("%s - Publishing changes to topic %s on %v", kafkaLogPrefix, topic, brokers))
	return &KafkaPublisher{writer: w, topic: topic, source: source}
}

// Publish writes event as one JSON message.
func (p *KafkaPublisher) Publish(ctx context.Context, event *EntityChanged) error {
	if event.Source == "" {
		event.Source = p.source
	}
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", kafkaLogPrefix, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Entity),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
		Time: event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s - failed to write to %s: %w", kafkaLogPrefix, p.topic, err)
	}
	slog.Debug(fmt.Sprintf("%s - Published %s %s id=%d", kafkaLogPrefix, event.Action, event.Entity, event.ID))
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber consumes change events from a topic with a consumer group.
type KafkaSubscriber struct {
	reader    messageReader
	errorWait time.Duration
}

// NewKafkaSubscriber creates a subscriber in groupID reading topic on brokers.
func NewKafkaSubscriber(brokers []string, groupID, topic string) *KafkaSubscriber {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})
	return &KafkaSubscriber{reader: r, errorWait: time.Second}
}

// Run delivers events to h until ctx is cancelled or the reader is closed.
// Undecodable messages are logged and skipped.
func (s *KafkaSubscriber) Run(ctx context.Context, h Handler) error {
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			slog.Warn(fmt.Sprintf("%s - Read failed: %v", kafkaLogPrefix, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.errorWait):
			}
			continue
		}
		event, err := commsutil.DecodePayload[EntityChanged](m.Value)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Dropping undecodable message at %s/%d@%d: %v", kafkaLogPrefix, m.Topic, m.Partition, m.Offset, err))
			continue
		}
		h(ctx, &event)
	}
}

// Close closes the reader.
func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}
