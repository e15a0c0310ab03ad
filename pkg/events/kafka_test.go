package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

const kafkaTestPrefix = "events:kafka_test"

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader replays results in order and then reports io.EOF.
type fakeReader struct {
	results []readResult
}

type readResult struct {
	msg kafka.Message
	err error
}

func (r *fakeReader) ReadMessage(context.Context) (kafka.Message, error) {
	if len(r.results) == 0 {
		return kafka.Message{}, io.EOF
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: DefaultKafkaTopic, source: "console-a"}

	if err := p.Publish(context.Background(), NewEntityChanged("/Brand", ActionSaved, 4)); err != nil {
		t.Fatalf("%s - Publish: %v", kafkaTestPrefix, err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("%s - wrote %d messages, want 1", kafkaTestPrefix, len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "Brand" {
		t.Errorf("%s - key = %q, want Brand", kafkaTestPrefix, msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "saved" {
		t.Errorf("%s - headers = %v", kafkaTestPrefix, msg.Headers)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("%s - Close err=%v closed=%v", kafkaTestPrefix, err, w.closed)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	want := errors.New("broker unavailable")
	p := &KafkaPublisher{writer: &fakeWriter{err: want}, topic: DefaultKafkaTopic}
	if err := p.Publish(context.Background(), NewEntityChanged("/Brand", ActionDeleted, 1)); !errors.Is(err, want) {
		t.Errorf("%s - err = %v, want wrapped broker error", kafkaTestPrefix, err)
	}
}

func TestKafkaSubscriber_Run(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: DefaultKafkaTopic}
	_ = p.Publish(context.Background(), NewEntityChanged("/Brand", ActionSaved, 1))
	_ = p.Publish(context.Background(), NewEntityChanged("/CurrentStock", ActionDeleted, 2))

	r := &fakeReader{results: []readResult{
		{msg: w.msgs[0]},
		{err: errors.New("rebalance in progress")},
		{msg: kafka.Message{Value: []byte("garbage")}},
		{msg: w.msgs[1]},
	}}
	s := &KafkaSubscriber{reader: r, errorWait: time.Millisecond}

	var got []*EntityChanged
	err := s.Run(context.Background(), func(_ context.Context, e *EntityChanged) {
		got = append(got, e)
	})
	if err != nil {
		t.Fatalf("%s - Run: %v", kafkaTestPrefix, err)
	}
	if len(got) != 2 || got[0].Endpoint != "/Brand" || got[1].Action != ActionDeleted {
		t.Errorf("%s - delivered = %+v", kafkaTestPrefix, got)
	}
}

func TestKafkaSubscriber_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &KafkaSubscriber{reader: &fakeReader{results: []readResult{{err: context.Canceled}}}, errorWait: time.Hour}
	if err := s.Run(ctx, func(context.Context, *EntityChanged) {}); err != nil {
		t.Errorf("%s - Run after cancel: %v", kafkaTestPrefix, err)
	}
}
