package events

import (
	"context"
	"testing"
	"time"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	if err := pub.Publish(context.Background(), NewEntityChanged("/Brand", ActionSaved, 1)); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *EntityChanged
	pub := NewCallbackPublisher(func(_ context.Context, event *EntityChanged) error {
		captured = event
		return nil
	})

	if err := pub.Publish(context.Background(), NewEntityChanged("/CurrentStock", ActionDeleted, 5)); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
	if captured == nil {
		t.Fatal("events:publisher_test - expected callback to be called")
	}
	if captured.Entity != "CurrentStock" || captured.Action != ActionDeleted || captured.ID != 5 {
		t.Errorf("events:publisher_test - captured = %+v", captured)
	}
}

func TestNewEntityChanged(t *testing.T) {
	before := time.Now().UTC()
	e := NewEntityChanged("/Brand", ActionSaved, 0)
	if e.Entity != "Brand" || e.Endpoint != "/Brand" {
		t.Errorf("events:publisher_test - entity=%q endpoint=%q", e.Entity, e.Endpoint)
	}
	if e.Timestamp.Before(before) {
		t.Errorf("events:publisher_test - timestamp %v before %v", e.Timestamp, before)
	}
}
