package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	inserted []Event
	fail     error
}

func (s *stubStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	if s.fail != nil {
		return Event{}, s.fail
	}
	ev := Event{
		ID:          int64(len(s.inserted) + 1),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     append(json.RawMessage(nil), payload...),
		OccurredAt:  time.Now(),
	}
	s.inserted = append(s.inserted, ev)
	return ev, nil
}

type countingNotifier struct {
	calls int
	fail  error
}

func (n *countingNotifier) Notify(context.Context, Event) error {
	n.calls++
	return n.fail
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &countingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), TopicOrderCreated, "order-1", map[string]any{"total": int64(600000)})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.Topic != TopicOrderCreated {
		t.Fatalf("unexpected topic %q", ev.Topic)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.inserted))
	}
	if notifier.calls != 1 {
		t.Fatalf("expected notifier to run once, got %d", notifier.calls)
	}
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &stubStore{}}
	if _, err := bus.Emit(context.Background(), " ", "order-1", nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderPaid, "", nil); err == nil {
		t.Fatal("expected error for empty aggregate id")
	}
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	store := &stubStore{}
	bad := &countingNotifier{fail: errors.New("boom")}
	bus := &Bus{Store: store, Notifiers: []Notifier{bad}}
	if _, err := bus.Emit(context.Background(), TopicOrderPaid, "order-2", nil); err == nil {
		t.Fatal("expected notifier error to surface")
	}
	if len(store.inserted) != 1 {
		t.Fatal("event must persist even when a notifier fails")
	}
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &Bus{Store: &stubStore{}}
	if _, err := bus.Emit(context.Background(), TopicOrderCreated, "order-3", []byte("{not json")); err == nil {
		t.Fatal("expected invalid payload to be rejected")
	}
}
