package bus

import (
	"errors"
	"testing"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("gear.shifted", func(e Event) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("gear.shifted", "runner", 2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Source() != "runner" || got.Data() != 2 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Timestamp().IsZero() {
		t.Fatal("event has no timestamp")
	}
}

func TestDeliveryOrderFollowsSubscription(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 5; i++ {
		_, _ = b.Subscribe("ev", func(Event) error { order = append(order, i); return nil })
	}
	_ = b.Publish(NewEvent("ev", "src", nil))
	for i, v := range order {
		if v != i {
			t.Fatalf("handlers ran out of order: %v", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(order))
	}
}

func TestWildcardSeesEverything(t *testing.T) {
	b := New()
	seen := map[string]int{}
	_, _ = b.Subscribe(Wildcard, func(e Event) error { seen[e.Type()]++; return nil })

	for _, typ := range []string{"gear.shifted", "steering.direction", "gear.shifted"} {
		_ = b.Publish(NewEvent(typ, "src", nil))
	}
	if seen["gear.shifted"] != 2 || seen["steering.direction"] != 1 {
		t.Fatalf("wildcard missed events: %v", seen)
	}
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA := errors.New("a")
	errB := errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return nil })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s := b.Stats(); s.Errors != 1 || s.DeliveredHandlers != 3 || s.Published != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("x", func(Event) error { calls++; return nil })
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if sub.ID() == "" || sub.EventType() != "x" || !sub.IsActive() {
		t.Fatalf("bad subscription: %s %s %v", sub.ID(), sub.EventType(), sub.IsActive())
	}

	_ = b.Publish(NewEvent("x", "src", nil))
	if err = b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = sub.Cancel()
	_ = b.Publish(NewEvent("x", "src", nil))

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	if s := b.Stats(); s.Subscribers != 0 {
		t.Fatalf("expected no subscribers, got %d", s.Subscribers)
	}
	if err = b.Unsubscribe(nil); err != nil {
		t.Fatalf("nil unsubscribe: %v", err)
	}
}

func TestCancelInsideHandler(t *testing.T) {
	b := New()
	var sub Subscription
	calls := 0
	sub, _ = b.Subscribe("x", func(Event) error {
		calls++
		return sub.Cancel()
	})
	_ = b.Publish(NewEvent("x", "src", nil))
	_ = b.Publish(NewEvent("x", "src", nil))
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	b := New()
	if _, err := b.Subscribe("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}
