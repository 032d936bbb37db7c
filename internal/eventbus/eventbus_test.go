package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	var got Event
	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe(AgentRegistered, func(e Event) {
		got = e
		wg.Done()
	})

	b.Publish(AgentRegistered, "agent-1")
	wg.Wait()

	if got.Topic != AgentRegistered {
		t.Fatalf("got topic %v, want %v", got.Topic, AgentRegistered)
	}
	if got.Payload != "agent-1" {
		t.Fatalf("got payload %v, want agent-1", got.Payload)
	}
	if got.EmittedAt().IsZero() {
		t.Fatal("expected non-zero EmittedAt")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	var mu sync.Mutex
	sub := b.Subscribe(TaskSubmitted, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	b.Publish(TaskSubmitted, nil)
	b.Unsubscribe(sub)
	b.Publish(TaskSubmitted, nil)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly 1 delivery before unsubscribe, got %d", calls)
	}
}

func TestSubscriberSeesEventsSerialized(t *testing.T) {
	b := New()
	var mu sync.Mutex
	order := []int{}
	var inFlight int32
	b.Subscribe(TaskCompleted, func(e Event) {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			t.Error("handler entered while a previous delivery to it was still running")
		}
		defer atomic.AddInt32(&inFlight, -1)
		n := e.Payload.(int)
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Publish(TaskCompleted, n)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(order))
	}
}

func TestSubscriberCount(t *testing.T) {
	b := New()
	if b.SubscriberCount(HealthCheck) != 0 {
		t.Fatal("expected zero subscribers initially")
	}
	b.Subscribe(HealthCheck, func(Event) {})
	b.Subscribe(HealthCheck, func(Event) {})
	if got := b.SubscriberCount(HealthCheck); got != 2 {
		t.Fatalf("SubscriberCount() = %d, want 2", got)
	}
}
