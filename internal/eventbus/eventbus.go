// Package eventbus is the sole channel by which the registry, scheduler,
// mesh, consensus manager, and health monitor announce state changes to
// the rest of the system. It exists to break the cyclic references those
// subsystems would otherwise need on each other: the registry publishes,
// everyone else subscribes, and nothing imports anything but the event
// types and this bus.
package eventbus

import (
	"sync"
	"time"
)

// Topic names one of the events the bus carries. Subsystems publish and
// subscribe by topic rather than by Go type so a subscriber can listen to
// several related topics with one handler.
type Topic string

const (
	AgentRegistered     Topic = "agent_registered"
	AgentUnregistered   Topic = "agent_unregistered"
	AgentStatusChanged  Topic = "agent_status_changed"
	TaskSubmitted       Topic = "task_submitted"
	TaskAssigned        Topic = "task_assigned"
	TaskCompleted       Topic = "task_completed"
	TaskFailed          Topic = "task_failed"
	TopologyUpdated     Topic = "topology_updated"
	ProposalCreated     Topic = "proposal_created"
	ConsensusReached    Topic = "consensus_reached"
	HealthCheck         Topic = "health_check"
	RunStopped          Topic = "run_stopped"
)

// Event is the envelope delivered to every subscriber. Payload's concrete
// type is determined by Topic; subscribers type-assert it themselves.
type Event struct {
	Topic     Topic
	Payload   any
	Emittedat time.Time
}

// EmittedAt returns when the bus accepted the event for dispatch.
func (e Event) EmittedAt() time.Time { return e.Emittedat }

// Handler receives one event. It must not block for long: dispatch to a
// given subscriber is synchronous and serialized, so a slow handler
// delays every later event to that same subscriber.
type Handler func(Event)

// Bus is a synchronous, per-subscriber-serialized publish/subscribe
// broker. Publish fans out to every subscriber of the event's topic,
// each on its own goroutine, so no order among subscribers is defined;
// subscribers for different topics, or different subscribers for the
// same topic, may be invoked concurrently with one another, but a single
// subscriber never sees two events interleaved.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Topic][]*subscription
	nextID      uint64
}

type subscription struct {
	id      uint64
	handler Handler
	mu      sync.Mutex
}

// New returns an empty Bus ready for use.
func New() *Bus {
	return &Bus{subscribers: make(map[Topic][]*subscription)}
}

// Subscription is an opaque handle returned by Subscribe, used to
// Unsubscribe later.
type Subscription struct {
	topic Topic
	id    uint64
}

// Subscribe registers handler to be called for every event published to
// topic, until the returned Subscription is passed to Unsubscribe.
func (b *Bus) Subscribe(topic Topic, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	return Subscription{topic: topic, id: sub.id}
}

// Unsubscribe removes a subscription previously returned by Subscribe.
// Unsubscribing an already-removed subscription is a silent no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish dispatches an event carrying payload to every current
// subscriber of topic. Each subscriber's handler runs on its own
// goroutine under that subscriber's serialization lock, and Publish
// blocks until every one of those handlers has returned.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.Unlock()

	event := Event{Topic: topic, Payload: payload, Emittedat: time.Now()}
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			s.handler(event)
		}(sub)
	}
	wg.Wait()
}

// SubscriberCount returns how many handlers are currently registered for
// topic. Intended for tests and status reporting.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topic])
}
