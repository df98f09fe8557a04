// Package pubsub provides the per-owner notification bus that connects
// the playback components. Each component owns a bus and publishes named
// events on it; the owning component's parent subscribes to the events it
// cares about. No component ever holds a callback pointer to its parent.
package pubsub

import "sync"

// Handler is a callback invoked for every publish on a subscribed topic.
type Handler func(data interface{})

// Token identifies a single subscription for later removal.
type Token int

type subscription struct {
	token   Token
	handler Handler
}

// Bus is a topic-keyed registry of ordered subscriber lists. Publishing
// invokes the handlers synchronously, in subscription order. A Bus is safe
// for concurrent use, but handlers run on the publishing goroutine.
type Bus struct {
	mu     sync.Mutex
	topics map[string][]subscription
	next   Token
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string][]subscription),
	}
}

// Subscribe registers a handler for a topic and returns its token.
// A nil handler is ignored and returns a token that unsubscribes nothing.
func (b *Bus) Subscribe(topic string, h Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	if h == nil {
		return b.next
	}
	b.topics[topic] = append(b.topics[topic], subscription{token: b.next, handler: h})
	return b.next
}

// Unsubscribe removes the subscription identified by token from a topic.
// Unknown topics or tokens are a no-op.
func (b *Bus) Unsubscribe(topic string, token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, sub := range subs {
		if sub.token == token {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler currently subscribed to the topic, in
// subscription order, passing data to each. Publishing to a topic with no
// subscribers is a no-op. Handlers may subscribe, unsubscribe, or publish
// from within the callback; such changes do not affect the fan-out already
// in flight.
func (b *Bus) Publish(topic string, data interface{}) {
	b.mu.Lock()
	subs := b.topics[topic]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		sub.handler(data)
	}
}

// Reset removes all subscriptions on all topics.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = make(map[string][]subscription)
}

// SubscriberCount returns the number of handlers subscribed to a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
