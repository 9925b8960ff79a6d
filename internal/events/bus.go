package events

import (
	"sync"
	"time"
)

// Message is a timestamped record that can be rendered for a live viewer.
// Journal entries satisfy it.
type Message interface {
	Kind() string
	Time() time.Time
	Render() string
}

// Delivery is a message together with the topic it was published on.
type Delivery struct {
	Topic   Event
	Message Message
}

type subscriber struct {
	topics map[Event]bool
	ch     chan Delivery
}

// Bus fans watcher messages out to subscribers. One subscription can follow
// several topics. Slow subscribers miss messages rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel receiving every message published on any of
// topics and a cancel func that closes it. Cancel may be called more than once.
func (b *Bus) Subscribe(buffer int, topics ...Event) (<-chan Delivery, func()) {
	sub := &subscriber{topics: make(map[Event]bool, len(topics)), ch: make(chan Delivery, buffer)}
	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish offers m to every subscriber of topic without blocking and returns
// how many accepted it. A nil message is not published.
func (b *Bus) Publish(topic Event, m Message) int {
	if m == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs {
		if !sub.topics[topic] {
			continue
		}
		select {
		case sub.ch <- Delivery{Topic: topic, Message: m}:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers reports how many subscriptions follow topic.
func (b *Bus) Subscribers(topic Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for sub := range b.subs {
		if sub.topics[topic] {
			n++
		}
	}
	return n
}
