package event

import (
	"log"
	"strings"
	"sync"
)

// Handler receives a published event. Handlers run on their own goroutines;
// a slow subscriber never delays the call path.
type Handler func(evt *Event)

type subscription struct {
	patterns []string
	handler  Handler
}

// Bus routes call events from the transport layer to its observers (call log
// recorder, MQTT publisher). Patterns are dot-separated with a trailing "*"
// wildcard: "call.*" matches every call event.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Subscribe registers a handler for events matching any of the patterns and
// returns its subscription id.
func (b *Bus) Subscribe(patterns []string, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[b.next] = &subscription{patterns: patterns, handler: handler}
	log.Printf("[EventBus] Subscription %d for patterns %v", b.next, patterns)
	return b.next
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish delivers an event to every matching subscriber asynchronously.
func (b *Bus) Publish(evt *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		for _, pattern := range sub.patterns {
			if matchPattern(pattern, evt.Type) {
				go sub.handler(evt)
				break
			}
		}
	}
}

// matchPattern matches a dot-separated event type against a pattern where a
// "*" segment matches that segment and everything after it.
func matchPattern(pattern, eventType string) bool {
	if pattern == eventType {
		return true
	}

	pp := strings.Split(pattern, ".")
	ep := strings.Split(eventType, ".")
	for i, part := range pp {
		if part == "*" {
			return true
		}
		if i >= len(ep) || part != ep[i] {
			return false
		}
	}
	return len(pp) == len(ep)
}
