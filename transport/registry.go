package transport

import (
	"encoding/json"
	"slices"
	"sync"
)

// Registry keeps the event subscribers of a transport.
type Registry struct {
	mu            sync.Mutex
	nextId        uint64
	eventToHandle map[string]map[uint64]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		eventToHandle: make(map[string]map[uint64]Handler),
	}
}

func (r *Registry) Subscribe(event string, handler Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextId++
	if r.eventToHandle[event] == nil {
		r.eventToHandle[event] = make(map[uint64]Handler)
	}
	r.eventToHandle[event][r.nextId] = handler
	return Subscription{Event: event, Id: r.nextId}
}

func (r *Registry) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.eventToHandle[sub.Event], sub.Id)
	if len(r.eventToHandle[sub.Event]) == 0 {
		delete(r.eventToHandle, sub.Event)
	}
}

// Count returns the number of live subscriptions across all events.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, handlers := range r.eventToHandle {
		n += len(handlers)
	}
	return n
}

// Dispatch calls every handler of event in subscription order. The lock is
// not held while handlers run, so a handler may unsubscribe itself.
func (r *Registry) Dispatch(event string, payload json.RawMessage) {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.eventToHandle[event]))
	for id := range r.eventToHandle[event] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, r.eventToHandle[event][id])
	}
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
}
