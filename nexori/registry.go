package nexori

import (
	"fmt"
	"sync"
)

// Subscription identifies one registered handler.
type Subscription struct {
	name EventName
	id   uint64
}

// Name returns the event the subscription listens to.
func (s Subscription) Name() EventName { return s.name }

type registryEntry struct {
	id uint64
	fn Handler
}

// Registry routes events to registered handlers.
// Handlers for one name run in registration order; a panicking handler is
// logged and skipped without affecting the rest of the pass.
type Registry struct {
	logger Logger

	mu       sync.Mutex
	handlers map[EventName][]registryEntry
	nextID   uint64
}

// NewRegistry creates an empty registry. A nil logger discards logs.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Registry{
		logger:   logger,
		handlers: make(map[EventName][]registryEntry),
	}
}

// Register adds fn for name and returns its subscription token.
func (r *Registry) Register(name EventName, fn Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.handlers[name] = append(r.handlers[name], registryEntry{id: id, fn: fn})
	return Subscription{name: name, id: id}
}

// Unregister removes the given subscriptions of name. With no subscriptions
// it removes every handler registered for name. Unknown tokens are ignored.
func (r *Registry) Unregister(name EventName, subs ...Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(subs) == 0 {
		delete(r.handlers, name)
		return
	}

	entries := r.handlers[name]
	kept := entries[:0:0]
	for _, e := range entries {
		if !containsSub(subs, name, e.id) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(r.handlers, name)
		return
	}
	r.handlers[name] = kept
}

// Dispatch calls every handler registered for ev.Name synchronously.
func (r *Registry) Dispatch(ev Event) {
	r.mu.Lock()
	entries := append([]registryEntry(nil), r.handlers[ev.Name]...)
	r.mu.Unlock()

	for _, e := range entries {
		r.invoke(e, ev)
	}
}

// Len returns the number of handlers registered for name.
func (r *Registry) Len(name EventName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[name])
}

// Clear drops every handler.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.handlers = make(map[EventName][]registryEntry)
	r.mu.Unlock()
}

func (r *Registry) invoke(e registryEntry, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			err := NewError(ErrorHandlerPanic, fmt.Sprint(rec))
			r.logger.Error("event handler panicked", map[string]any{
				"event": string(ev.Name),
				"error": err.Error(),
			})
		}
	}()
	e.fn(ev)
}

func containsSub(subs []Subscription, name EventName, id uint64) bool {
	for _, s := range subs {
		if s.name == name && s.id == id {
			return true
		}
	}
	return false
}
