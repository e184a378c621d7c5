package libreg

import (
	"sync"
)

type registration[V any] struct {
	cb   *Callback[V]
	once bool
}

// EventEmitter is a simple event emitter. It maps events (of type K) to callbacks receiving data of type V.
// It is safe for concurrent use and callbacks may call back into the emitter.
type EventEmitter[K comparable, V any] struct {
	id        EmitterID
	listeners map[K][]registration[V]
	lock      sync.RWMutex
}

var _ Emitter[string, any] = (*EventEmitter[string, any])(nil)

// NewEventEmitter creates a new EventEmitter and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitter[K, V] {
	return &EventEmitter[K, V]{
		id:        NextEmitterID(),
		listeners: make(map[K][]registration[V]),
	}
}

// ID returns the identity assigned at construction.
func (e *EventEmitter[K, V]) ID() EmitterID {
	return e.id
}

// On registers a new listener for the given event.
func (e *EventEmitter[K, V]) On(event K, cb *Callback[V]) {
	e.add(event, cb, false)
}

// Once registers a listener that is removed right before its first invocation.
func (e *EventEmitter[K, V]) Once(event K, cb *Callback[V]) {
	e.add(event, cb, true)
}

func (e *EventEmitter[K, V]) add(event K, cb *Callback[V], once bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[event] = append(e.listeners[event], registration[V]{cb: cb, once: once})
}

// RemoveListener removes the most recently added registration of cb for event.
func (e *EventEmitter[K, V]) RemoveListener(event K, cb *Callback[V]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	regs := e.listeners[event]
	for i := len(regs) - 1; i >= 0; i-- {
		if regs[i].cb == cb {
			e.setRegistrations(event, append(regs[:i:i], regs[i+1:]...))
			return
		}
	}
}

// RemoveAllListeners drops every registration for event.
func (e *EventEmitter[K, V]) RemoveAllListeners(event K) {
	e.lock.Lock()
	defer e.lock.Unlock()

	delete(e.listeners, event)
}

// Listeners returns a copy of the callbacks registered for event.
func (e *EventEmitter[K, V]) Listeners(event K) []*Callback[V] {
	e.lock.RLock()
	defer e.lock.RUnlock()

	regs := e.listeners[event]
	if len(regs) == 0 {
		return nil
	}
	res := make([]*Callback[V], len(regs))
	for i, r := range regs {
		res[i] = r.cb
	}
	return res
}

// ListenerCount returns the number of registrations for event.
func (e *EventEmitter[K, V]) ListenerCount(event K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.listeners[event])
}

// EventNames returns the events that currently have at least one registration.
func (e *EventEmitter[K, V]) EventNames() []K {
	e.lock.RLock()
	defer e.lock.RUnlock()

	names := make([]K, 0, len(e.listeners))
	for k := range e.listeners {
		names = append(names, k)
	}
	return names
}

// Emit triggers all listeners registered for the given event synchronously, in registration order.
// One-shot registrations are detached before any listener runs, so they fire at most once even when
// Emit is called concurrently.
func (e *EventEmitter[K, V]) Emit(event K, data V) {
	e.lock.Lock()
	regs, found := e.listeners[event]
	if !found {
		e.lock.Unlock()
		return
	}

	snapshot := make([]*Callback[V], len(regs))
	kept := regs[:0:0]
	for i, r := range regs {
		snapshot[i] = r.cb
		if !r.once {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(regs) {
		e.setRegistrations(event, kept)
	}
	e.lock.Unlock()

	for _, cb := range snapshot {
		cb.Call(data)
	}
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitter[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]registration[V])
}

func (e *EventEmitter[K, V]) setRegistrations(event K, regs []registration[V]) {
	if len(regs) == 0 {
		delete(e.listeners, event)
		return
	}
	e.listeners[event] = regs
}
