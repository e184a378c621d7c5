// Package libreg keeps track of callbacks registered on event emitters, so they can be removed
// in bulk, and supports "final" events that drop all tracked registrations when they fire.
package libreg

import (
	"sync"
)

// Registry tracks the callbacks it registers on emitters, so they can be removed later without
// the caller having to remember which callback went where. It also supports "final" events: when
// a final event fires, every registration tracked by the registry is dropped from its bookkeeping.
//
// Clear only discards bookkeeping. It does not detach callbacks from their emitters; once the
// registry forgets a callback, the emitter is the only thing still referencing it.
//
// One-shot registrations stay in the bookkeeping after they fire. Removing such a stale entry
// is a no-op on the emitter side.
//
// All methods return the registry so calls can be chained.
type Registry[K comparable, V any] struct {
	mu        sync.Mutex
	listeners *listenerSet[K, V]
	finals    *eventMap[K, *Callback[V]]
	final     *Callback[V]
	logger    Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry[K comparable, V any](opts ...Option) *Registry[K, V] {
	cfg := newOptions(opts...)

	r := &Registry[K, V]{
		listeners: newListenerSet[K, V](),
		finals:    newEventMap[K, *Callback[V]](),
		logger:    cfg.logger.WithField("component", "registry"),
	}
	r.final = NewCallback(func(V) {
		r.logger.Debugln("final event fired")
		r.Clear()
	})
	return r
}

// AddListener registers cb on emitter for event and tracks it.
func (r *Registry[K, V]) AddListener(emitter Emitter[K, V], event K, cb *Callback[V]) *Registry[K, V] {
	mustEmitter(emitter, "add listener")
	mustCallback(cb, "add listener")

	emitter.On(event, cb)
	r.track(emitter.ID(), event, cb)
	return r
}

// On is an alias for AddListener.
func (r *Registry[K, V]) On(emitter Emitter[K, V], event K, cb *Callback[V]) *Registry[K, V] {
	return r.AddListener(emitter, event, cb)
}

// Once registers cb as a one-shot listener on emitter for event and tracks it.
func (r *Registry[K, V]) Once(emitter Emitter[K, V], event K, cb *Callback[V]) *Registry[K, V] {
	mustEmitter(emitter, "once")
	mustCallback(cb, "once")

	emitter.Once(event, cb)
	r.track(emitter.ID(), event, cb)
	return r
}

// RemoveListener detaches cb from emitter for event and stops tracking it.
// Removing something that was never registered is a no-op.
func (r *Registry[K, V]) RemoveListener(emitter Emitter[K, V], event K, cb *Callback[V]) *Registry[K, V] {
	mustEmitter(emitter, "remove listener")
	if cb == nil {
		return r
	}

	emitter.RemoveListener(event, cb)

	r.mu.Lock()
	r.listeners.removeEmitterEventListener(emitter.ID(), event, cb)
	r.mu.Unlock()
	return r
}

// RemoveAllListeners detaches every listener of emitter, for every event the registry tracks on it.
// An armed final registration survives.
func (r *Registry[K, V]) RemoveAllListeners(emitter Emitter[K, V]) *Registry[K, V] {
	mustEmitter(emitter, "remove all listeners")

	r.mu.Lock()
	events := r.listeners.getEmitterEvents(emitter.ID())
	r.mu.Unlock()

	for _, event := range events {
		r.removeAllFor(emitter, event)
	}
	return r
}

// RemoveAllListenersFor detaches every listener of emitter for event, except an armed final registration.
// The emitter's own listener list is used, so callbacks registered outside the registry are removed too.
func (r *Registry[K, V]) RemoveAllListenersFor(emitter Emitter[K, V], event K) *Registry[K, V] {
	mustEmitter(emitter, "remove all listeners")

	r.removeAllFor(emitter, event)
	return r
}

func (r *Registry[K, V]) removeAllFor(emitter Emitter[K, V], event K) {
	for _, cb := range emitter.Listeners(event) {
		if cb == r.final {
			continue
		}
		r.RemoveListener(emitter, event, cb)
	}
}

// Fin arranges for the registry to be cleared the next time event fires on emitter.
// Calling it again while the final is armed does nothing. If the emitter panics, the
// final is left disarmed.
func (r *Registry[K, V]) Fin(emitter Emitter[K, V], event K) *Registry[K, V] {
	mustEmitter(emitter, "fin")

	id := emitter.ID()

	r.mu.Lock()
	if r.finals.hasEmitterEvent(id, event) {
		r.mu.Unlock()
		return r
	}
	r.finals.setEmitterEventValue(id, event, r.final)
	r.mu.Unlock()

	r.armFinal(emitter, id, event)

	r.logger.Debugf("final armed on emitter %d for event %v", id, event)
	return r
}

func (r *Registry[K, V]) armFinal(emitter Emitter[K, V], id EmitterID, event K) {
	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			r.finals.removeEmitterEventValue(id, event)
			r.mu.Unlock()
			panic(p)
		}
	}()

	emitter.Once(event, r.final)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners.addEmitterEventListener(id, event, r.final)
	// A Clear racing with emitter.Once wiped the entry while the final was being installed.
	if !r.finals.hasEmitterEvent(id, event) {
		r.finals.setEmitterEventValue(id, event, r.final)
	}
}

// OnceFin registers cb as a one-shot listener and makes event final for emitter.
// cb is registered first, so it runs before the registry is cleared.
func (r *Registry[K, V]) OnceFin(emitter Emitter[K, V], event K, cb *Callback[V]) *Registry[K, V] {
	return r.Once(emitter, event, cb).Fin(emitter, event)
}

// Unfin disarms the final registration for event on emitter, if any.
func (r *Registry[K, V]) Unfin(emitter Emitter[K, V], event K) *Registry[K, V] {
	mustEmitter(emitter, "unfin")

	id := emitter.ID()

	// The entry is taken before the emitter call, so a Fin running concurrently arms a fresh final
	// instead of finding this one about to be removed.
	r.mu.Lock()
	cb, ok := r.finals.getEmitterEventValue(id, event)
	if ok {
		r.finals.removeEmitterEventValue(id, event)
	}
	r.mu.Unlock()
	if !ok {
		return r
	}

	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			if !r.finals.hasEmitterEvent(id, event) {
				r.finals.setEmitterEventValue(id, event, cb)
			}
			r.mu.Unlock()
			panic(p)
		}
	}()

	r.RemoveListener(emitter, event, cb)

	r.logger.Debugf("final disarmed on emitter %d for event %v", id, event)
	return r
}

// Clear forgets every tracked registration and every armed final.
func (r *Registry[K, V]) Clear() *Registry[K, V] {
	r.mu.Lock()
	n := r.listeners.len()
	armed := len(r.finals.getEmitters())
	r.listeners.cleanUp()
	r.finals.cleanUp()
	r.mu.Unlock()

	r.logger.Debugf("cleared %d tracked listeners, %d emitters with armed finals", n, armed)
	return r
}

// Events returns the events the registry tracks for emitter.
func (r *Registry[K, V]) Events(emitter Emitter[K, V]) []K {
	mustEmitter(emitter, "events")

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listeners.getEmitterEvents(emitter.ID())
}

// Tracked returns the callbacks the registry tracks for event on emitter.
func (r *Registry[K, V]) Tracked(emitter Emitter[K, V], event K) []*Callback[V] {
	mustEmitter(emitter, "tracked")

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listeners.getEmitterEventListeners(emitter.ID(), event)
}

// HasFinal reports whether a final registration is armed for event on emitter.
func (r *Registry[K, V]) HasFinal(emitter Emitter[K, V], event K) bool {
	mustEmitter(emitter, "has final")

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.finals.hasEmitterEvent(emitter.ID(), event)
}

// Len returns the number of tracked registrations across all emitters.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listeners.len()
}

func (r *Registry[K, V]) track(id EmitterID, event K, cb *Callback[V]) {
	r.mu.Lock()
	r.listeners.addEmitterEventListener(id, event, cb)
	r.mu.Unlock()
}
