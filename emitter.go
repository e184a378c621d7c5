package libreg

import (
	"go.uber.org/atomic"
)

// EmitterID identifies an emitter for bookkeeping purposes. The Registry keys everything by
// EmitterID and never stores the emitter itself, so it does not keep emitters alive.
type EmitterID uint64

var emitterIDs atomic.Uint64

// NextEmitterID returns a process-unique EmitterID. Custom Emitter implementations should
// call it once at construction time.
func NextEmitterID() EmitterID {
	return EmitterID(emitterIDs.Inc())
}

// Emitter is the capability set the Registry needs from a publish/subscribe primitive.
type Emitter[K comparable, V any] interface {
	// ID returns the stable identity of the emitter.
	ID() EmitterID

	// On registers cb for event.
	On(event K, cb *Callback[V])

	// Once registers cb for event. The registration is dropped before its first invocation.
	Once(event K, cb *Callback[V])

	// RemoveListener removes one matching registration of cb for event.
	RemoveListener(event K, cb *Callback[V])

	// Listeners returns the callbacks currently registered for event, in registration order.
	Listeners(event K) []*Callback[V]

	// Emit triggers all listeners registered for the given event synchronously.
	Emit(event K, data V)
}
