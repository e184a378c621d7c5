package libreg

// listenerSet records which callbacks were registered on which (emitter, event) pair.
// It is a multiset: adding the same triple twice requires two removals.
// Emptied event slices and emitter maps are pruned right away.
type listenerSet[K comparable, V any] struct {
	contents map[EmitterID]map[K][]*Callback[V]
}

func newListenerSet[K comparable, V any]() *listenerSet[K, V] {
	return &listenerSet[K, V]{
		contents: make(map[EmitterID]map[K][]*Callback[V]),
	}
}

func (s *listenerSet[K, V]) addEmitterEventListener(emitter EmitterID, event K, cb *Callback[V]) {
	events, ok := s.contents[emitter]
	if !ok {
		events = make(map[K][]*Callback[V])
		s.contents[emitter] = events
	}
	events[event] = append(events[event], cb)
}

func (s *listenerSet[K, V]) removeEmitterEventListener(emitter EmitterID, event K, cb *Callback[V]) {
	events, ok := s.contents[emitter]
	if !ok {
		return
	}
	cbs := events[event]
	for i := len(cbs) - 1; i >= 0; i-- {
		if cbs[i] != cb {
			continue
		}
		if len(cbs) == 1 {
			delete(events, event)
		} else {
			events[event] = append(cbs[:i:i], cbs[i+1:]...)
		}
		break
	}
	if len(events) == 0 {
		delete(s.contents, emitter)
	}
}

// getEmitterEvents returns nil for an unknown emitter.
func (s *listenerSet[K, V]) getEmitterEvents(emitter EmitterID) []K {
	events := s.contents[emitter]
	if len(events) == 0 {
		return nil
	}
	res := make([]K, 0, len(events))
	for event := range events {
		res = append(res, event)
	}
	return res
}

func (s *listenerSet[K, V]) getEmitterEventListeners(emitter EmitterID, event K) []*Callback[V] {
	cbs := s.contents[emitter][event]
	if len(cbs) == 0 {
		return nil
	}
	res := make([]*Callback[V], len(cbs))
	copy(res, cbs)
	return res
}

func (s *listenerSet[K, V]) hasEmitter(emitter EmitterID) bool {
	_, ok := s.contents[emitter]
	return ok
}

func (s *listenerSet[K, V]) len() int {
	n := 0
	for _, events := range s.contents {
		for _, cbs := range events {
			n += len(cbs)
		}
	}
	return n
}

func (s *listenerSet[K, V]) cleanUp() {
	s.contents = make(map[EmitterID]map[K][]*Callback[V])
}
