package libreg

// eventMap holds at most one value per (emitter, event) pair.
type eventMap[K comparable, T any] struct {
	contents map[EmitterID]map[K]T
}

func newEventMap[K comparable, T any]() *eventMap[K, T] {
	return &eventMap[K, T]{
		contents: make(map[EmitterID]map[K]T),
	}
}

func (m *eventMap[K, T]) getEmitters() []EmitterID {
	res := make([]EmitterID, 0, len(m.contents))
	for emitter := range m.contents {
		res = append(res, emitter)
	}
	return res
}

func (m *eventMap[K, T]) hasEmitter(emitter EmitterID) bool {
	_, ok := m.contents[emitter]
	return ok
}

func (m *eventMap[K, T]) getEmitterEvents(emitter EmitterID) []K {
	values := m.contents[emitter]
	res := make([]K, 0, len(values))
	for event := range values {
		res = append(res, event)
	}
	return res
}

func (m *eventMap[K, T]) hasEmitterEvent(emitter EmitterID, event K) bool {
	_, ok := m.contents[emitter][event]
	return ok
}

// getEmitterEventValue returns the zero T and false when nothing is stored.
func (m *eventMap[K, T]) getEmitterEventValue(emitter EmitterID, event K) (T, bool) {
	v, ok := m.contents[emitter][event]
	return v, ok
}

func (m *eventMap[K, T]) setEmitterEventValue(emitter EmitterID, event K, value T) {
	values, ok := m.contents[emitter]
	if !ok {
		values = make(map[K]T)
		m.contents[emitter] = values
	}
	values[event] = value
}

func (m *eventMap[K, T]) removeEmitterEventValue(emitter EmitterID, event K) {
	values, ok := m.contents[emitter]
	if !ok {
		return
	}
	delete(values, event)
	if len(values) == 0 {
		delete(m.contents, emitter)
	}
}

func (m *eventMap[K, T]) cleanUp() {
	for _, values := range m.contents {
		clear(values)
	}
	clear(m.contents)
}
