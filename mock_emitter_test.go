package libreg

import (
	"github.com/stretchr/testify/mock"
)

type mockEmitter struct {
	mock.Mock

	id EmitterID
}

func newMockEmitter() *mockEmitter {
	return &mockEmitter{id: NextEmitterID()}
}

func (m *mockEmitter) ID() EmitterID {
	return m.id
}

func (m *mockEmitter) On(event string, cb *Callback[int]) {
	m.Called(event, cb)
}

func (m *mockEmitter) Once(event string, cb *Callback[int]) {
	m.Called(event, cb)
}

func (m *mockEmitter) RemoveListener(event string, cb *Callback[int]) {
	m.Called(event, cb)
}

func (m *mockEmitter) Listeners(event string) []*Callback[int] {
	args := m.Called(event)
	cbs, _ := args.Get(0).([]*Callback[int])
	return cbs
}

func (m *mockEmitter) Emit(event string, data int) {
	m.Called(event, data)
}

type spy struct {
	calls int
	cb    *Callback[int]
}

func newSpy() *spy {
	s := &spy{}
	s.cb = NewCallback(func(int) { s.calls++ })
	return s
}
