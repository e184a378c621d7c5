package libreg

import (
	"bytes"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OnCallsListenerForEveryEvent(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l1, l2 := newSpy(), newSpy()

	reg.On(emitter, "foo", l1.cb).On(emitter, "foo", l2.cb)
	emitter.Emit("foo", 0)
	emitter.Emit("foo", 0)
	emitter.Emit("foo", 0)
	emitter.Emit("bar", 0)

	assert.Equal(t, 3, l1.calls)
	assert.Equal(t, 3, l2.calls)
}

func TestRegistry_OnIgnoresOtherEvents(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.On(emitter, "foo", l.cb)
	emitter.Emit("bar", 0)
	emitter.Emit("baz", 0)

	assert.Zero(t, l.calls)
}

func TestRegistry_ReturnsItself(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	cb := NewCallback(func(int) {})

	assert.Same(t, reg, reg.On(emitter, "foo", cb))
	assert.Same(t, reg, reg.AddListener(emitter, "foo", cb))
	assert.Same(t, reg, reg.Once(emitter, "foo", cb))
	assert.Same(t, reg, reg.RemoveListener(emitter, "foo", cb))
	assert.Same(t, reg, reg.RemoveAllListeners(emitter))
	assert.Same(t, reg, reg.RemoveAllListenersFor(emitter, "foo"))
	assert.Same(t, reg, reg.Fin(emitter, "end"))
	assert.Same(t, reg, reg.OnceFin(emitter, "end", cb))
	assert.Same(t, reg, reg.Unfin(emitter, "end"))
	assert.Same(t, reg, reg.Clear())
}

func TestRegistry_OnceCallsListenerExactlyOnce(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.Once(emitter, "foo", l.cb)
	emitter.Emit("foo", 0)
	emitter.Emit("foo", 0)
	emitter.Emit("foo", 0)

	assert.Equal(t, 1, l.calls)
}

func TestRegistry_OnceLeavesStaleEntry(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.Once(emitter, "foo", l.cb)
	emitter.Emit("foo", 0)

	assert.Equal(t, []*Callback[int]{l.cb}, reg.Tracked(emitter, "foo"))
	assert.Zero(t, emitter.ListenerCount("foo"))

	reg.RemoveListener(emitter, "foo", l.cb)
	assert.Empty(t, reg.Tracked(emitter, "foo"))
	assert.Zero(t, reg.Len())
}

func TestRegistry_RemoveListener(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.On(emitter, "foo", l.cb)
	reg.RemoveListener(emitter, "foo", l.cb)
	emitter.Emit("foo", 0)

	assert.Zero(t, l.calls)
	assert.Empty(t, reg.Events(emitter))
}

func TestRegistry_RemoveListenerUnknownTargets(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	assert.NotPanics(t, func() {
		reg.RemoveListener(emitter, "foo", l.cb)
	})

	reg.On(emitter, "foo", l.cb)
	assert.NotPanics(t, func() {
		reg.RemoveListener(emitter, "bar", l.cb)
		reg.RemoveListener(emitter, "foo", nil)
	})

	emitter.Emit("foo", 0)
	assert.Equal(t, 1, l.calls)
}

func TestRegistry_RemoveAllListenersForAnyEvent(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l1, l2, l3 := newSpy(), newSpy(), newSpy()

	reg.On(emitter, "foo", l1.cb).On(emitter, "foo", l2.cb).On(emitter, "bar", l3.cb)
	reg.RemoveAllListeners(emitter)
	emitter.Emit("foo", 0)
	emitter.Emit("bar", 0)

	assert.Zero(t, l1.calls)
	assert.Zero(t, l2.calls)
	assert.Zero(t, l3.calls)
	assert.Zero(t, reg.Len())
}

func TestRegistry_RemoveAllListenersForEvent(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l1, l2, l3 := newSpy(), newSpy(), newSpy()

	reg.On(emitter, "foo", l1.cb).On(emitter, "foo", l2.cb).On(emitter, "bar", l3.cb)
	reg.RemoveAllListenersFor(emitter, "bar")
	emitter.Emit("foo", 0)
	emitter.Emit("bar", 0)

	assert.Equal(t, 1, l1.calls)
	assert.Equal(t, 1, l2.calls)
	assert.Zero(t, l3.calls)
	assert.Equal(t, []string{"foo"}, reg.Events(emitter))
}

func TestRegistry_RemoveAllListenersKeepsFinal(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	removed, called := newSpy(), newSpy()

	reg.OnceFin(emitter, "end", removed.cb)
	reg.RemoveAllListeners(emitter)
	assert.True(t, reg.HasFinal(emitter, "end"))
	assert.Equal(t, 1, emitter.ListenerCount("end"))

	reg.OnceFin(emitter, "end", called.cb)
	emitter.Emit("end", 0)

	assert.Zero(t, removed.calls)
	assert.Equal(t, 1, called.calls)
	assert.False(t, reg.HasFinal(emitter, "end"))
	assert.Zero(t, reg.Len())
}

func TestRegistry_RemoveAllListenersForEventKeepsFinal(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	done, removedEnd, calledEnd := newSpy(), newSpy(), newSpy()

	reg.Once(emitter, "done", done.cb)
	reg.OnceFin(emitter, "end", removedEnd.cb)
	reg.RemoveAllListenersFor(emitter, "end")
	reg.OnceFin(emitter, "end", calledEnd.cb)
	emitter.Emit("done", 0)
	emitter.Emit("end", 0)

	assert.Equal(t, 1, done.calls)
	assert.Zero(t, removedEnd.calls)
	assert.Equal(t, 1, calledEnd.calls)
}

func TestRegistry_RemoveAllListenersIgnoresUnknownEmitter(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	outside := newSpy()
	emitter.On("foo", outside.cb)

	reg.RemoveAllListeners(emitter)
	emitter.Emit("foo", 0)

	assert.Equal(t, 1, outside.calls)
}

func TestRegistry_FinDisposesEveryListenerOnFinalEvent(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter1 := NewEventEmitter[string, int]()
	emitter2 := NewEventEmitter[string, int]()

	reg.On(emitter1, "progress", NewCallback(func(int) {}))
	reg.On(emitter2, "data", NewCallback(func(int) {}))
	reg.Fin(emitter1, "end")

	require.Len(t, reg.Tracked(emitter1, "progress"), 1)
	require.Len(t, reg.Tracked(emitter2, "data"), 1)

	emitter1.Emit("end", 0)

	assert.Empty(t, reg.Tracked(emitter1, "progress"))
	assert.Empty(t, reg.Tracked(emitter2, "data"))
	assert.Zero(t, reg.Len())
}

func TestRegistry_FinIsIdempotent(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()

	reg.Fin(emitter, "end").Fin(emitter, "end")

	assert.Equal(t, 1, emitter.ListenerCount("end"))
	assert.Len(t, reg.Tracked(emitter, "end"), 1)
	assert.True(t, reg.HasFinal(emitter, "end"))
}

func TestRegistry_FinDistinguishesEmitters(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter1 := NewEventEmitter[string, int]()
	emitter2 := NewEventEmitter[string, int]()

	reg.On(emitter1, "progress", NewCallback(func(int) {}))
	reg.Fin(emitter1, "end")

	emitter2.Emit("end", 0)
	assert.Len(t, reg.Tracked(emitter1, "progress"), 1)

	emitter1.Emit("end", 0)
	assert.Empty(t, reg.Tracked(emitter1, "progress"))
}

func TestRegistry_FinRearmsAfterFiring(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()

	reg.Fin(emitter, "end")
	emitter.Emit("end", 0)
	assert.False(t, reg.HasFinal(emitter, "end"))
	assert.Zero(t, emitter.ListenerCount("end"))

	reg.Fin(emitter, "end")
	assert.True(t, reg.HasFinal(emitter, "end"))
	assert.Equal(t, 1, emitter.ListenerCount("end"))
}

func TestRegistry_OnceFinRunsListenerBeforeCleanup(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	other := NewEventEmitter[string, int]()

	trackedDuringCallback := -1
	cb := NewCallback(func(int) {
		trackedDuringCallback = reg.Len()
	})

	reg.On(other, "data", NewCallback(func(int) {}))
	reg.OnceFin(emitter, "end", cb)
	emitter.Emit("end", 0)
	emitter.Emit("end", 0)

	assert.Equal(t, 3, trackedDuringCallback)
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Tracked(other, "data"))
}

func TestRegistry_Unfin(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.On(emitter, "data", l.cb)
	reg.Fin(emitter, "done")
	reg.Unfin(emitter, "done")
	emitter.Emit("done", 0)

	assert.False(t, reg.HasFinal(emitter, "done"))
	assert.Zero(t, emitter.ListenerCount("done"))
	assert.Len(t, reg.Tracked(emitter, "data"), 1)
}

func TestRegistry_UnfinNonFinalIsNoop(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()

	assert.NotPanics(t, func() {
		reg.Unfin(emitter, "foo")
	})
	emitter.AssertNotCalled(t, "RemoveListener", mock.Anything, mock.Anything)
}

func TestRegistry_ClearKeepsEmitterRegistrations(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()
	l := newSpy()

	reg.On(emitter, "foo", l.cb).Fin(emitter, "end")
	reg.Clear()
	emitter.Emit("foo", 0)

	assert.Equal(t, 1, l.calls)
	assert.Zero(t, reg.Len())
	assert.False(t, reg.HasFinal(emitter, "end"))
}

func TestRegistry_DelegatesToEmitter(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()
	cb := NewCallback(func(int) {})

	emitter.Mock.On("On", "foo", cb).Return().Once()
	emitter.Mock.On("Once", "bar", cb).Return().Once()
	emitter.Mock.On("Listeners", "foo").Return([]*Callback[int]{cb}).Once()
	emitter.Mock.On("RemoveListener", "foo", cb).Return().Once()

	reg.On(emitter, "foo", cb).Once(emitter, "bar", cb).RemoveAllListenersFor(emitter, "foo")

	emitter.AssertExpectations(t)
	assert.Equal(t, []string{"bar"}, reg.Events(emitter))
}

func TestRegistry_EmitterPanicsPropagate(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()
	cb := NewCallback(func(int) {})
	boom := errors.New("malformed event")

	emitter.Mock.On("On", "", cb).Panic(boom.Error())

	assert.PanicsWithValue(t, boom.Error(), func() {
		reg.On(emitter, "", cb)
	})
	assert.Zero(t, reg.Len())
}

func TestRegistry_FinRollsBackWhenEmitterPanics(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()

	emitter.Mock.On("Once", "end", mock.Anything).Panic("emitter gone").Once()
	emitter.Mock.On("Once", "end", mock.Anything).Return().Once()

	assert.PanicsWithValue(t, "emitter gone", func() {
		reg.Fin(emitter, "end")
	})
	assert.False(t, reg.HasFinal(emitter, "end"))
	assert.Zero(t, reg.Len())

	reg.Fin(emitter, "end")

	assert.True(t, reg.HasFinal(emitter, "end"))
	assert.Len(t, reg.Tracked(emitter, "end"), 1)
	emitter.AssertNumberOfCalls(t, "Once", 2)
}

func TestRegistry_FinSurvivesClearDuringInstall(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()

	emitter.Mock.On("Once", "end", mock.Anything).Run(func(mock.Arguments) {
		reg.Clear()
	}).Return().Once()

	reg.Fin(emitter, "end")

	assert.True(t, reg.HasFinal(emitter, "end"))
	assert.Len(t, reg.Tracked(emitter, "end"), 1)

	reg.Fin(emitter, "end")
	emitter.AssertNumberOfCalls(t, "Once", 1)
}

func TestRegistry_UnfinLetsConcurrentFinRearm(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()

	emitter.Mock.On("Once", "end", mock.Anything).Return().Twice()
	emitter.Mock.On("RemoveListener", "end", mock.Anything).Run(func(mock.Arguments) {
		reg.Fin(emitter, "end")
	}).Return().Once()

	reg.Fin(emitter, "end")
	reg.Unfin(emitter, "end")

	assert.True(t, reg.HasFinal(emitter, "end"))
	emitter.AssertNumberOfCalls(t, "Once", 2)
	emitter.AssertExpectations(t)
}

func TestRegistry_UnfinKeepsFinalWhenEmitterPanics(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := newMockEmitter()

	emitter.Mock.On("Once", "end", mock.Anything).Return().Once()
	emitter.Mock.On("RemoveListener", "end", mock.Anything).Panic("emitter gone").Once()

	reg.Fin(emitter, "end")
	assert.Panics(t, func() {
		reg.Unfin(emitter, "end")
	})

	assert.True(t, reg.HasFinal(emitter, "end"))
	assert.Len(t, reg.Tracked(emitter, "end"), 1)
}

func TestRegistry_InvalidArguments(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitter := NewEventEmitter[string, int]()

	isInvalidArgument := func(t *testing.T, f func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		}()
		f()
	}

	isInvalidArgument(t, func() { reg.On(nil, "foo", NewCallback(func(int) {})) })
	isInvalidArgument(t, func() { reg.On(emitter, "foo", nil) })
	isInvalidArgument(t, func() { reg.Once(emitter, "foo", NewCallback[int](nil)) })
	isInvalidArgument(t, func() { reg.Fin(nil, "end") })
	isInvalidArgument(t, func() { reg.Unfin(nil, "end") })

	var typedNil *EventEmitter[string, int]
	isInvalidArgument(t, func() { reg.On(typedNil, "foo", NewCallback(func(int) {})) })
	isInvalidArgument(t, func() { reg.Fin(typedNil, "end") })
	assert.Zero(t, reg.Len())
}

func TestRegistry_ConcurrentRegistrationAndFinal(t *testing.T) {
	reg := NewRegistry[string, int]()
	emitters := make([]*EventEmitter[string, int], 8)
	for i := range emitters {
		emitters[i] = NewEventEmitter[string, int]()
	}

	var wg sync.WaitGroup
	for _, e := range emitters {
		wg.Add(1)
		go func(e *EventEmitter[string, int]) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cb := NewCallback(func(int) {})
				reg.On(e, "data", cb).Fin(e, "end")
				reg.RemoveListener(e, "data", cb)
			}
		}(e)
	}
	wg.Wait()

	for _, e := range emitters {
		assert.True(t, reg.HasFinal(e, "end"))
		assert.Empty(t, reg.Tracked(e, "data"))
	}

	emitters[0].Emit("end", 0)
	assert.Zero(t, reg.Len())
}

func TestRegistry_LogsFinalActivity(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry[string, int](WithLogger(NewWriterLogger(&buf)))
	emitter := NewEventEmitter[string, int]()

	reg.Fin(emitter, "end")
	emitter.Emit("end", 0)

	out := buf.String()
	assert.Contains(t, out, "final armed")
	assert.Contains(t, out, "final event fired")
	assert.Contains(t, out, "[component=registry]")
}
