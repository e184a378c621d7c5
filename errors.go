package libreg

import (
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is raised (as a panic) when a Registry method is handed a nil emitter or callback.
	ErrInvalidArgument = errors.New("invalid argument")
)

func mustEmitter[K comparable, V any](e Emitter[K, V], op string) {
	if isNil(e) {
		panic(errors.Wrap(ErrInvalidArgument, op+": nil emitter"))
	}
}

func mustCallback[V any](cb *Callback[V], op string) {
	if cb == nil || cb.fn == nil {
		panic(errors.Wrap(ErrInvalidArgument, op+": nil callback"))
	}
}

// isNil also catches typed nils, e.g. a nil *EventEmitter stored in an Emitter.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
