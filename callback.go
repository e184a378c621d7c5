package libreg

// Callback is an identity handle around a listener func. Go funcs are not comparable,
// so emitters and the Registry match registrations by *Callback pointer.
type Callback[V any] struct {
	fn func(V)
}

// NewCallback wraps fn into a new handle. Wrapping the same func twice yields two distinct callbacks.
func NewCallback[V any](fn func(V)) *Callback[V] {
	return &Callback[V]{fn: fn}
}

// Call invokes the wrapped func.
func (c *Callback[V]) Call(data V) {
	c.fn(data)
}
