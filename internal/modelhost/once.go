package modelhost

import (
	"sync"
	"sync/atomic"
)

// Once builds a value at most once. Unlike sync.Once a failed build is not
// remembered, so a later call may retry after the configuration is fixed.
type Once[T any] struct {
	value atomic.Pointer[T]
	mu    sync.Mutex
}

// Get returns the stored value, building it under the lock on first use.
func (o *Once[T]) Get(build func() (*T, error)) (*T, error) {
	if v := o.value.Load(); v != nil {
		return v, nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if v := o.value.Load(); v != nil {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	o.value.Store(v)
	return v, nil
}

// Peek returns the value if it was built, or nil.
func (o *Once[T]) Peek() *T {
	return o.value.Load()
}
