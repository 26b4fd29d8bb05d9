// Package observable holds a value that can be read at any time and watched for changes.
package observable

import (
	"context"
	"sync"
)

// Reader is the read-only side of a Value.
type Reader[T comparable] interface {
	Get() T
	Subscribe(ctx context.Context) <-chan T
}

// Value is a conflated holder: subscribers see the current value first, then every change,
// but a slow subscriber only ever gets the latest value it has not yet received.
type Value[T comparable] struct {
	mu          sync.RWMutex
	current     T
	subscribers map[chan T]struct{}
}

var _ Reader[string] = (*Value[string])(nil)

func New[T comparable](initial T) *Value[T] {
	return &Value[T]{
		current:     initial,
		subscribers: make(map[chan T]struct{}),
	}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set stores next and notifies subscribers when it differs from the current value.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if next == v.current {
		return
	}
	v.current = next
	for ch := range v.subscribers {
		offer(ch, next)
	}
}

// Subscribe returns a channel that receives the current value and all later changes.
// The channel is closed once ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	ch <- v.current
	v.subscribers[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subscribers, ch)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// offer replaces any unread value in ch with next. Callers hold the write lock.
func offer[T any](ch chan T, next T) {
	select {
	case ch <- next:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- next
}
