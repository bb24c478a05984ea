// Package state provides the observable container that every domain
// service keeps its last-known-good copy of remote data in. Containers are
// injected into services, never reached as globals; only the owning
// service mutates one.
package state

import (
	"sync"
)

// Token identifies one load request. Results are applied only when their
// token is still the most recently issued one, so a slow early request can
// never overwrite a later refresh.
type Token uint64

// Container holds remote data alongside loading and error state and
// notifies subscribers on every change.
type Container[T any] struct {
	mu      sync.Mutex
	data    T
	loading bool
	err     error
	seq     Token

	nextSub int
	subs    map[int]chan struct{}
}

func NewContainer[T any]() *Container[T] {
	return &Container[T]{subs: make(map[int]chan struct{})}
}

// Get returns the current data, loading flag and last error.
func (c *Container[T]) Get() (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.data, c.loading, c.err
}

// Data returns the current data only.
func (c *Container[T]) Data() T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.data
}

// Err returns the last load or mutation error.
func (c *Container[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Begin marks the container loading and issues the token the caller must
// present to Complete.
func (c *Container[T]) Begin() Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.loading = true

	c.notifyLocked()

	return c.seq
}

// Complete applies a load result. Results from superseded tokens are
// discarded and Complete reports whether the result was applied.
func (c *Container[T]) Complete(token Token, data T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.seq {
		return false
	}

	c.loading = false
	c.err = err

	if err == nil {
		c.data = data
	}

	c.notifyLocked()

	return true
}

// Mutate applies a local transformation to the data. Used for optimistic
// updates and realtime patches.
func (c *Container[T]) Mutate(fn func(T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = fn(c.data)
	c.err = nil

	c.notifyLocked()
}

// Snapshot returns the current data for a later Restore.
func (c *Container[T]) Snapshot() T {
	return c.Data()
}

// Restore puts back a snapshot after a failed optimistic mutation and
// records the failure.
func (c *Container[T]) Restore(snapshot T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = snapshot
	c.err = err

	c.notifyLocked()
}

// Subscribe registers a change listener. The returned channel receives a
// signal (coalesced, buffer one) after every state change; cancel must be
// called when the consumer goes away.
func (c *Container[T]) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++

	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subs, id)
	}
}

func (c *Container[T]) notifyLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
