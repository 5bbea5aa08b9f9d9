package state

import "sync"

// Runtime queues store notifications so that a Set made from inside a
// subscriber runs after the current subscriber returns, never nested in it.
// Stores sharing a Runtime see one global notification order.
//
// Values may be read from any goroutine. Writers are expected to be
// serialized by the caller; a Set racing an ongoing flush has its
// notifications delivered on the flushing goroutine.
type Runtime struct {
	mu       sync.Mutex
	queue    []func()
	flushing bool
}

// NewRuntime creates an idle runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) enqueue(fn func()) {
	r.mu.Lock()
	r.queue = append(r.queue, fn)
	if r.flushing {
		r.mu.Unlock()
		return
	}
	r.flushing = true
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.flushing = false
			r.mu.Unlock()
			return
		}
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		next()
	}
}

// Readable is an observable value.
type Readable[T any] interface {
	Get() T
	// Subscribe calls fn with the current value, then after every change.
	// The returned func unsubscribes.
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscriber[T any] struct {
	fn     func(T)
	active bool
}

// Store is a writable observable cell.
type Store[T any] struct {
	rt    *Runtime
	equal func(a, b T) bool

	mu    sync.Mutex
	value T
	subs  []*subscriber[T]
}

// NewStore creates a store that notifies on every Set.
func NewStore[T any](rt *Runtime, initial T) *Store[T] {
	return &Store[T]{rt: rt, value: initial}
}

// NewComparableStore creates a store that skips Sets of an equal value.
func NewComparableStore[T comparable](rt *Runtime, initial T) *Store[T] {
	s := NewStore(rt, initial)
	s.equal = func(a, b T) bool { return a == b }
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and queues notifications.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	if s.equal != nil && s.equal(s.value, v) {
		s.mu.Unlock()
		return
	}
	s.value = v
	subs := append([]*subscriber[T](nil), s.subs...)
	s.mu.Unlock()

	s.rt.enqueue(func() {
		for _, sub := range subs {
			s.mu.Lock()
			active := sub.active
			s.mu.Unlock()
			if active {
				sub.fn(v)
			}
		}
	})
}

// Update sets the value to fn(current).
func (s *Store[T]) Update(fn func(T) T) {
	s.Set(fn(s.Get()))
}

// Subscribe implements Readable.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	sub := &subscriber[T]{fn: fn, active: true}
	s.subs = append(s.subs, sub)
	v := s.value
	s.mu.Unlock()

	fn(v)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sub.active = false
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	}
}
