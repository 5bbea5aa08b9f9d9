package state

// Derived is a read-only store recomputed from other stores.
type Derived[T any] struct {
	out    *Store[T]
	unsubs []func()
}

// Derive2 recomputes fn(prev, a, b) whenever a or b changes. prev is the
// derived value of the previous computation, starting at seed. The first
// computation runs before Derive2 returns, unless Derive2 is itself called
// from a subscriber.
//
// Recomputations run from the notification queue, so a Set that fn makes on
// one of its own inputs is observed by the next recomputation, never by the
// current one.
func Derive2[A, B, T any](rt *Runtime, a Readable[A], b Readable[B], seed T, fn func(prev T, a A, b B) T) *Derived[T] {
	d := &Derived[T]{out: NewStore(rt, seed)}

	prev := seed
	ready := false
	recompute := func() {
		if !ready {
			return
		}
		prev = fn(prev, a.Get(), b.Get())
		d.out.Set(prev)
	}

	d.unsubs = append(d.unsubs,
		a.Subscribe(func(A) { recompute() }),
		b.Subscribe(func(B) { recompute() }),
	)
	ready = true
	rt.enqueue(recompute)
	return d
}

// Get returns the last computed value.
func (d *Derived[T]) Get() T { return d.out.Get() }

// Subscribe implements Readable.
func (d *Derived[T]) Subscribe(fn func(T)) func() { return d.out.Subscribe(fn) }

// Close detaches the derived value from its inputs.
func (d *Derived[T]) Close() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}
