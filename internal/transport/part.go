package transport

import (
	"sync/atomic"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

// Part is a looping sequence of note events bound to one voice.
type Part struct {
	transport *Transport
	id        uint64
	voice     domain.Voice
	events    []domain.NoteEvent
	cb        Callback
	since     float64 // guarded by transport.mu
	disposed  atomic.Bool
}

// Voice returns the voice the part plays.
func (p *Part) Voice() domain.Voice { return p.voice }

// Events returns a copy of the part's events.
func (p *Part) Events() []domain.NoteEvent {
	return append([]domain.NoteEvent(nil), p.events...)
}

// Disposed reports whether Dispose was called.
func (p *Part) Disposed() bool { return p.disposed.Load() }

// Dispose unregisters the part. Events already handed to a sink keep
// sounding; no further events fire. Disposing twice is a no-op.
func (p *Part) Dispose() {
	if p == nil || !p.disposed.CompareAndSwap(false, true) {
		return
	}
	p.transport.remove(p)
}
