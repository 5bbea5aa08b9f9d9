package transport

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Lookahead delays every state change so scheduled audio is not cut short.
const Lookahead = 50 * time.Millisecond

// LoopBeats is the loop length. Loop start is always beat 0.
const LoopBeats = domain.Months

// idleWait bounds how long Run sleeps when nothing is due.
const idleWait = time.Second

// dueSlack is added to event wake-ups: Process fires beats strictly before
// the current position, so waking exactly on a beat would miss it.
const dueSlack = time.Microsecond

// State is the transport play state.
type State int

const (
	Stopped State = iota
	Started
	Paused
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Callback receives each due event together with the audio time it is
// aligned to.
type Callback func(when time.Time, ev domain.NoteEvent)

// Transport is the shared musical clock. Position advances at bpm/60 beats
// per second while started and wraps every LoopBeats beats. All methods are
// safe for concurrent use; callbacks run without the lock held.
type Transport struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	bpm      float64
	volumeDB float64

	// position(t) = anchorBeats + (min(t, freezeAt) - anchorTime) * bpm/60
	anchorBeats float64
	anchorTime  time.Time
	freezeAt    time.Time // zero while started

	last   float64 // events before this beat have fired
	parts  map[uint64]*Part
	nextID uint64

	volumeListeners []func(db float64)
	wake            chan struct{}
}

// New creates a stopped transport at 120 bpm and 0 dB.
func New(clock clockwork.Clock, logger *slog.Logger) *Transport {
	return &Transport{
		clock:  clock,
		logger: logger,
		bpm:    120,
		parts:  make(map[uint64]*Part),
		wake:   make(chan struct{}, 1),
	}
}

// State returns the current play state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BPM returns the current tempo.
func (t *Transport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// VolumeDB returns the master volume in decibels.
func (t *Transport) VolumeDB() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volumeDB
}

// Position returns the current position in beats within the loop.
func (t *Transport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopped {
		return 0
	}
	return math.Mod(t.positionAt(t.clock.Now()), LoopBeats)
}

// SetBPM changes the tempo. The position is re-anchored so it stays
// continuous across the change.
func (t *Transport) SetBPM(bpm float64) error {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return fmt.Errorf("invalid bpm %v", bpm)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if bpm == t.bpm {
		return nil
	}

	now := t.clock.Now()
	if t.state != Stopped && now.After(t.anchorTime) {
		t.anchorBeats = t.positionAt(now)
		t.anchorTime = now
	}
	t.bpm = bpm
	t.notify()
	return nil
}

// VolumeToDB maps a linear volume in [0,1] to decibels as 12*ln(v).
// Zero maps to -Inf.
func VolumeToDB(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return math.Inf(-1)
	}
	return 12 * math.Log(math.Min(v, 1))
}

// SetVolume sets the master volume from a linear value in [0,1] and
// forwards the decibel value to every volume listener.
func (t *Transport) SetVolume(v float64) {
	db := VolumeToDB(v)

	t.mu.Lock()
	t.volumeDB = db
	listeners := append([]func(float64){}, t.volumeListeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(db)
	}
}

// OnVolume registers a listener for master volume changes.
func (t *Transport) OnVolume(fn func(db float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volumeListeners = append(t.volumeListeners, fn)
}

// Start begins or resumes playback Lookahead from now. Starting an already
// started transport is a no-op.
func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Started {
		return
	}

	at := t.clock.Now().Add(Lookahead)
	switch t.state {
	case Paused:
		t.anchorBeats = t.positionAt(t.freezeAt)
	case Stopped:
		t.anchorBeats = 0
		t.last = 0
		for _, p := range t.parts {
			p.since = 0
		}
	}
	t.anchorTime = at
	t.freezeAt = time.Time{}
	t.state = Started
	t.logger.Debug("transport started", "bpm", t.bpm, "position", t.anchorBeats)
	t.notify()
}

// Pause freezes the position Lookahead from now. Only a started transport
// can be paused.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Started {
		return
	}
	t.freezeAt = t.clock.Now().Add(Lookahead)
	t.state = Paused
	t.logger.Debug("transport paused")
	t.notify()
}

// Stop halts playback Lookahead from now and rewinds to beat 0 on the next
// Start. Stopping a stopped transport is a no-op.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopped {
		return
	}
	if t.state == Started {
		t.freezeAt = t.clock.Now().Add(Lookahead)
	}
	t.state = Stopped
	t.logger.Debug("transport stopped")
	t.notify()
}

// Add registers a looping part starting at beat 0. Each event fires at beat
// k*LoopBeats + Month for every loop k reached after registration.
func (t *Transport) Add(voice domain.Voice, events []domain.NoteEvent, cb Callback) *Part {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	p := &Part{
		transport: t,
		id:        t.nextID,
		voice:     voice,
		events:    append([]domain.NoteEvent(nil), events...),
		cb:        cb,
	}
	if t.state != Stopped {
		p.since = math.Max(t.last, t.positionAt(t.clock.Now()))
	}
	t.parts[p.id] = p
	t.notify()
	return p
}

// Parts returns the registered parts ordered by registration.
func (t *Transport) Parts() []*Part {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedParts()
}

func (t *Transport) remove(p *Part) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.parts[p.id]; !ok {
		return false
	}
	delete(t.parts, p.id)
	t.notify()
	return true
}

type firing struct {
	beat float64
	when time.Time
	part *Part
	ev   domain.NoteEvent
}

// Process fires every event whose beat lies between the previous call and
// the position at now. It returns the number of events fired.
func (t *Transport) Process(now time.Time) int {
	t.mu.Lock()
	if t.state == Stopped && t.freezeAt.IsZero() {
		t.mu.Unlock()
		return 0
	}

	pos := t.positionAt(now)
	if pos-t.last > LoopBeats {
		t.last = pos - LoopBeats
	}

	var due []firing
	for _, p := range t.sortedParts() {
		from := math.Max(t.last, p.since)
		for _, ev := range p.events {
			for _, beat := range beatsIn(ev.Month, from, pos) {
				due = append(due, firing{beat: beat, when: t.timeOf(beat), part: p, ev: ev})
			}
		}
	}
	t.last = math.Max(t.last, pos)
	if t.state == Stopped && !now.Before(t.freezeAt) {
		t.freezeAt = time.Time{}
	}
	t.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].beat < due[j].beat })

	fired := 0
	for _, f := range due {
		if f.part.Disposed() {
			continue
		}
		if f.part.cb != nil {
			f.part.cb(f.when, f.ev)
		}
		fired++
	}
	return fired
}

// Run dispatches events until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	t.logger.Info("transport loop started")
	for {
		now := t.clock.Now()
		t.Process(now)

		wait := t.nextWait(now)
		select {
		case <-ctx.Done():
			t.logger.Info("transport loop stopping", "reason", ctx.Err())
			return nil
		case <-t.wake:
		case <-t.clock.After(wait):
		}
	}
}

// nextWait returns how long to sleep until the next event is due. After a
// Pause or Stop the events before the freeze point are still due, so the
// loop keeps waking for them until the freeze time passes.
func (t *Transport) nextWait(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit := math.Inf(1)
	switch {
	case t.state == Started:
	case !t.freezeAt.IsZero() && now.Before(t.freezeAt):
		limit = t.positionAt(t.freezeAt)
	default:
		return idleWait
	}

	next := math.Inf(1)
	for _, p := range t.parts {
		from := math.Max(t.last, p.since)
		for _, ev := range p.events {
			if b := nextBeat(ev.Month, from); b < next {
				next = b
			}
		}
	}

	switch {
	case next < limit && !math.IsInf(next, 1):
		return clampWait(t.timeOf(next).Sub(now) + dueSlack)
	case !math.IsInf(limit, 1):
		return clampWait(t.freezeAt.Sub(now))
	default:
		return idleWait
	}
}

func clampWait(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return min(d, idleWait)
}

func (t *Transport) positionAt(now time.Time) float64 {
	end := now
	if !t.freezeAt.IsZero() && t.freezeAt.Before(end) {
		end = t.freezeAt
	}
	elapsed := end.Sub(t.anchorTime).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return t.anchorBeats + elapsed*t.bpm/60
}

func (t *Transport) timeOf(beat float64) time.Time {
	secs := (beat - t.anchorBeats) * 60 / t.bpm
	return t.anchorTime.Add(time.Duration(secs * float64(time.Second)))
}

func (t *Transport) sortedParts() []*Part {
	out := make([]*Part, 0, len(t.parts))
	for _, p := range t.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (t *Transport) notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// beatsIn returns the absolute beats k*LoopBeats+month within [from, to).
func beatsIn(month int, from, to float64) []float64 {
	var out []float64
	for b := nextBeat(month, from); b < to; b += LoopBeats {
		out = append(out, b)
	}
	return out
}

// nextBeat returns the first beat k*LoopBeats+month not before from.
func nextBeat(month int, from float64) float64 {
	k := math.Ceil((from - float64(month)) / LoopBeats)
	if k < 0 {
		k = 0
	}
	return k*LoopBeats + float64(month)
}
