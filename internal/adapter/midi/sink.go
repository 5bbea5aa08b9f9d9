// Package midi plays sampler triggers on a MIDI output port.
package midi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/jonboulle/clockwork"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI channels per voice, zero-based.
var channels = map[domain.Voice]uint8{
	domain.Piano:    0,
	domain.Bass:     1,
	domain.HangDrum: 2,
	domain.DrumKit:  9,
}

// General MIDI percussion keys.
var drumKeys = map[domain.DrumElement]uint8{
	domain.Kick:    36,
	domain.Snare:   38,
	domain.Hat:     42,
	domain.OpenHat: 46,
	domain.Ride:    51,
	domain.Tom:     45,
}

const (
	ccVolume      = 7
	ccAllNotesOff = 123
	defaultVolume = 100
	maxMIDIValue  = 127
)

// Sink implements sampler.Sink on top of a gomidi send function.
type Sink struct {
	send   func(gomidi.Message) error
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	volume  uint8
	nextID  uint64
	pending map[uint64]clockwork.Timer
	closed  bool
}

// Open finds the named output port and returns a sink writing to it.
func Open(portName string, clock clockwork.Clock, logger *slog.Logger) (*Sink, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find midi port %q: %w", portName, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open midi port %q: %w", portName, err)
	}
	return New(send, clock, logger), nil
}

// New creates a sink around send.
func New(send func(gomidi.Message) error, clock clockwork.Clock, logger *slog.Logger) *Sink {
	return &Sink{
		send:    send,
		clock:   clock,
		logger:  logger,
		volume:  defaultVolume,
		pending: make(map[uint64]clockwork.Timer),
	}
}

// Start pushes the current volume to every channel.
func (s *Sink) Start(_ context.Context) error {
	s.mu.Lock()
	v := s.volume
	s.mu.Unlock()
	return s.broadcast(ccVolume, v)
}

// Trigger sends a note-on now and schedules its note-off after the
// trigger's duration.
func (s *Sink) Trigger(_ context.Context, t sampler.Trigger) error {
	ch, ok := channels[t.Voice]
	if !ok {
		return fmt.Errorf("no midi channel for voice %q", t.Voice)
	}
	key, err := Key(t.Voice, t.Note)
	if err != nil {
		return err
	}
	vel := Velocity(t.Velocity)
	if vel == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("midi sink closed")
	}
	if err := s.send(gomidi.NoteOn(ch, key, vel)); err != nil {
		return fmt.Errorf("note on: %w", err)
	}

	id := s.nextID
	s.nextID++
	s.pending[id] = s.clock.AfterFunc(t.Duration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.pending[id]; !ok {
			return
		}
		delete(s.pending, id)
		if err := s.send(gomidi.NoteOff(ch, key)); err != nil {
			s.logger.Warn("midi note off failed", "voice", t.Voice, "note", t.Note, "error", err)
		}
	})
	return nil
}

// SetVolume maps a master gain in dB to CC7 on every channel.
func (s *Sink) SetVolume(db float64) {
	v := VolumeCC(db)
	s.mu.Lock()
	s.volume = v
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if err := s.broadcast(ccVolume, v); err != nil {
		s.logger.Warn("midi volume failed", "error", err)
	}
}

// Close cancels pending note-offs and silences every channel.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	return s.broadcast(ccAllNotesOff, 0)
}

// Pending returns the number of notes still waiting for their note-off.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Sink) broadcast(cc, value uint8) error {
	var errs []error
	for _, ch := range sortedChannels() {
		if err := s.send(gomidi.ControlChange(ch, cc, value)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedChannels() []uint8 {
	return []uint8{channels[domain.Piano], channels[domain.Bass], channels[domain.HangDrum], channels[domain.DrumKit]}
}

// Velocity maps a [0,1] velocity to 1..127. Zero and below map to 0,
// meaning nothing is played.
func Velocity(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	r := math.Round(v * maxMIDIValue)
	return uint8(math.Min(math.Max(r, 1), maxMIDIValue))
}

// VolumeCC maps a gain in dB to a CC7 value.
func VolumeCC(db float64) uint8 {
	if math.IsNaN(db) || math.IsInf(db, -1) {
		return 0
	}
	r := math.Round(maxMIDIValue * math.Pow(10, db/20))
	return uint8(math.Min(math.Max(r, 0), maxMIDIValue))
}

// Key returns the MIDI key for a note of the given voice. Drumkit notes
// are drum letters; every other voice uses scientific pitch names.
func Key(voice domain.Voice, note string) (uint8, error) {
	if voice == domain.DrumKit {
		for el, letter := range domain.DrumLetters {
			if letter == note {
				return drumKeys[el], nil
			}
		}
		return 0, fmt.Errorf("unknown drum note %q", note)
	}
	return PitchKey(note)
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// PitchKey parses a scientific pitch name such as "C4", "F#2" or "Bb3".
// C4 is key 60.
func PitchKey(note string) (uint8, error) {
	if note == "" {
		return 0, errors.New("empty note")
	}
	st, ok := semitones[note[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note %q", note)
	}
	rest := note[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			st++
		} else {
			st--
		}
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", note)
	}
	key := (octave+1)*12 + st
	if key < 0 || key > maxMIDIValue {
		return 0, fmt.Errorf("note %q outside the midi range", note)
	}
	return uint8(key), nil
}
