package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

// Sample is a decoded sample file.
type Sample struct {
	URL        string
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
	PCM        []int // interleaved
}

// Duration returns the playback length of the sample.
func (s *Sample) Duration() time.Duration {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Frames) / float64(s.SampleRate) * float64(time.Second))
}

// Trigger is one note handed to the audio sink.
type Trigger struct {
	Voice     domain.Voice
	Note      string
	Velocity  float64 // [0,1]
	Duration  time.Duration
	When      time.Time
	StationID string
	Sample    *Sample
}

// Sink is the audio engine the bank forwards triggers to.
type Sink interface {
	Start(ctx context.Context) error
	Trigger(ctx context.Context, t Trigger) error
	SetVolume(db float64)
	Close() error
}

// MultiSink fans every call out to all of its sinks.
type MultiSink []Sink

// Start starts every sink and returns the joined errors.
func (m MultiSink) Start(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Start(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Trigger forwards to every sink; a failing sink does not stop the others.
func (m MultiSink) Trigger(ctx context.Context, t Trigger) error {
	var errs []error
	for _, s := range m {
		if err := s.Trigger(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) SetVolume(db float64) {
	for _, s := range m {
		s.SetVolume(db)
	}
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Start(context.Context) error            { return nil }
func (NopSink) Trigger(context.Context, Trigger) error { return nil }
func (NopSink) SetVolume(float64)                      {}
func (NopSink) Close() error                           { return nil }
