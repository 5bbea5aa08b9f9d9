package domain

import (
	"errors"
	"fmt"
)

// ErrAudioContextNotStarted is returned when audio is requested before the
// sampler was initialized.
var ErrAudioContextNotStarted = errors.New("audio context not started")

// DatasetLoadError reports a network or parse failure while loading the dataset.
type DatasetLoadError struct {
	Source string
	Err    error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Source, e.Err)
}

func (e *DatasetLoadError) Unwrap() error { return e.Err }

// SampleLoadError reports a single sample file that could not be loaded.
type SampleLoadError struct {
	Voice Voice
	Note  string
	URL   string
	Err   error
}

func (e *SampleLoadError) Error() string {
	return fmt.Sprintf("load sample %s/%s from %s: %v", e.Voice, e.Note, e.URL, e.Err)
}

func (e *SampleLoadError) Unwrap() error { return e.Err }

// ElementNotFoundError reports that a polled UI target never became available.
type ElementNotFoundError struct {
	Target string
	Tries  int
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s not available after %d tries", e.Target, e.Tries)
}
