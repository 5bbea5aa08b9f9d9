package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher downloads and decodes a single sample file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Sample, error)
}

// maxConcurrentFetches bounds parallel sample downloads.
const maxConcurrentFetches = 8

// Bank holds the four sampler voices and forwards triggers to the sink.
type Bank struct {
	fetcher   Fetcher
	sink      Sink
	baseURL   *url.URL
	catalogue Catalogue
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	started   atomic.Bool

	mu      sync.RWMutex
	samples map[domain.Voice]map[string]*Sample

	loadMu sync.Mutex // serializes Load
	scope  atomic.Pointer[string]

	progressMu sync.Mutex
	progress   float64
}

// NewBank creates an empty bank. baseURL is where catalogue paths resolve.
func NewBank(fetcher Fetcher, sink Sink, baseURL string, catalogue Catalogue, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Bank, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse samples base url: %w", err)
	}
	return &Bank{
		fetcher:   fetcher,
		sink:      sink,
		baseURL:   base,
		catalogue: catalogue,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		samples:   make(map[domain.Voice]map[string]*Sample),
	}, nil
}

// Start opens the audio sink. Triggers fail with
// domain.ErrAudioContextNotStarted until Start succeeds.
func (b *Bank) Start(ctx context.Context) error {
	if b.started.Load() {
		return nil
	}
	if err := b.sink.Start(ctx); err != nil {
		return fmt.Errorf("start audio sink: %w", err)
	}
	b.started.Store(true)
	b.logger.Info("audio sink started")
	return nil
}

// Started reports whether Start succeeded.
func (b *Bank) Started() bool { return b.started.Load() }

// Progress returns the fraction of distinct sample files that finished
// loading, successfully or not.
func (b *Bank) Progress() float64 {
	b.progressMu.Lock()
	defer b.progressMu.Unlock()
	return b.progress
}

// Scope restricts later loads to the notes of the named arrangement plus
// the drum kit. An empty name widens it back to the whole catalogue.
func (b *Bank) Scope(arrangement string) {
	b.scope.Store(&arrangement)
}

func (b *Bank) active() Catalogue {
	if name := b.scope.Load(); name != nil && *name != "" {
		return b.catalogue.ForArrangement(*name)
	}
	return b.catalogue
}

// Load downloads every distinct file of the active scope concurrently.
// Samples outside the scope are released and files already held are
// skipped, so switching between arrangements only fetches the difference.
// onProgress is called after each file with the new, non-decreasing
// progress value, and reaches 1 once every file reported done. Failed
// files are logged and returned as joined *domain.SampleLoadError values;
// they never stop the remaining downloads.
func (b *Bank) Load(ctx context.Context, onProgress func(float64)) error {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()

	scope := b.active()
	paths, users := scope.files()
	total := len(paths)
	b.release(scope)
	if total == 0 {
		b.reportProgress(1, onProgress)
		return nil
	}

	var missing []string
	for _, path := range paths {
		if !b.holds(users[path]) {
			missing = append(missing, path)
		}
	}

	b.logger.Info("loading samples", "files", total, "missing", len(missing))

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, maxConcurrentFetches)
		done atomic.Int64
		mu   sync.Mutex
		errs []error
	)
	done.Store(int64(total - len(missing)))
	if len(missing) == 0 {
		b.reportProgress(1, onProgress)
	}
	for _, path := range missing {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			refs := users[path]
			if err := b.loadFile(ctx, path, refs); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			b.reportProgress(float64(done.Add(1))/float64(total), onProgress)
		}(path)
	}
	wg.Wait()

	b.logger.Info("samples loaded", "files", len(missing), "failed", len(errs))
	return errors.Join(errs...)
}

// holds reports whether every user of a file already has its sample.
func (b *Bank) holds(refs []fileRef) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range refs {
		if _, ok := b.samples[r.voice][r.note]; !ok {
			return false
		}
	}
	return true
}

// release drops the samples of notes outside scope.
func (b *Bank) release(scope Catalogue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for voice, notes := range b.samples {
		for note := range notes {
			if _, ok := scope[voice][note]; !ok {
				delete(notes, note)
			}
		}
	}
}

func (b *Bank) loadFile(ctx context.Context, path string, refs []fileRef) error {
	ref, err := url.Parse(path)
	if err != nil {
		return b.loadFailed(refs, path, err)
	}
	u := b.baseURL.ResolveReference(ref).String()

	start := b.clock.Now()
	sample, err := b.fetcher.Fetch(ctx, u)
	b.metrics.SampleFetchDuration.Observe(b.clock.Since(start).Seconds())
	if err != nil {
		return b.loadFailed(refs, u, err)
	}

	b.mu.Lock()
	for _, r := range refs {
		if b.samples[r.voice] == nil {
			b.samples[r.voice] = make(map[string]*Sample)
		}
		b.samples[r.voice][r.note] = sample
		b.metrics.SamplesLoaded.WithLabelValues(string(r.voice), "success").Inc()
	}
	b.mu.Unlock()
	return nil
}

func (b *Bank) loadFailed(refs []fileRef, u string, err error) error {
	var errs []error
	for _, r := range refs {
		loadErr := &domain.SampleLoadError{Voice: r.voice, Note: r.note, URL: u, Err: err}
		b.logger.Warn("sample load failed", "voice", r.voice, "note", r.note, "url", u, "error", err)
		b.metrics.SamplesLoaded.WithLabelValues(string(r.voice), "error").Inc()
		errs = append(errs, loadErr)
	}
	return errors.Join(errs...)
}

func (b *Bank) reportProgress(p float64, onProgress func(float64)) {
	b.progressMu.Lock()
	defer b.progressMu.Unlock()
	if p < b.progress {
		return
	}
	b.progress = p
	b.metrics.SampleDownloadProgress.Set(p)
	if onProgress != nil {
		onProgress(p)
	}
}

// Loaded reports whether voice has a sample for note.
func (b *Bank) Loaded(voice domain.Voice, note string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.samples[voice][note]
	return ok
}

// TriggerAttackRelease plays t.Note on t.Voice. Notes without a loaded
// sample and silent notes are dropped without error.
func (b *Bank) TriggerAttackRelease(ctx context.Context, t Trigger) error {
	if !b.started.Load() {
		return domain.ErrAudioContextNotStarted
	}
	if t.Note == "" || t.Velocity <= 0 {
		return nil
	}

	b.mu.RLock()
	sample, ok := b.samples[t.Voice][t.Note]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	t.Sample = sample
	if err := b.sink.Trigger(ctx, t); err != nil {
		b.metrics.SinkErrors.WithLabelValues(string(t.Voice)).Inc()
		return fmt.Errorf("trigger %s %s: %w", t.Voice, t.Note, err)
	}
	b.metrics.NotesTriggered.WithLabelValues(string(t.Voice)).Inc()
	return nil
}

// SetVolume forwards the master volume to the sink.
func (b *Bank) SetVolume(db float64) {
	b.sink.SetVolume(db)
}

// Close releases the sink.
func (b *Bank) Close() error {
	return b.sink.Close()
}

// DurationFromSeconds converts builder durations to a time.Duration.
func DurationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
