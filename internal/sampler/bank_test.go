package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://samples.test/audio/"

type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (*Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[u]++
	if f.fail[u] {
		return nil, errors.New("404 not found")
	}
	return &Sample{URL: u, SampleRate: 44100, Channels: 1, BitDepth: 16, Frames: 22050}, nil
}

type recordingSink struct {
	mu       sync.Mutex
	started  bool
	triggers []Trigger
	volumes  []float64
	err      error
}

func (s *recordingSink) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *recordingSink) Trigger(_ context.Context, t Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.triggers = append(s.triggers, t)
	return nil
}

func (s *recordingSink) SetVolume(db float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes = append(s.volumes, db)
}

func (s *recordingSink) Close() error { return nil }

func testCatalogue() Catalogue {
	return Catalogue{
		domain.Piano:    {"C4": "piano/C4.wav", "D4": "piano/D4.wav"},
		domain.Bass:     {"C2": "bass/C2.wav"},
		domain.HangDrum: {"C4": "piano/C4.wav"}, // shared with the piano
		domain.DrumKit:  {"A": "drumkit/kick.wav"},
	}
}

func newTestBank(t *testing.T, fetcher Fetcher, sink Sink) (*Bank, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	b, err := NewBank(fetcher, sink, testBaseURL, testCatalogue(), clockwork.NewFakeClock(), slog.Default(), metrics)
	require.NoError(t, err)
	return b, metrics
}

func TestBank_LoadDownloadsDistinctFilesOnce(t *testing.T) {
	fetcher := &fakeFetcher{}
	b, metrics := newTestBank(t, fetcher, &recordingSink{})

	require.NoError(t, b.Load(context.Background(), nil))

	assert.Len(t, fetcher.calls, 4)
	assert.Equal(t, 1, fetcher.calls[testBaseURL+"piano/C4.wav"])
	assert.True(t, b.Loaded(domain.Piano, "C4"))
	assert.True(t, b.Loaded(domain.HangDrum, "C4"))
	assert.True(t, b.Loaded(domain.DrumKit, "A"))
	assert.Equal(t, 1.0, b.Progress())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SampleDownloadProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SamplesLoaded.WithLabelValues("hangdrum", "success")))
}

func TestBank_ProgressIsMonotoneAndReachesOneDespiteFailures(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]bool{testBaseURL + "bass/C2.wav": true}}
	b, metrics := newTestBank(t, fetcher, &recordingSink{})

	var mu sync.Mutex
	var seen []float64
	err := b.Load(context.Background(), func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p)
	})

	var loadErr *domain.SampleLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, domain.Bass, loadErr.Voice)
	assert.Equal(t, "C2", loadErr.Note)

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 1.0, seen[len(seen)-1])
	assert.False(t, b.Loaded(domain.Bass, "C2"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SamplesLoaded.WithLabelValues("bass", "error")))
}

func TestBank_ScopeFetchesOnlyMissingFiles(t *testing.T) {
	fetcher := &fakeFetcher{}
	b, _ := newTestBank(t, fetcher, &recordingSink{})
	ctx := context.Background()

	b.Scope("Am")
	require.NoError(t, b.Load(ctx, nil))
	assert.Len(t, fetcher.calls, 4)

	// Em keeps piano D4 and the kick, and uses neither C4 nor C2
	var seen []float64
	b.Scope("Em")
	require.NoError(t, b.Load(ctx, func(p float64) { seen = append(seen, p) }))
	assert.Equal(t, 1, fetcher.calls[testBaseURL+"piano/D4.wav"])
	assert.True(t, b.Loaded(domain.Piano, "D4"))
	assert.False(t, b.Loaded(domain.Piano, "C4"))
	assert.False(t, b.Loaded(domain.HangDrum, "C4"))
	assert.False(t, b.Loaded(domain.Bass, "C2"))
	assert.True(t, b.Loaded(domain.DrumKit, "A"))
	assert.Equal(t, []float64{1}, seen)

	b.Scope("Am")
	require.NoError(t, b.Load(ctx, nil))
	assert.Equal(t, 2, fetcher.calls[testBaseURL+"piano/C4.wav"])
	assert.Equal(t, 2, fetcher.calls[testBaseURL+"bass/C2.wav"])
	assert.Equal(t, 1, fetcher.calls[testBaseURL+"drumkit/kick.wav"])
	assert.True(t, b.Loaded(domain.HangDrum, "C4"))
	assert.Equal(t, 1.0, b.Progress())
}

func TestBank_EmptyCatalogueIsComplete(t *testing.T) {
	b, err := NewBank(&fakeFetcher{}, NopSink{}, testBaseURL, Catalogue{}, clockwork.NewFakeClock(), slog.Default(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	require.NoError(t, b.Load(context.Background(), nil))
	assert.Equal(t, 1.0, b.Progress())
}

func TestBank_TriggerBeforeStart(t *testing.T) {
	b, _ := newTestBank(t, &fakeFetcher{}, &recordingSink{})
	err := b.TriggerAttackRelease(context.Background(), Trigger{Voice: domain.Piano, Note: "C4", Velocity: 0.5})
	assert.ErrorIs(t, err, domain.ErrAudioContextNotStarted)
}

func TestBank_TriggerAttackRelease(t *testing.T) {
	sink := &recordingSink{}
	b, metrics := newTestBank(t, &fakeFetcher{}, sink)
	require.NoError(t, b.Load(context.Background(), nil))
	require.NoError(t, b.Start(context.Background()))
	assert.True(t, sink.started)

	when := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, b.TriggerAttackRelease(context.Background(), Trigger{
		Voice: domain.Piano, Note: "D4", Velocity: 0.1, Duration: time.Second, When: when,
	}))

	require.Len(t, sink.triggers, 1)
	got := sink.triggers[0]
	assert.Equal(t, "D4", got.Note)
	assert.Equal(t, when, got.When)
	require.NotNil(t, got.Sample)
	assert.Equal(t, testBaseURL+"piano/D4.wav", got.Sample.URL)
	assert.Equal(t, 500*time.Millisecond, got.Sample.Duration())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotesTriggered.WithLabelValues("piano")))
}

func TestBank_MissingOrSilentNotesAreNoOps(t *testing.T) {
	sink := &recordingSink{}
	b, _ := newTestBank(t, &fakeFetcher{}, sink)
	require.NoError(t, b.Start(context.Background()))

	ctx := context.Background()
	// nothing loaded yet
	require.NoError(t, b.TriggerAttackRelease(ctx, Trigger{Voice: domain.Piano, Note: "C4", Velocity: 0.5}))

	require.NoError(t, b.Load(ctx, nil))
	require.NoError(t, b.TriggerAttackRelease(ctx, Trigger{Voice: domain.Piano, Note: "", Velocity: 0.5}))
	require.NoError(t, b.TriggerAttackRelease(ctx, Trigger{Voice: domain.Bass, Note: "C2", Velocity: 0}))
	require.NoError(t, b.TriggerAttackRelease(ctx, Trigger{Voice: domain.Piano, Note: "G9", Velocity: 0.5}))

	assert.Empty(t, sink.triggers)
}

func TestBank_SinkErrorIsReported(t *testing.T) {
	sink := &recordingSink{err: errors.New("port closed")}
	b, metrics := newTestBank(t, &fakeFetcher{}, sink)
	require.NoError(t, b.Load(context.Background(), nil))
	require.NoError(t, b.Start(context.Background()))

	err := b.TriggerAttackRelease(context.Background(), Trigger{Voice: domain.Bass, Note: "C2", Velocity: 0.3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port closed")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("bass")))
}

func TestDefaultCatalogue_CoversArrangements(t *testing.T) {
	c := DefaultCatalogue()
	for _, name := range domain.ArrangementNames() {
		a := domain.LookupArrangement(name)
		for _, note := range a.Piano {
			assert.Contains(t, c[domain.Piano], note)
		}
		for _, note := range a.Bass {
			assert.Contains(t, c[domain.Bass], note)
		}
		for _, note := range a.HangDrum {
			assert.Contains(t, c[domain.HangDrum], note)
		}
	}
	for _, letter := range domain.DrumLetters {
		assert.Contains(t, c[domain.DrumKit], letter)
	}
	assert.Equal(t, "drumkit/kick.wav", c[domain.DrumKit]["A"])
	assert.Equal(t, "piano/A3.wav", c[domain.Piano]["A3"])
}

func TestCatalogue_ForArrangement(t *testing.T) {
	c := DefaultCatalogue().ForArrangement("C")

	assert.Len(t, c[domain.Piano], 10)
	assert.Contains(t, c[domain.Piano], "A5")
	assert.NotContains(t, c[domain.Piano], "A3")
	assert.Len(t, c[domain.Bass], 6)
	assert.Len(t, c[domain.HangDrum], 7)
	assert.Len(t, c[domain.DrumKit], len(domain.DrumLetters))

	// unknown names fall back to the default arrangement
	assert.Equal(t, DefaultCatalogue().ForArrangement(domain.DefaultArrangement), DefaultCatalogue().ForArrangement("Bbm"))
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("down")}
	c := &recordingSink{}
	m := MultiSink{a, b, c}

	require.NoError(t, m.Start(context.Background()))
	err := m.Trigger(context.Background(), Trigger{Note: "A"})
	require.Error(t, err)
	assert.Len(t, a.triggers, 1)
	assert.Len(t, c.triggers, 1, "later sinks still receive the trigger")

	m.SetVolume(-6)
	assert.Equal(t, []float64{-6}, a.volumes)
	assert.Equal(t, []float64{-6}, c.volumes)
	assert.NoError(t, m.Close())
}
