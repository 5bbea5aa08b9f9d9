package samplehttp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wavBytes encodes frames of stereo 16-bit PCM at 22050 Hz.
func wavBytes(t *testing.T, frames int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 22050, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 22050},
		Data:           make([]int, frames*2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = (i * 97) % 2000
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestDecode(t *testing.T) {
	s, err := Decode("http://samples.test/piano/A4.wav", wavBytes(t, 441))
	require.NoError(t, err)

	assert.Equal(t, "http://samples.test/piano/A4.wav", s.URL)
	assert.Equal(t, 22050, s.SampleRate)
	assert.Equal(t, 2, s.Channels)
	assert.Equal(t, 16, s.BitDepth)
	assert.Equal(t, 441, s.Frames)
	assert.Len(t, s.PCM, 882)
	assert.InDelta(t, float64(20*time.Millisecond), float64(s.Duration()), float64(time.Microsecond))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("x", []byte("definitely not riff data"))
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestClient_Fetch(t *testing.T) {
	body := wavBytes(t, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/piano/C4.wav" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, testLogger())

	s, err := c.Fetch(context.Background(), srv.URL+"/piano/C4.wav")
	require.NoError(t, err)
	assert.Equal(t, 100, s.Frames)

	_, err = c.Fetch(context.Background(), srv.URL+"/piano/D4.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

// --- CachedFetcher tests ---

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (*sampler.Sample, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &sampler.Sample{URL: url}, nil
}

func TestCachedFetcher_Hit(t *testing.T) {
	inner := &countingFetcher{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedFetcher(inner, 10, metrics)

	s1, err := cached.Fetch(context.Background(), "a")
	require.NoError(t, err)
	s2, err := cached.Fetch(context.Background(), "a")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, int32(1), inner.calls.Load(), "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("miss")))
}

func TestCachedFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("boom")}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Fetch(context.Background(), "a")
	require.Error(t, err)
	_, err = cached.Fetch(context.Background(), "a")
	require.Error(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedFetcher_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingFetcher{}
	cached := NewCachedFetcher(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	for _, u := range []string{"a", "b", "a", "c", "a", "b"} {
		_, err := cached.Fetch(ctx, u)
		require.NoError(t, err)
	}

	// a stays hot; b is evicted by c and fetched again
	assert.Equal(t, int32(4), inner.calls.Load())
	assert.Equal(t, 2, cached.Len())
}

func TestCachedFetcher_Disabled(t *testing.T) {
	inner := &countingFetcher{}
	cached := NewCachedFetcher(inner, 0, observability.NewMetricsForTesting())

	for range 2 {
		_, err := cached.Fetch(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Zero(t, cached.Len())
}

func TestCachedFetcher_SwitchingArrangementBackHitsCache(t *testing.T) {
	inner := &countingFetcher{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedFetcher(inner, 64, metrics)
	catalogue := sampler.DefaultCatalogue()

	bank, err := sampler.NewBank(cached, sampler.NopSink{}, "http://samples.test/", catalogue, clockwork.NewFakeClock(), testLogger(), metrics)
	require.NoError(t, err)

	load := func(arrangement string) {
		t.Helper()
		bank.Scope(arrangement)
		require.NoError(t, bank.Load(context.Background(), nil))
	}

	load("Am")
	afterAm := inner.calls.Load()
	assert.Zero(t, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("hit")))

	load("C")
	afterC := inner.calls.Load()
	assert.Greater(t, afterC, afterAm, "C needs files Am does not use")
	assert.False(t, bank.Loaded(domain.Piano, "A3"), "Am-only piano note kept")

	load("Am")
	assert.Equal(t, afterC, inner.calls.Load(), "switching back should not download again")
	assert.True(t, bank.Loaded(domain.Piano, "A3"))
	assert.Positive(t, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("hit")))
	assert.Equal(t, float64(afterC), testutil.ToFloat64(metrics.SampleCache.WithLabelValues("miss")))
}
