package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/couchcryptid/hydro-sonify/internal/state"
	"github.com/couchcryptid/hydro-sonify/internal/transport"
	"github.com/jonboulle/clockwork"
)

// ErrStationNotFound is returned when selecting an unknown station id.
var ErrStationNotFound = errors.New("station not found")

// Readiness polling of the UI stores.
const (
	TutorialPollInterval = 10 * time.Millisecond
	TutorialPollTries    = 500
)

// DatasetLoader fetches and normalizes the station dataset.
type DatasetLoader interface {
	Load(ctx context.Context) ([]*domain.Station, error)
}

// Engine owns the stores, the transport and the sample bank. All store
// mutations go through the engine so they are serialized.
type Engine struct {
	app       *state.App
	transport *transport.Transport
	bank      *sampler.Bank
	loader    DatasetLoader
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	intn      func(n int) int

	mu         sync.Mutex // serializes store updates
	bundle     *state.Derived[Bundle]
	generation atomic.Uint64
	ready      atomic.Bool
	loading    atomic.Bool
	reloads    sync.WaitGroup
	runCtx     atomic.Pointer[context.Context]
}

// New creates an engine with the given initial configuration. Nothing is
// selected and the transport is stopped.
func New(loader DatasetLoader, bank *sampler.Bank, initial domain.Configuration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	e := &Engine{
		app:       state.NewApp(initial),
		transport: transport.New(clock, logger),
		bank:      bank,
		loader:    loader,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		intn:      rand.IntN,
	}
	e.transport.OnVolume(bank.SetVolume)

	e.mu.Lock()
	e.bundle = state.Derive2(e.app.Runtime, e.app.CurrentStation, e.app.Configuration, Bundle{}, e.recompute)
	e.mu.Unlock()
	return e
}

// SetRand replaces the random source used to pick the center station.
func (e *Engine) SetRand(r *rand.Rand) {
	e.intn = r.IntN
}

// App returns the engine's stores.
func (e *Engine) App() *state.App { return e.app }

// Transport returns the engine's transport.
func (e *Engine) Transport() *transport.Transport { return e.transport }

// Bundle returns the current station parts.
func (e *Engine) Bundle() Bundle { return e.bundle.Get() }

// Configuration returns the current configuration.
func (e *Engine) Configuration() domain.Configuration { return e.app.Configuration.Get() }

// CheckReadiness returns nil once the dataset has been loaded.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Run dispatches transport events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx.Store(&ctx)
	return e.transport.Run(ctx)
}

// DownloadDataset loads the dataset, seeds the center station with a
// random entry and publishes the stations.
func (e *Engine) DownloadDataset(ctx context.Context) error {
	start := e.clock.Now()
	stations, err := e.loader.Load(ctx)
	if err != nil {
		e.logger.Error("dataset load failed", "error", err)
		return err
	}
	e.metrics.DatasetLoadDuration.Observe(e.clock.Since(start).Seconds())
	e.metrics.DatasetStations.Set(float64(len(stations)))

	e.mu.Lock()
	if len(stations) > 0 {
		e.app.CenterStation.Set(stations[e.intn(len(stations))])
	}
	e.app.Dataset.Set(stations)
	e.mu.Unlock()

	e.ready.Store(true)
	e.logger.Info("dataset loaded", "stations", len(stations))
	return nil
}

// InitSampler starts the audio sink and applies the configured volume.
// Triggers fail with domain.ErrAudioContextNotStarted until it succeeds.
func (e *Engine) InitSampler(ctx context.Context) error {
	if err := e.bank.Start(ctx); err != nil {
		return err
	}
	e.transport.SetVolume(e.Configuration().Volume)
	e.logger.Info("sampler ready", "loop_beats", transport.LoopBeats)
	return nil
}

// LoadSamples downloads the sample files of the configured arrangement and
// mirrors progress into the progress store. Failed files are logged and
// returned joined; loading continues past them. Later arrangement changes
// reload the bank in the background.
func (e *Engine) LoadSamples(ctx context.Context) error {
	e.bank.Scope(e.Configuration().Arrangement)
	e.loading.Store(true)
	return e.bank.Load(ctx, func(p float64) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.app.SoundDownloadProgress.Set(p)
	})
}

// SetBPM sets the transport tempo. The next recomputation of the parts
// applies the configured bpm again.
func (e *Engine) SetBPM(bpm float64) error {
	if err := e.transport.SetBPM(bpm); err != nil {
		return err
	}
	e.metrics.TransportBPM.Set(bpm)
	return nil
}

// SetVolume sets the master volume from a linear value in [0,1].
func (e *Engine) SetVolume(v float64) {
	e.transport.SetVolume(v)
}

// StartSound starts the transport.
func (e *Engine) StartSound() error {
	if !e.bank.Started() {
		return domain.ErrAudioContextNotStarted
	}
	e.transport.Start()
	e.metrics.TransportPlaying.Set(1)
	return nil
}

// PauseSound pauses a started transport.
func (e *Engine) PauseSound() {
	e.transport.Pause()
	e.metrics.TransportPlaying.Set(0)
}

// StopSound stops the transport and clears the highlighted month.
func (e *Engine) StopSound() {
	e.transport.Stop()
	e.metrics.TransportPlaying.Set(0)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.app.HighlightMonth.Set(state.NoMonth)
}

// StationsInfo returns the info of every station in dataset order.
func (e *Engine) StationsInfo() []domain.StationInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.app.Dataset.GetStationsInfo()
}

// Station returns a copy of the station with the given id.
func (e *Engine) Station(id string) (domain.Station, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.app.Dataset.GetStationByID(id)
	if st == nil {
		return domain.Station{}, false
	}
	return *st, true
}

// CurrentStation returns a copy of the selected station, if any.
func (e *Engine) CurrentStation() (domain.Station, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.app.CurrentStation.Get()
	if st == nil {
		return domain.Station{}, false
	}
	return *st, true
}

// SelectStation makes the station with the given id current.
func (e *Engine) SelectStation(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.app.Dataset.GetStationByID(id)
	if st == nil {
		return fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}
	e.selectLocked(st)
	return nil
}

// SelectRelative moves the selection by delta positions in dataset order,
// wrapping around. With nothing selected it starts from the center station.
func (e *Engine) SelectRelative(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stations := e.app.Dataset.Get()
	if len(stations) == 0 {
		return ErrStationNotFound
	}
	from := e.app.CurrentStation.Get()
	if from == nil {
		from = e.app.CenterStation.Get()
	}
	i := 0
	if from != nil {
		i = from.Info.Index
	}
	n := len(stations)
	e.selectLocked(stations[((i+delta)%n+n)%n])
	return nil
}

// SelectRandom selects a uniformly random station.
func (e *Engine) SelectRandom() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stations := e.app.Dataset.Get()
	if len(stations) == 0 {
		return ErrStationNotFound
	}
	e.selectLocked(stations[e.intn(len(stations))])
	return nil
}

func (e *Engine) selectLocked(st *domain.Station) {
	st.Info.HasBeenSelected = true
	e.app.CurrentStation.Set(st)
	e.logger.Debug("station selected", "station_id", st.Info.ID)
}

// Deselect clears the current station, disposing every part, and the
// highlighted month.
func (e *Engine) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.app.CurrentStation.Set(nil)
	e.app.HighlightMonth.Set(state.NoMonth)
}

// UpdateConfiguration applies fn to a copy of the configuration and
// publishes it if it validates.
func (e *Engine) UpdateConfiguration(fn func(c *domain.Configuration)) (domain.Configuration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.app.Configuration.Get()
	fn(&cfg)
	if err := cfg.Validate(); err != nil {
		return e.app.Configuration.Get(), fmt.Errorf("invalid configuration: %w", err)
	}
	prev := e.app.Configuration.Get()
	e.app.Configuration.Set(cfg)
	if cfg.Arrangement != prev.Arrangement && e.loading.Load() {
		e.reloadSamples(cfg.Arrangement)
	}
	return e.app.Configuration.Get(), nil
}

// reloadSamples swaps the bank over to arrangement without blocking the
// caller. Reloads leave the progress store alone.
func (e *Engine) reloadSamples(arrangement string) {
	e.bank.Scope(arrangement)
	e.reloads.Add(1)
	go func() {
		defer e.reloads.Done()
		if err := e.bank.Load(e.context(), nil); err != nil {
			e.logger.Warn("sample reload incomplete", "arrangement", arrangement, "error", err)
		}
	}()
}

// SetMap publishes the front end's map handle.
func (e *Engine) SetMap(m any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.app.MapStore.Set(m)
}

// Panels returns the panel toggles.
func (e *Engine) Panels() (plots, options, info bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.app.Panels
	return p.Plots.Get(), p.Options.Get(), p.Info.Get()
}

// ShowPanels sets the panel toggles and returns a func that restores the
// previous ones.
func (e *Engine) ShowPanels(plots, options, info bool) (restore func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.app.Panels.Show(plots, options, info)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		r()
	}
}

// WaitTutorialReady polls the tutorial readiness store every
// TutorialPollInterval, at most TutorialPollTries times.
func (e *Engine) WaitTutorialReady(ctx context.Context) error {
	for range TutorialPollTries {
		if e.app.UITutorialReady.Get() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(TutorialPollInterval):
		}
	}
	err := &domain.ElementNotFoundError{Target: "tutorial", Tries: TutorialPollTries}
	e.logger.Error("tutorial target missing", "error", err)
	return err
}

// Status is a snapshot of the playback state.
type Status struct {
	State     string
	BPM       float64
	VolumeDB  float64
	Progress  float64
	StationID string
	Month     int
	Parts     int
}

// Status returns a snapshot of the playback state.
func (e *Engine) Status() Status {
	s := Status{
		State:    e.transport.State().String(),
		BPM:      e.transport.BPM(),
		VolumeDB: e.transport.VolumeDB(),
		Progress: e.app.SoundDownloadProgress.Get(),
		Month:    e.app.HighlightMonth.Get(),
		Parts:    len(e.transport.Parts()),
	}
	if st := e.app.CurrentStation.Get(); st != nil {
		s.StationID = st.Info.ID
	}
	return s
}

// Close disposes the parts, stops the transport and releases the sink.
func (e *Engine) Close() error {
	e.reloads.Wait()
	e.Deselect()
	e.transport.Stop()
	e.bundle.Close()
	return e.bank.Close()
}

func (e *Engine) context() context.Context {
	if ctx := e.runCtx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}
