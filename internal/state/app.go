package state

import "github.com/couchcryptid/hydro-sonify/internal/domain"

// NoMonth is the highlighted month before any event fired.
const NoMonth = -1

// Panels are the UI panel toggles.
type Panels struct {
	Plots   *Store[bool]
	Options *Store[bool]
	Info    *Store[bool]
}

// Show sets all three panels and returns a func that restores the values
// they had before the call.
func (p Panels) Show(plots, options, info bool) (restore func()) {
	prevPlots, prevOptions, prevInfo := p.Plots.Get(), p.Options.Get(), p.Info.Get()
	p.Plots.Set(plots)
	p.Options.Set(options)
	p.Info.Set(info)
	return func() {
		p.Plots.Set(prevPlots)
		p.Options.Set(prevOptions)
		p.Info.Set(prevInfo)
	}
}

// App is the set of stores shared by the engine and its front ends.
type App struct {
	Runtime *Runtime

	Dataset               *DatasetStore
	CurrentStation        *Store[*domain.Station]
	Configuration         *Store[domain.Configuration]
	SoundDownloadProgress *Store[float64]
	HighlightMonth        *Store[int]

	// UI stores, opaque to the engine.
	CenterStation *Store[*domain.Station]
	MapStore      *Store[any]
	Panels        Panels

	UITutorialReady *Derived[bool]
}

// NewApp creates the stores with their initial values.
func NewApp(cfg domain.Configuration) *App {
	rt := NewRuntime()
	a := &App{
		Runtime:               rt,
		Dataset:               NewDatasetStore(rt),
		CurrentStation:        NewComparableStore[*domain.Station](rt, nil),
		Configuration:         NewComparableStore(rt, cfg),
		SoundDownloadProgress: NewComparableStore(rt, 0.0),
		HighlightMonth:        NewComparableStore(rt, NoMonth),
		CenterStation:         NewComparableStore[*domain.Station](rt, nil),
		MapStore:              NewStore[any](rt, nil),
		Panels: Panels{
			Plots:   NewComparableStore(rt, false),
			Options: NewComparableStore(rt, false),
			Info:    NewComparableStore(rt, false),
		},
	}
	a.UITutorialReady = Derive2(rt, a.CenterStation, a.MapStore, false,
		func(_ bool, center *domain.Station, m any) bool {
			return center != nil && m != nil
		})
	return a
}
