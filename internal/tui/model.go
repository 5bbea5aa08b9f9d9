package tui

import (
	"context"
	"math"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/engine"
	"github.com/couchcryptid/hydro-sonify/internal/state"
)

// volumeStep is the change applied by one +/- key press.
const volumeStep = 0.05

// Player is the engine surface driven by the terminal player.
type Player interface {
	Status() engine.Status
	CurrentStation() (domain.Station, bool)
	Configuration() domain.Configuration
	UpdateConfiguration(fn func(c *domain.Configuration)) (domain.Configuration, error)
	SetVolume(v float64)
	StartSound() error
	PauseSound()
	StopSound()
	SelectRelative(delta int) error
	SelectRandom() error
	Deselect()
	Panels() (plots, options, info bool)
	ShowPanels(plots, options, info bool) (restore func())
	WaitTutorialReady(ctx context.Context) error
}

type Model struct {
	player   Player
	updates  <-chan struct{}
	err      error
	quitting bool
	restore  func() // set while the start-up help is shown
}

// UpdateMsg is sent whenever a watched store changed.
type UpdateMsg struct{}

// TutorialMsg carries the outcome of waiting for the tutorial targets.
type TutorialMsg struct {
	Restore func()
	Err     error
}

func NewModel(player Player, updates <-chan struct{}) Model {
	return Model{player: player, updates: updates}
}

// Watch subscribes to the stores the player renders and signals changes on
// the returned channel. Sends never block: pending signals are coalesced.
func Watch(app *state.App) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	notify := func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	unsubs := []func(){
		app.HighlightMonth.Subscribe(func(int) { notify() }),
		app.CurrentStation.Subscribe(func(*domain.Station) { notify() }),
		app.Configuration.Subscribe(func(domain.Configuration) { notify() }),
		app.SoundDownloadProgress.Subscribe(func(float64) { notify() }),
		app.Panels.Plots.Subscribe(func(bool) { notify() }),
		app.Panels.Options.Subscribe(func(bool) { notify() }),
		app.Panels.Info.Subscribe(func(bool) { notify() }),
	}
	return ch, func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func ListenForUpdates(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	if m.updates == nil {
		return m.tutorial
	}
	return tea.Batch(ListenForUpdates(m.updates), m.tutorial)
}

// tutorial waits for the station list and the front end, then reveals
// every panel until the next key press.
func (m Model) tutorial() tea.Msg {
	if err := m.player.WaitTutorialReady(context.Background()); err != nil {
		return TutorialMsg{Err: err}
	}
	return TutorialMsg{Restore: m.player.ShowPanels(true, true, true)}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.restore != nil {
			m.restore()
			m.restore = nil
		}
		return m.handleKey(msg.String())

	case TutorialMsg:
		m.restore = msg.Restore
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, nil

	case UpdateMsg:
		return m, ListenForUpdates(m.updates)
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	var err error
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.player.StopSound()
		return m, tea.Quit

	case " ":
		if m.player.Status().State == "started" {
			m.player.PauseSound()
		} else {
			err = m.player.StartSound()
		}

	case "s":
		m.player.StopSound()

	case "n":
		err = m.player.SelectRelative(1)

	case "p":
		err = m.player.SelectRelative(-1)

	case "r":
		err = m.player.SelectRandom()

	case "x":
		m.player.Deselect()

	case "+", "=":
		err = m.changeVolume(volumeStep)

	case "-", "_":
		err = m.changeVolume(-volumeStep)

	case "a":
		err = m.configure(func(c *domain.Configuration) { c.BPMAuto = !c.BPMAuto })

	case "i":
		err = m.configure(func(c *domain.Configuration) { c.InvertedPitch = !c.InvertedPitch })

	case "1":
		err = m.configure(func(c *domain.Configuration) { c.Med = !c.Med })

	case "2":
		err = m.configure(func(c *domain.Configuration) { c.Max = !c.Max })

	case "3":
		err = m.configure(func(c *domain.Configuration) { c.Min = !c.Min })

	case "4":
		err = m.configure(func(c *domain.Configuration) { c.Drum = !c.Drum })

	case "d":
		err = m.configure(func(c *domain.Configuration) {
			c.DrumPattern = cycle(domain.DrumPatternNames(), c.DrumPattern)
		})

	case "m":
		err = m.configure(func(c *domain.Configuration) {
			c.Arrangement = cycle(domain.ArrangementNames(), c.Arrangement)
		})

	case "v":
		plots, options, info := m.player.Panels()
		m.player.ShowPanels(!plots, options, info)

	case "o":
		plots, options, info := m.player.Panels()
		m.player.ShowPanels(plots, !options, info)

	case "?":
		plots, options, info := m.player.Panels()
		m.player.ShowPanels(plots, options, !info)

	default:
		return m, nil
	}
	m.err = err
	return m, nil
}

func (m Model) configure(fn func(c *domain.Configuration)) error {
	_, err := m.player.UpdateConfiguration(fn)
	return err
}

// changeVolume moves the configured volume and applies it to the transport
// right away, so it takes effect even with nothing selected.
func (m Model) changeVolume(delta float64) error {
	cfg, err := m.player.UpdateConfiguration(func(c *domain.Configuration) {
		c.Volume = math.Round(math.Min(math.Max(c.Volume+delta, 0), 1)*100) / 100
	})
	if err != nil {
		return err
	}
	m.player.SetVolume(cfg.Volume)
	return nil
}

// cycle returns the name following current, wrapping around.
func cycle(names []string, current string) string {
	if len(names) == 0 {
		return current
	}
	i := slices.Index(names, current)
	return names[(i+1)%len(names)]
}
