package engine

import (
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/couchcryptid/hydro-sonify/internal/transport"
)

// recompute derives the parts of the selected station from the previous
// bundle, the station and the configuration. It is the only place parts are
// created or disposed. Every stale part is disposed before its replacement
// is registered.
//
// With bpm_auto the size-derived tempo is written back to the
// configuration when it differs. The write is observed by the next
// recomputation, which finds the values equal and stops there.
func (e *Engine) recompute(prev Bundle, station *domain.Station, cfg domain.Configuration) Bundle {
	if station == nil {
		prev.dispose()
		e.metrics.PartsActive.Set(0)
		if !prev.Empty() {
			e.logger.Debug("parts disposed", "generation", prev.Generation)
		}
		return Bundle{}
	}

	gen := e.generation.Add(1)
	arr := domain.LookupArrangement(cfg.Arrangement)
	data := station.Data
	id := station.Info.ID

	next := Bundle{Generation: gen}
	next.MeanMonthly = e.rebuild(prev.MeanMonthly, cfg.Med, domain.Piano, id, gen, func() []domain.NoteEvent {
		return domain.BuildMeanMonthly(data.MeanMonthly, data.MeanMonthly, arr.Piano, cfg.BPM, cfg.InvertedPitch)
	})
	next.MaxMonthly = e.rebuild(prev.MaxMonthly, cfg.Max, domain.Bass, id, gen, func() []domain.NoteEvent {
		return domain.BuildMaxMonthly(data.MaxMonthly, arr.Bass, cfg.BPM)
	})
	next.MinMonthly = e.rebuild(prev.MinMonthly, cfg.Min, domain.HangDrum, id, gen, func() []domain.NoteEvent {
		return domain.BuildMinMonthly(data.MinMonthly, arr.HangDrum, cfg.BPM)
	})

	pattern, ok := domain.LookupDrumPattern(cfg.DrumPattern)
	if cfg.Drum && !ok {
		e.logger.Warn("unknown drum pattern, drums disabled", "drum_pattern", cfg.DrumPattern)
	}
	next.Drum = e.rebuild(prev.Drum, cfg.Drum && ok, domain.DrumKit, id, gen, func() []domain.NoteEvent {
		return domain.BuildDrum(pattern, cfg.BPM)
	})

	next.Size = &SizeState{Size: data.Size, BPM: domain.AutoBPM(data.Size)}
	if cfg.BPMAuto && next.Size.BPM != cfg.BPM {
		bpm := next.Size.BPM
		e.app.Configuration.Update(func(c domain.Configuration) domain.Configuration {
			c.BPM = bpm
			return c
		})
	}

	if err := e.transport.SetBPM(cfg.BPM); err != nil {
		e.logger.Warn("transport bpm rejected", "bpm", cfg.BPM, "error", err)
	} else {
		e.metrics.TransportBPM.Set(cfg.BPM)
	}
	e.transport.SetVolume(cfg.Volume)

	e.metrics.PartsActive.Set(float64(len(next.Parts())))
	e.logger.Debug("parts rebuilt",
		"station_id", id,
		"generation", gen,
		"parts", len(next.Parts()),
		"bpm", cfg.BPM,
	)
	return next
}

// rebuild disposes prev and, when enabled, registers a fresh part.
func (e *Engine) rebuild(prev *PartState, enabled bool, voice domain.Voice, stationID string, gen uint64, build func() []domain.NoteEvent) *PartState {
	if prev != nil {
		prev.Part.Dispose()
	}
	if !enabled {
		return nil
	}

	events := build()
	ps := &PartState{
		Voice:      voice,
		StationID:  stationID,
		Generation: gen,
		Events:     events,
	}
	ps.Part = e.transport.Add(voice, events, e.noteCallback(voice, stationID))
	e.metrics.PartRebuilds.WithLabelValues(string(voice)).Inc()
	return ps
}

// noteCallback plays an event on the sample bank and highlights its month.
// Events from the lookahead tail of a stop keep the highlight cleared.
func (e *Engine) noteCallback(voice domain.Voice, stationID string) transport.Callback {
	return func(when time.Time, ev domain.NoteEvent) {
		err := e.bank.TriggerAttackRelease(e.context(), sampler.Trigger{
			Voice:     voice,
			Note:      ev.Note,
			Velocity:  ev.Velocity,
			Duration:  sampler.DurationFromSeconds(ev.Duration),
			When:      when,
			StationID: stationID,
		})
		if err != nil {
			e.logger.Warn("trigger failed", "voice", voice, "note", ev.Note, "error", err)
		}
		if e.transport.State() != transport.Stopped {
			e.highlight(ev.Month)
		}
	}
}

func (e *Engine) highlight(month int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.app.HighlightMonth.Set(month)
}
