package domain

import (
	"fmt"
	"math"
	"sort"
)

// Voice is one of the four instruments.
type Voice string

const (
	Piano    Voice = "piano"
	Bass     Voice = "bass"
	HangDrum Voice = "hangdrum"
	DrumKit  Voice = "drumkit"
)

// Voices lists every voice in a stable order.
var Voices = []Voice{Piano, Bass, HangDrum, DrumKit}

// PPQ is the transport resolution in ticks per beat.
const PPQ = 192

// DrumTicks is the fixed length of every drum hit.
const DrumTicks = 20

const drumVelocityFactor = 0.7

// NoteEvent is one scheduled note of a part. Month is both the beat within
// the loop and the index passed to highlight callbacks.
type NoteEvent struct {
	Month    int     `json:"month"`
	Note     string  `json:"note"`
	Velocity float64 `json:"velocity"`
	Duration float64 `json:"duration"` // seconds
}

// Time returns the event position in bars:beats notation.
func (e NoteEvent) Time() string {
	return fmt.Sprintf("0:%d", e.Month)
}

// VelocityMode selects where a voice takes its velocities from.
type VelocityMode int

const (
	// VelocityFromVolume rescales a separate volume vector by its own extrema.
	VelocityFromVolume VelocityMode = iota
	// VelocityFromData combines an absolute and a station-relative component
	// of the data vector itself.
	VelocityFromData
)

// DurationSource selects the per-month factor of the duration formula.
type DurationSource int

const (
	DurationFromVelocity DurationSource = iota
	DurationFromCurve
	DurationFromPitch
)

// DurationSpec computes durations as source[j] * Factor * (12/bpm) * Unit.
type DurationSpec struct {
	Source   DurationSource
	Exponent float64 // DurationFromCurve only
	Factor   float64
	Unit     float64
}

// VoiceSpec parameterizes the single part builder for a melodic voice.
type VoiceSpec struct {
	Voice Voice

	PitchRange         Range
	InvertedPitchRange *Range // nil when the voice cannot be inverted

	Velocity      VelocityMode
	VolumeRange   Range // VelocityFromVolume
	AbsoluteRange Range // VelocityFromData
	RelativeRange Range // VelocityFromData
	ClampFloor    float64

	Duration DurationSpec
}

var (
	// MeanMonthlySpec drives the piano from the mean series.
	MeanMonthlySpec = VoiceSpec{
		Voice:              Piano,
		PitchRange:         Range{0.6, 0.1},
		InvertedPitchRange: &Range{0.5, 1},
		Velocity:           VelocityFromVolume,
		VolumeRange:        Range{0.02, 0.15},
		Duration:           DurationSpec{Source: DurationFromVelocity, Factor: 16, Unit: 16},
	}

	// MaxMonthlySpec drives the bass from the max series.
	MaxMonthlySpec = VoiceSpec{
		Voice:         Bass,
		PitchRange:    Range{1, 0},
		Velocity:      VelocityFromData,
		AbsoluteRange: Range{0.02, 0.4},
		RelativeRange: Range{-0.1, 0},
		ClampFloor:    0.02,
		Duration:      DurationSpec{Source: DurationFromCurve, Exponent: 0.5, Factor: 1, Unit: 6},
	}

	// MinMonthlySpec drives the hang drum from the min series.
	MinMonthlySpec = VoiceSpec{
		Voice:         HangDrum,
		PitchRange:    Range{0.01, 1},
		Velocity:      VelocityFromData,
		AbsoluteRange: Range{0.02, 0.3},
		RelativeRange: Range{-0.1, 0},
		ClampFloor:    0.03,
		Duration:      DurationSpec{Source: DurationFromPitch, Factor: 12, Unit: 16},
	}
)

var unitRange = Range{0, 1}

// Build maps a monthly data vector to twelve note events. volume is only
// read by VelocityFromVolume voices. Inputs are sanitized first, so Build
// never fails.
func (s VoiceSpec) Build(data, volume []float64, scale Scale, bpm float64, inverted bool) []NoteEvent {
	data = Sanitize(data)
	bpm = sanitizeBPM(bpm)

	pitchRange := s.PitchRange
	if inverted && s.InvertedPitchRange != nil {
		pitchRange = *s.InvertedPitchRange
	}
	pitch := Rescale(data, &unitRange, pitchRange)

	var velocity, curve []float64
	switch s.Velocity {
	case VelocityFromVolume:
		velocity = Rescale(Sanitize(volume), nil, s.VolumeRange)
		curve = velocity
	default:
		absolute := Rescale(data, &unitRange, s.AbsoluteRange)
		relative := Rescale(data, nil, s.RelativeRange)
		curve = Clamp(AddArrays(relative, absolute), Range{s.ClampFloor, 1})
		velocity = make([]float64, Months)
		for j, d := range data {
			if d != 0 {
				velocity[j] = curve[j]
			}
		}
	}

	var source []float64
	switch s.Duration.Source {
	case DurationFromVelocity:
		source = velocity
	case DurationFromCurve:
		source = DurationFromVolumes(curve, s.Duration.Exponent)
	case DurationFromPitch:
		source = pitch
	}
	unit := (12 / bpm) * s.Duration.Unit
	duration := MultiplyArrayBy(source, s.Duration.Factor*unit)

	events := make([]NoteEvent, Months)
	for j := range events {
		events[j] = NoteEvent{
			Month:    j,
			Note:     Bucket(pitch[j], scale),
			Velocity: velocity[j],
			Duration: duration[j],
		}
	}
	return events
}

// BuildMeanMonthly builds the piano events.
func BuildMeanMonthly(medium, volume []float64, scale Scale, bpm float64, inverted bool) []NoteEvent {
	return MeanMonthlySpec.Build(medium, volume, scale, bpm, inverted)
}

// BuildMaxMonthly builds the bass events.
func BuildMaxMonthly(data []float64, scale Scale, bpm float64) []NoteEvent {
	return MaxMonthlySpec.Build(data, nil, scale, bpm, false)
}

// BuildMinMonthly builds the hang-drum events.
func BuildMinMonthly(data []float64, scale Scale, bpm float64) []NoteEvent {
	return MinMonthlySpec.Build(data, nil, scale, bpm, false)
}

// BuildDrum expands a pattern into one event per sounding element. Elements
// of a step are emitted in name order so the output is reproducible.
func BuildDrum(pattern DrumPattern, bpm float64) []NoteEvent {
	bpm = sanitizeBPM(bpm)
	duration := TicksToSeconds(DrumTicks, bpm)

	var events []NoteEvent
	for j, step := range pattern {
		elements := make([]DrumElement, 0, len(step))
		for el := range step {
			elements = append(elements, el)
		}
		sort.Slice(elements, func(a, b int) bool { return elements[a] < elements[b] })

		for _, el := range elements {
			note, ok := DrumLetters[el]
			if !ok {
				note = string(el)
			}
			events = append(events, NoteEvent{
				Month:    j,
				Note:     note,
				Velocity: step[el] * drumVelocityFactor,
				Duration: duration,
			})
		}
	}
	return events
}

// TicksToSeconds converts transport ticks to seconds at the given tempo.
func TicksToSeconds(ticks int, bpm float64) float64 {
	return float64(ticks) / PPQ * 60 / sanitizeBPM(bpm)
}

func sanitizeBPM(bpm float64) float64 {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm < MinBPM {
		return MinBPM
	}
	return bpm
}
