package domain

import "sort"

// DrumElement names one sound of the drum kit.
type DrumElement string

const (
	Kick    DrumElement = "kick"
	Snare   DrumElement = "snare"
	Hat     DrumElement = "hat"
	OpenHat DrumElement = "openhat"
	Ride    DrumElement = "ride"
	Tom     DrumElement = "tom"
)

// DrumLetters maps drum elements to the note letters the drumkit sampler
// is keyed by.
var DrumLetters = map[DrumElement]string{
	Kick:    "A",
	Snare:   "B",
	Hat:     "C",
	OpenHat: "D",
	Ride:    "E",
	Tom:     "F",
}

// DrumStep maps each element sounding on a beat to its velocity factor.
type DrumStep map[DrumElement]float64

// DrumPattern is one step per month.
type DrumPattern [Months]DrumStep

// DefaultDrumPattern is the pattern of a fresh configuration.
const DefaultDrumPattern = "blues"

var drumPatterns = map[string]DrumPattern{
	"blues": {
		{Kick: 1, Hat: 0.6},
		{Hat: 0.4},
		{Snare: 0.8, Hat: 0.6},
		{Kick: 0.7, Hat: 0.4},
		{Kick: 0.9, Hat: 0.6},
		{Hat: 0.4},
		{Snare: 0.8, Hat: 0.6},
		{Hat: 0.4},
		{Kick: 1, Hat: 0.6},
		{Kick: 0.6, Hat: 0.4},
		{Snare: 0.8, Ride: 0.5},
		{Snare: 0.4, OpenHat: 0.5},
	},
	"rock": {
		{Kick: 1, Hat: 0.7},
		{Hat: 0.5},
		{Snare: 1, Hat: 0.7},
		{Hat: 0.5},
		{Kick: 1, Hat: 0.7},
		{Kick: 0.8, Hat: 0.5},
		{Snare: 1, Hat: 0.7},
		{Hat: 0.5},
		{Kick: 1, Hat: 0.7},
		{Hat: 0.5},
		{Snare: 1, Tom: 0.6},
		{Snare: 0.6, Tom: 0.8},
	},
	"waltz": {
		{Kick: 1, Ride: 0.5},
		{Hat: 0.5},
		{Hat: 0.5},
		{Kick: 0.9, Ride: 0.5},
		{Hat: 0.5},
		{Hat: 0.5},
		{Kick: 1, Ride: 0.5},
		{Hat: 0.5},
		{Hat: 0.5},
		{Kick: 0.9, Ride: 0.5},
		{Snare: 0.5},
		{Snare: 0.7, OpenHat: 0.4},
	},
	"sparse": {
		{Kick: 1},
		{},
		{},
		{Hat: 0.4},
		{},
		{},
		{Snare: 0.6},
		{},
		{},
		{Hat: 0.4},
		{},
		{},
	},
}

// LookupDrumPattern returns the named pattern and whether it exists.
func LookupDrumPattern(name string) (DrumPattern, bool) {
	p, ok := drumPatterns[name]
	return p, ok
}

// DrumPatternNames returns the known pattern names in sorted order.
func DrumPatternNames() []string {
	names := make([]string, 0, len(drumPatterns))
	for name := range drumPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
