package domain

import (
	"fmt"
	"math"
)

// BPM bounds accepted from users and from auto-bpm.
const (
	MinBPM = 20
	MaxBPM = 400

	MinAutoBPM = 60
	MaxAutoBPM = 300
)

// Configuration is the user-facing sound configuration.
type Configuration struct {
	Arrangement   string  `json:"arrangement"`
	BPM           float64 `json:"bpm"`
	BPMAuto       bool    `json:"bpm_auto"`
	InvertedPitch bool    `json:"inverted_pitch"`
	Volume        float64 `json:"volume"`
	Med           bool    `json:"med"`
	Max           bool    `json:"max"`
	Min           bool    `json:"min"`
	Drum          bool    `json:"drum"`
	DrumPattern   string  `json:"drum_pattern"`
}

// DefaultConfiguration returns the configuration a fresh engine starts with.
func DefaultConfiguration() Configuration {
	return Configuration{
		Arrangement:   DefaultArrangement,
		BPM:           300,
		BPMAuto:       true,
		InvertedPitch: false,
		Volume:        0.8,
		Med:           true,
		Max:           true,
		Min:           true,
		Drum:          false,
		DrumPattern:   DefaultDrumPattern,
	}
}

// Validate reports the first out-of-range field.
func (c Configuration) Validate() error {
	if math.IsNaN(c.Volume) || c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume %v outside [0,1]", c.Volume)
	}
	if math.IsNaN(c.BPM) || c.BPM < MinBPM || c.BPM > MaxBPM {
		return fmt.Errorf("bpm %v outside [%d,%d]", c.BPM, MinBPM, MaxBPM)
	}
	if _, ok := drumPatterns[c.DrumPattern]; !ok {
		return fmt.Errorf("unknown drum pattern %q", c.DrumPattern)
	}
	if _, ok := arrangements[c.Arrangement]; !ok {
		return fmt.Errorf("unknown arrangement %q", c.Arrangement)
	}
	return nil
}

// AutoBPM maps a station size to a tempo within [MinAutoBPM, MaxAutoBPM].
// Larger catchments play slower. The result is rounded to a whole bpm.
func AutoBPM(size Size) float64 {
	from := Range{size.Min, size.Max}
	v := Rescale([]float64{size.Val}, &from, Range{MaxAutoBPM, MinAutoBPM})[0]
	v = math.Min(math.Max(v, MinAutoBPM), MaxAutoBPM)
	return math.Round(v)
}
