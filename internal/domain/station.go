package domain

import (
	"encoding/json"
	"fmt"
)

// Months is the length of every monthly series and of the musical loop.
const Months = 12

// Size is the catchment area of a station along with the dataset-wide
// extrema. The raw dataset stores a bare number; the loader rewrites it.
type Size struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Val float64 `json:"val"`
}

// UnmarshalJSON accepts either a bare number (raw dataset) or the
// normalized {min, max, val} object.
func (s *Size) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*s = Size{Min: v, Max: v, Val: v}
		return nil
	}
	type plain Size
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("size: %w", err)
	}
	*s = Size(p)
	return nil
}

// StationInfo holds identity and location metadata for a station.
type StationInfo struct {
	ID              string  `json:"id"`
	Index           int     `json:"index"`
	HasBeenSelected bool    `json:"has_been_selected"`
	Name            string  `json:"name,omitempty"`
	River           string  `json:"river,omitempty"`
	Country         string  `json:"country,omitempty"`
	Lat             float64 `json:"lat,omitempty"`
	Lon             float64 `json:"lon,omitempty"`
}

// StationData holds the twelve-month statistics of a station.
type StationData struct {
	Size        Size      `json:"size"`
	MeanMonthly []float64 `json:"meanMonthly"`
	MaxMonthly  []float64 `json:"maxMonthly"`
	MinMonthly  []float64 `json:"minMonthly"`
}

// Station is one hydrometric gauge.
type Station struct {
	Info StationInfo `json:"info"`
	Data StationData `json:"data"`
}
