package engine

import (
	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/transport"
)

// PartState is one voice's part of the current generation.
type PartState struct {
	Voice      domain.Voice
	StationID  string
	Generation uint64
	Events     []domain.NoteEvent
	Part       *transport.Part
}

// SizeState carries the tempo derived from the station's catchment size.
type SizeState struct {
	Size domain.Size
	BPM  float64
}

// Bundle is the derived value owning the parts of the selected station.
// The zero Bundle means no station is selected.
type Bundle struct {
	Generation  uint64
	MeanMonthly *PartState
	MaxMonthly  *PartState
	MinMonthly  *PartState
	Drum        *PartState
	Size        *SizeState
}

// Empty reports whether the bundle holds nothing.
func (b Bundle) Empty() bool {
	return b.MeanMonthly == nil && b.MaxMonthly == nil && b.MinMonthly == nil && b.Drum == nil && b.Size == nil
}

// Parts returns the part states present, in voice order.
func (b Bundle) Parts() []*PartState {
	var out []*PartState
	for _, ps := range []*PartState{b.MeanMonthly, b.MaxMonthly, b.MinMonthly, b.Drum} {
		if ps != nil {
			out = append(out, ps)
		}
	}
	return out
}

// dispose releases every part of the bundle.
func (b Bundle) dispose() {
	for _, ps := range b.Parts() {
		ps.Part.Dispose()
	}
}
