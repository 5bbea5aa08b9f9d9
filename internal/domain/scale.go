package domain

import "sort"

// Scale is an ordered list of note names, lowest pitch first.
type Scale []string

// Arrangement picks one scale per melodic voice.
type Arrangement struct {
	Name     string
	Piano    Scale
	Bass     Scale
	HangDrum Scale
}

// DefaultArrangement is used when a configuration names an unknown arrangement.
const DefaultArrangement = "Am"

var arrangements = map[string]Arrangement{
	"Am": {
		Name:     "Am",
		Piano:    Scale{"A3", "C4", "D4", "E4", "G4", "A4", "C5", "D5", "E5", "G5"},
		Bass:     Scale{"A1", "C2", "D2", "E2", "G2", "A2"},
		HangDrum: Scale{"A3", "C4", "D4", "E4", "G4", "A4", "C5"},
	},
	"C": {
		Name:     "C",
		Piano:    Scale{"C4", "D4", "E4", "G4", "A4", "C5", "D5", "E5", "G5", "A5"},
		Bass:     Scale{"C2", "D2", "E2", "G2", "A2", "C3"},
		HangDrum: Scale{"C4", "D4", "E4", "G4", "A4", "C5", "D5"},
	},
	"Em": {
		Name:     "Em",
		Piano:    Scale{"E3", "G3", "A3", "B3", "D4", "E4", "G4", "A4", "B4", "D5"},
		Bass:     Scale{"E1", "G1", "A1", "B1", "D2", "E2"},
		HangDrum: Scale{"E3", "G3", "A3", "B3", "D4", "E4", "G4"},
	},
	"Dm": {
		Name:     "Dm",
		Piano:    Scale{"D4", "F4", "G4", "A4", "C5", "D5", "F5", "G5", "A5", "C6"},
		Bass:     Scale{"D2", "F2", "G2", "A2", "C3", "D3"},
		HangDrum: Scale{"D4", "F4", "G4", "A4", "C5", "D5", "F5"},
	},
}

// LookupArrangement returns the named arrangement, falling back to
// DefaultArrangement for unknown names.
func LookupArrangement(name string) Arrangement {
	if a, ok := arrangements[name]; ok {
		return a
	}
	return arrangements[DefaultArrangement]
}

// ArrangementNames returns the known arrangement names in sorted order.
func ArrangementNames() []string {
	names := make([]string, 0, len(arrangements))
	for name := range arrangements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bucket selects the note of scale whose half-open bucket (i/n, (i+1)/n]
// contains d. It returns "" when d is outside (0, 1] or the scale is empty.
func Bucket(d float64, scale Scale) string {
	n := len(scale)
	for i := range n {
		lo := float64(i) / float64(n)
		hi := float64(i+1) / float64(n)
		if d > lo && d <= hi {
			return scale[i]
		}
	}
	return ""
}
