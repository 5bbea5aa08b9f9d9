package sampler

import (
	"maps"
	"sort"
	"strings"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

// Catalogue maps each voice to its note -> sample path table. Paths are
// resolved against the bank's base URL.
type Catalogue map[domain.Voice]map[string]string

// DefaultCatalogue covers every note used by the known arrangements, plus
// one file per drum element keyed by its note letter.
func DefaultCatalogue() Catalogue {
	c := Catalogue{
		domain.Piano:    {},
		domain.Bass:     {},
		domain.HangDrum: {},
		domain.DrumKit:  {},
	}
	for _, name := range domain.ArrangementNames() {
		a := domain.LookupArrangement(name)
		for _, note := range a.Piano {
			c[domain.Piano][note] = samplePath(domain.Piano, note)
		}
		for _, note := range a.Bass {
			c[domain.Bass][note] = samplePath(domain.Bass, note)
		}
		for _, note := range a.HangDrum {
			c[domain.HangDrum][note] = samplePath(domain.HangDrum, note)
		}
	}
	for el, letter := range domain.DrumLetters {
		c[domain.DrumKit][letter] = "drumkit/" + string(el) + ".wav"
	}
	return c
}

// ForArrangement returns the part of c used by the named arrangement: its
// melodic scales plus the whole drum kit.
func (c Catalogue) ForArrangement(name string) Catalogue {
	a := domain.LookupArrangement(name)
	out := Catalogue{domain.DrumKit: maps.Clone(c[domain.DrumKit])}
	for voice, scale := range map[domain.Voice]domain.Scale{
		domain.Piano:    a.Piano,
		domain.Bass:     a.Bass,
		domain.HangDrum: a.HangDrum,
	} {
		notes := make(map[string]string, len(scale))
		for _, note := range scale {
			if path, ok := c[voice][note]; ok {
				notes[note] = path
			}
		}
		out[voice] = notes
	}
	return out
}

// samplePath spells sharps as "s" so names are safe in URLs.
func samplePath(voice domain.Voice, note string) string {
	return string(voice) + "/" + strings.ReplaceAll(note, "#", "s") + ".wav"
}

// fileRef is one (voice, note) user of a sample file.
type fileRef struct {
	voice domain.Voice
	note  string
}

// files groups the catalogue by distinct path, in path order.
func (c Catalogue) files() ([]string, map[string][]fileRef) {
	users := make(map[string][]fileRef)
	for _, voice := range domain.Voices {
		notes := make([]string, 0, len(c[voice]))
		for note := range c[voice] {
			notes = append(notes, note)
		}
		sort.Strings(notes)
		for _, note := range notes {
			path := c[voice][note]
			users[path] = append(users[path], fileRef{voice: voice, note: note})
		}
	}

	paths := make([]string, 0, len(users))
	for path := range users {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, users
}
