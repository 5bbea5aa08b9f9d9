// Command validate performs integrity checks on a GSIM.json dataset before
// it is served to the engine. It verifies station identity, the shape and
// range of every monthly series, catchment sizes, and that every month
// with data sounds a note.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/GSIM.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/hydro-sonify/internal/adapter/gsim"
	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "", "path to the GSIM.json dataset")
	flag.Parse()

	if *datasetPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read dataset: %v\n", err)
		os.Exit(1)
	}

	if code := run(data, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(data []byte, out io.Writer) int {
	fmt.Fprintln(out, "=== GSIM Dataset Integrity Validation ===")
	fmt.Fprintln(out)

	var raw map[string]*domain.Station
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(out, "FATAL: decode dataset: %v\n", err)
		return 1
	}

	stations, err := gsim.Decode(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(out, "FATAL: normalize dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateIdentity(raw),
		validateSeries(stations),
		validateSizes(stations),
		validateParts(stations),
	}

	// ── Report results ──
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	lo, hi := stations[0].Data.Size.Min, stations[0].Data.Size.Max
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Stations: %d, catchment %.0f..%.0f km², auto bpm %.0f..%.0f\n",
		len(stations), lo, hi,
		domain.AutoBPM(domain.Size{Min: lo, Max: hi, Val: hi}),
		domain.AutoBPM(domain.Size{Min: lo, Max: hi, Val: lo}))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Identity ──
// Validates that every entry is present and its info.id matches its key.

func validateIdentity(raw map[string]*domain.Station) *phase {
	p := &phase{name: "Phase 1: Station Identity"}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		st := raw[id]
		switch {
		case id == "":
			p.errorf("station with empty key")
		case st == nil:
			p.errorf("%s: null entry", id)
		case st.Info.ID != "" && st.Info.ID != id:
			p.errorf("%s: info.id is %q", id, st.Info.ID)
		}
	}
	return p
}

// ── Phase 2: Monthly Series ──
// Validates that every series has twelve finite values in [0,1].

func validateSeries(stations []*domain.Station) *phase {
	p := &phase{name: "Phase 2: Monthly Series (12 values in [0,1])"}

	for _, st := range stations {
		series := map[string][]float64{
			"meanMonthly": st.Data.MeanMonthly,
			"maxMonthly":  st.Data.MaxMonthly,
			"minMonthly":  st.Data.MinMonthly,
		}
		for _, name := range []string{"meanMonthly", "maxMonthly", "minMonthly"} {
			checkSeries(p, st.Info.ID, name, series[name])
		}
	}
	return p
}

func checkSeries(p *phase, id, name string, xs []float64) {
	if len(xs) != domain.Months {
		p.errorf("%s: %s has %d values, want %d", id, name, len(xs), domain.Months)
	}
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			p.errorf("%s: %s[%d] = %v outside [0,1]", id, name, i, v)
		}
	}
}

// ── Phase 3: Catchment Sizes ──
// Validates that sizes are positive, the normalized extrema bracket them,
// and the extrema span a range so auto bpm varies between stations.

func validateSizes(stations []*domain.Station) *phase {
	p := &phase{name: "Phase 3: Catchment Sizes"}

	for _, st := range stations {
		s := st.Data.Size
		if math.IsNaN(s.Val) || math.IsInf(s.Val, 0) || s.Val <= 0 {
			p.errorf("%s: size %v is not a positive area", st.Info.ID, s.Val)
			continue
		}
		if s.Val < s.Min || s.Val > s.Max {
			p.errorf("%s: size %v outside [%v,%v]", st.Info.ID, s.Val, s.Min, s.Max)
		}
	}

	if lo, hi := stations[0].Data.Size.Min, stations[0].Data.Size.Max; lo >= hi {
		p.errorf("catchment range [%v,%v] is empty: auto bpm cannot vary", lo, hi)
	}
	return p
}

// ── Phase 4: Pitch Mapping ──
// Validates that every month with data sounds a note of the default
// arrangement's scale on each melodic voice.

func validateParts(stations []*domain.Station) *phase {
	p := &phase{name: "Phase 4: Pitch Mapping (default arrangement)"}

	cfg := domain.DefaultConfiguration()
	arr := domain.LookupArrangement(cfg.Arrangement)
	for _, st := range stations {
		d := st.Data
		checkNotes(p, st.Info.ID, "piano", d.MeanMonthly, arr.Piano,
			domain.BuildMeanMonthly(d.MeanMonthly, d.MeanMonthly, arr.Piano, cfg.BPM, cfg.InvertedPitch))
		checkNotes(p, st.Info.ID, "bass", d.MaxMonthly, arr.Bass,
			domain.BuildMaxMonthly(d.MaxMonthly, arr.Bass, cfg.BPM))
		checkNotes(p, st.Info.ID, "hangdrum", d.MinMonthly, arr.HangDrum,
			domain.BuildMinMonthly(d.MinMonthly, arr.HangDrum, cfg.BPM))
	}
	return p
}

func checkNotes(p *phase, id, voice string, data []float64, scale domain.Scale, events []domain.NoteEvent) {
	for _, ev := range events {
		if ev.Month >= len(data) || data[ev.Month] == 0 {
			continue
		}
		// The bass inverts its pitch, so its peak lands on 0 and is silent.
		if voice == "bass" && data[ev.Month] == 1 {
			continue
		}
		if !slices.Contains(scale, ev.Note) {
			p.errorf("%s: %s month %d (value %v) maps to no note of %v", id, voice, ev.Month, data[ev.Month], scale)
		}
	}
}
