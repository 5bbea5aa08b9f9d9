package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Width(5)
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
)

var monthLetters = [domain.Months]string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"}

// levels renders a value in [0,1] as a block of rising height.
var levels = []rune(" ▁▂▃▄▅▆▇█")

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	status := m.player.Status()
	cfg := m.player.Configuration()
	plots, options, info := m.player.Panels()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("hydro-sonify  %-7s  %3.0fbpm  %s  samples:%3.0f%%",
		strings.ToUpper(status.State), status.BPM, formatDB(status.VolumeDB), status.Progress*100)))
	b.WriteString("\n\n")

	st, ok := m.player.CurrentStation()
	if !ok {
		b.WriteString(dimStyle.Render("no station selected  (n/p/r to pick one)"))
		b.WriteString("\n")
	} else {
		b.WriteString(stationLine(st))
		b.WriteString("\n")
		if plots {
			b.WriteString("\n")
			b.WriteString(labelStyle.Render("") + monthRow(status.Month))
			b.WriteString("\n")
			b.WriteString(barRow("mean", st.Data.MeanMonthly, status.Month, cfg.Med))
			b.WriteString(barRow("max", st.Data.MaxMonthly, status.Month, cfg.Max))
			b.WriteString(barRow("min", st.Data.MinMonthly, status.Month, cfg.Min))
		}
	}

	if options {
		b.WriteString("\n")
		b.WriteString(configLine(cfg))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	if info {
		b.WriteString(dimStyle.Render("space:play/pause s:stop n/p:station r:random x:clear +/-:volume a:auto-bpm i:invert 1-4:voices d:drums m:scale"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("v:plots o:options ?:help q:quit"))
	} else {
		b.WriteString(dimStyle.Render("?:help q:quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func stationLine(st domain.Station) string {
	parts := []string{activeStyle.Render(st.Info.ID)}
	for _, s := range []string{st.Info.Name, st.Info.River, st.Info.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("area %.0f km²", st.Data.Size.Val)))
	return strings.Join(parts, "  ")
}

func monthRow(highlight int) string {
	cells := make([]string, domain.Months)
	for i, l := range monthLetters {
		if i == highlight {
			cells[i] = playheadStyle.Render(l)
		} else {
			cells[i] = dimStyle.Render(l)
		}
	}
	return strings.Join(cells, " ")
}

func barRow(label string, series []float64, highlight int, enabled bool) string {
	cells := make([]string, domain.Months)
	for i := range cells {
		v := 0.0
		if i < len(series) {
			v = series[i]
		}
		cell := string(level(v))
		switch {
		case i == highlight && enabled:
			cells[i] = playheadStyle.Render(cell)
		case enabled:
			cells[i] = activeStyle.Render(cell)
		default:
			cells[i] = dimStyle.Render(cell)
		}
	}
	return labelStyle.Render(label) + strings.Join(cells, " ") + "\n"
}

func level(v float64) rune {
	if math.IsNaN(v) || v <= 0 {
		return levels[0]
	}
	if v >= 1 {
		return levels[len(levels)-1]
	}
	return levels[int(math.Round(v*float64(len(levels)-1)))]
}

func configLine(cfg domain.Configuration) string {
	return fmt.Sprintf("scale:%s  drums:%s  %s %s %s %s  %s %s  vol:%.2f",
		cfg.Arrangement, cfg.DrumPattern,
		toggle("1:mean", cfg.Med), toggle("2:max", cfg.Max), toggle("3:min", cfg.Min), toggle("4:drum", cfg.Drum),
		toggle("auto-bpm", cfg.BPMAuto), toggle("inverted", cfg.InvertedPitch),
		cfg.Volume)
}

func toggle(name string, on bool) string {
	if on {
		return "[x]" + name
	}
	return "[ ]" + name
}

func formatDB(db float64) string {
	if math.IsInf(db, -1) || math.IsNaN(db) {
		return "muted"
	}
	return fmt.Sprintf("%+.1fdB", db)
}
