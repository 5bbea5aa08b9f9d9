// Command player is a terminal front end for the sonification engine. It
// loads the dataset and samples in the background, plays the selected
// station on the configured sinks and logs to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/couchcryptid/hydro-sonify/internal/bootstrap"
	"github.com/couchcryptid/hydro-sonify/internal/config"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/pipeline"
	"github.com/couchcryptid/hydro-sonify/internal/tui"
	"github.com/jonboulle/clockwork"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

func main() {
	logPath := flag.String("log", "hydro-sonify.log", "file receiving the player's logs")
	flag.Parse()

	if err := run(*logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := observability.NewWriterLogger(logFile, cfg)
	metrics := observability.NewMetrics()

	eng, err := bootstrap.NewEngine(cfg, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("engine close error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("transport error", "error", err)
		}
	}()
	go func() {
		if err := pipeline.New(eng, logger).Run(ctx); err != nil {
			logger.Error("startup failed", "error", err)
		}
	}()

	eng.ShowPanels(true, true, false)
	updates, unwatch := tui.Watch(eng.App())
	defer unwatch()

	p := tea.NewProgram(tui.NewModel(eng, updates), tea.WithAltScreen())
	eng.SetMap(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run player: %w", err)
	}
	return nil
}
