// Package bootstrap assembles an engine and its adapters from the
// environment configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hydro-sonify/internal/adapter/gsim"
	kafkaadapter "github.com/couchcryptid/hydro-sonify/internal/adapter/kafka"
	"github.com/couchcryptid/hydro-sonify/internal/adapter/midi"
	"github.com/couchcryptid/hydro-sonify/internal/adapter/samplehttp"
	"github.com/couchcryptid/hydro-sonify/internal/config"
	"github.com/couchcryptid/hydro-sonify/internal/engine"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/pipeline"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/jonboulle/clockwork"
)

// NewEngine wires the dataset loader, the cached sample fetcher and the
// configured sinks into an engine.
func NewEngine(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*engine.Engine, error) {
	sink, err := NewSink(cfg, clock, logger)
	if err != nil {
		return nil, err
	}

	fetcher := samplehttp.NewCachedFetcher(
		samplehttp.NewClient(cfg.SampleFetchTimeout, logger),
		cfg.SampleCacheSize,
		metrics,
	)
	bank, err := sampler.NewBank(fetcher, sink, cfg.SamplesBaseURL, sampler.DefaultCatalogue(), clock, logger, metrics)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("create sample bank: %w", err)
	}

	loader := gsim.NewLoader(cfg.DatasetURL, cfg.SampleFetchTimeout, logger)
	return engine.New(loader, bank, cfg.Initial, clock, logger, metrics), nil
}

// NewSink builds the audio sink: MIDI when MIDI_PORT is set, Kafka when
// enabled, both fanned out together, or a silent sink when neither is.
func NewSink(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) (sampler.Sink, error) {
	var sinks sampler.MultiSink

	if cfg.MIDIPort != "" {
		s, err := midi.Open(cfg.MIDIPort, clock, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("midi sink enabled", "port", cfg.MIDIPort)
	}

	if cfg.KafkaEnabled {
		sinks = append(sinks, kafkaadapter.NewWriter(cfg, logger))
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaNotesTopic)
	}

	switch len(sinks) {
	case 0:
		logger.Info("no audio sink configured, notes are dropped")
		return sampler.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// Gate is the engine as seen by the HTTP API: it reports ready only once
// the startup pipeline has loaded the dataset and the samples.
type Gate struct {
	*engine.Engine
	Startup *pipeline.Pipeline
}

func (g Gate) CheckReadiness(ctx context.Context) error {
	if err := g.Engine.CheckReadiness(ctx); err != nil {
		return err
	}
	return g.Startup.CheckReadiness(ctx)
}
