// Package pipeline runs the startup sequence of the engine: dataset
// download with retries, sampler start and sample loading.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
)

// Preparer is the engine surface the startup sequence drives.
type Preparer interface {
	DownloadDataset(ctx context.Context) error
	InitSampler(ctx context.Context) error
	LoadSamples(ctx context.Context) error
}

// Pipeline orchestrates the startup stages.
type Pipeline struct {
	target         Preparer
	logger         *slog.Logger
	ready          atomic.Bool
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBackoff sets the first and the largest wait between dataset attempts.
func WithBackoff(initial, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = maxBackoff
	}
}

// New creates a Pipeline driving target.
func New(target Preparer, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		target:         target,
		logger:         logger,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready reports whether every stage has run.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// CheckReadiness returns nil once every stage has run.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.Ready() {
		return errors.New("startup has not finished")
	}
	return nil
}

// Run downloads the dataset, retrying with exponential backoff until it
// succeeds or ctx is cancelled, then starts the sampler and loads the
// samples. Individual sample failures are logged and do not stop the
// sequence. Returns nil when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("startup pipeline started")

	if !p.downloadDataset(ctx) {
		p.logger.Info("startup pipeline stopping", "reason", ctx.Err())
		return nil
	}

	if err := p.target.InitSampler(ctx); err != nil {
		return fmt.Errorf("init sampler: %w", err)
	}

	if err := p.target.LoadSamples(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Warn("some samples failed to load", "error", err)
	}

	p.ready.Store(true)
	p.logger.Info("startup pipeline complete")
	return nil
}

// downloadDataset returns false if ctx was cancelled before a download
// succeeded.
func (p *Pipeline) downloadDataset(ctx context.Context) bool {
	backoff := p.initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.target.DownloadDataset(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Warn("dataset download failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
}
