package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/config"
	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	kafkago "github.com/segmentio/kafka-go"
)

// NoteEvent is the JSON payload published for every trigger.
type NoteEvent struct {
	Voice      domain.Voice `json:"voice"`
	Note       string       `json:"note"`
	Velocity   float64      `json:"velocity"`
	DurationMS int64        `json:"duration_ms"`
	At         time.Time    `json:"at"`
	StationID  string       `json:"station_id"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes triggers to a Kafka topic.
// It implements sampler.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates an asynchronous Kafka producer for the notes topic.
// Delivery errors are logged, never returned to the transport.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaNotesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
		Async:        true,
		Completion: func(msgs []kafkago.Message, err error) {
			if err != nil {
				logger.Warn("note events not delivered", "count", len(msgs), "error", err)
			}
		},
	}
	return &Writer{writer: w, logger: logger}
}

// Start is a no-op; the producer connects lazily.
func (w *Writer) Start(_ context.Context) error { return nil }

// Trigger publishes one note event keyed by station id.
func (w *Writer) Trigger(ctx context.Context, t sampler.Trigger) error {
	msg, err := serializeToMessage(t)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// SetVolume is ignored; events carry raw velocities.
func (w *Writer) SetVolume(float64) {}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Trigger into a Kafka message.
func serializeToMessage(t sampler.Trigger) (kafkago.Message, error) {
	data, err := json.Marshal(NoteEvent{
		Voice:      t.Voice,
		Note:       t.Note,
		Velocity:   t.Velocity,
		DurationMS: t.Duration.Milliseconds(),
		At:         t.When.UTC(),
		StationID:  t.StationID,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize note event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.StationID),
		Value: data,
		Time:  t.When,
		Headers: []kafkago.Header{
			{Key: "voice", Value: []byte(t.Voice)},
			{Key: "station_id", Value: []byte(t.StationID)},
		},
	}, nil
}
