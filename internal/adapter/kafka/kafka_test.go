package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testTrigger() sampler.Trigger {
	return sampler.Trigger{
		Voice:     domain.Bass,
		Note:      "E2",
		Velocity:  0.25,
		Duration:  1500 * time.Millisecond,
		When:      time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		StationID: "AR_0000001",
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testTrigger())
	require.NoError(t, err)

	assert.Equal(t, []byte("AR_0000001"), msg.Key)
	assert.JSONEq(t, `{
		"voice": "bass",
		"note": "E2",
		"velocity": 0.25,
		"duration_ms": 1500,
		"at": "2024-04-26T15:10:00Z",
		"station_id": "AR_0000001"
	}`, string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "voice", msg.Headers[0].Key)
	assert.Equal(t, []byte("bass"), msg.Headers[0].Value)
	assert.Equal(t, "station_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("AR_0000001"), msg.Headers[1].Value)
}

func TestSerializeToMessage_Unencodable(t *testing.T) {
	tr := testTrigger()
	tr.Velocity = math.NaN()
	_, err := serializeToMessage(tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize note event")
}

func TestWriter_Trigger(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Trigger(context.Background(), testTrigger()))
	w.SetVolume(-3)

	require.Len(t, fw.msgs, 1)
	var ev NoteEvent
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &ev))
	assert.Equal(t, domain.Bass, ev.Voice)
	assert.Equal(t, int64(1500), ev.DurationMS)

	fw.err = errors.New("broker down")
	assert.Error(t, w.Trigger(context.Background(), testTrigger()))

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
