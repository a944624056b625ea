package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/pkg/telemetry"
)

// fakeReader serves queued messages and then reports EOF.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_Run(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`{"equipamento":"A","registro":"2024-01-01 10:15:00","chuva":1.5}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"equipamento":"B","registro":"2024-01-01 10:20:00","temperatura":21}`)},
		{Offset: 4, Value: []byte(`{"equipamento":"C","registro":"2024-01-01 10:25:00","umidade":50}`)},
	}}

	var stored []string
	handler := func(_ context.Context, r telemetry.Reading) error {
		if r.DeviceID == "C" {
			return errors.New("store unavailable")
		}
		stored = append(stored, r.DeviceID)
		return nil
	}

	c := newConsumer(reader, handler, discard())
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"A", "B"}, stored)
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed, "every fetched message is committed")
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`{"equipamento":"A","registro":"2024-01-01 10:15:00","chuva":1}`)},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newConsumer(reader, func(context.Context, telemetry.Reading) error { return nil }, discard())
	require.NoError(t, c.Run(ctx))
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.queue, 1)
}

func TestConsumer_Close(t *testing.T) {
	reader := &fakeReader{}
	c := newConsumer(reader, func(context.Context, telemetry.Reading) error { return nil }, discard())
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)

	var nilConsumer *Consumer
	assert.NoError(t, nilConsumer.Close())
}

func TestNewConsumer_Validation(t *testing.T) {
	noop := func(context.Context, telemetry.Reading) error { return nil }

	_, err := NewConsumer(config.Config{KafkaTopic: "t"}, noop, discard())
	assert.Error(t, err)

	_, err = NewConsumer(config.Config{KafkaBrokers: []string{"localhost:9092"}}, noop, discard())
	assert.Error(t, err)

	_, err = NewConsumer(config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, nil, discard())
	assert.Error(t, err)

	c, err := NewConsumer(config.Config{
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "clima.telemetria",
		KafkaGroupID: "clima-ags",
	}, noop, discard())
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
