package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/pkg/telemetry"
)

func newTestSubscriber(t *testing.T) *Subscriber {
	t.Helper()
	cfg := config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     1883,
		MQTTClientID: "test",
		MQTTTopic:    "clima/+/telemetria",
	}
	return NewSubscriber(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleMessage(t *testing.T) {
	s := newTestSubscriber(t)
	var got []telemetry.Reading
	s.SetMessageHandler(func(_ context.Context, r telemetry.Reading) error {
		got = append(got, r)
		return nil
	})

	s.handleMessage("clima/A/telemetria", []byte(`{"equipamento":"A","registro":"2024-01-01 10:15:00","chuva":1.5}`))
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].DeviceID)
	assert.Equal(t, 1.5, *got[0].Rain)

	for _, payload := range []string{
		`not json`,
		`{"registro":"2024-01-01 10:15:00","chuva":1}`,
		`{"equipamento":"A","chuva":1}`,
		`{"equipamento":"A","registro":"2024-01-01 10:15:00","umidade":140}`,
		`{"equipamento":"A","registro":"2024-01-01 10:15:00"}`,
	} {
		s.handleMessage("clima/A/telemetria", []byte(payload))
	}
	assert.Len(t, got, 1, "invalid payloads must not reach the handler")
}

func TestHandleMessage_HandlerErrorIsContained(t *testing.T) {
	s := newTestSubscriber(t)
	calls := 0
	s.SetMessageHandler(func(ctx context.Context, _ telemetry.Reading) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("store down")
	})

	assert.NotPanics(t, func() {
		s.handleMessage("t", []byte(`{"equipamento":"A","registro":"2024-01-01T10:00:00Z","temperatura":20}`))
	})
	assert.Equal(t, 1, calls)
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s := newTestSubscriber(t)
	assert.NotPanics(t, func() {
		s.handleMessage("t", []byte(`{"equipamento":"A","registro":"2024-01-01T10:00:00Z","temperatura":20}`))
	})
}

func TestConnect_AfterDisconnect(t *testing.T) {
	s := newTestSubscriber(t)
	s.Disconnect()
	s.Disconnect()
	assert.False(t, s.IsConnected())

	err := s.Connect(context.Background())
	assert.EqualError(t, err, "subscriber stopped")
}
