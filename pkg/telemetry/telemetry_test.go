package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestDecode(t *testing.T) {
	t.Run("store timestamp format", func(t *testing.T) {
		r, err := Decode([]byte(`{"equipamento":"Pluviometro_01","registro":"2024-01-01 10:15:00","chuva":0.2}`))
		require.NoError(t, err)
		assert.Equal(t, "Pluviometro_01", r.DeviceID)
		assert.True(t, r.Timestamp.Equal(time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)))
		assert.Equal(t, ptr(0.2), r.Rain)
		assert.Nil(t, r.Temperature)
	})

	t.Run("rfc3339 timestamp", func(t *testing.T) {
		r, err := Decode([]byte(`{"equipamento":"A","registro":"2024-01-01T10:15:00-03:00","temperatura":21.5}`))
		require.NoError(t, err)
		assert.Equal(t, 10, r.Timestamp.Hour())
		assert.Equal(t, ptr(21.5), r.Temperature)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := Decode([]byte(`{`))
		assert.ErrorContains(t, err, "parse telemetry")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		_, err := Decode([]byte(`{"equipamento":"A","registro":"ontem","chuva":1}`))
		assert.ErrorContains(t, err, "registro")
	})
}

func TestValidate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		in      Reading
		wantErr string
	}{
		{name: "ok", in: Reading{DeviceID: "A", Timestamp: ts, Humidity: ptr(55)}},
		{name: "missing device", in: Reading{Timestamp: ts, Rain: ptr(1)}, wantErr: "equipamento"},
		{name: "missing timestamp", in: Reading{DeviceID: "A", Rain: ptr(1)}, wantErr: "registro"},
		{name: "humidity above range", in: Reading{DeviceID: "A", Timestamp: ts, Humidity: ptr(101)}, wantErr: "umidade"},
		{name: "negative rain", in: Reading{DeviceID: "A", Timestamp: ts, Rain: ptr(-0.1)}, wantErr: "chuva"},
		{name: "no metric", in: Reading{DeviceID: "A", Timestamp: ts}, wantErr: "at least one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRecord(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rec := Reading{DeviceID: " A ", Timestamp: ts, Rain: ptr(1.5)}.Record()
	assert.Equal(t, "A", rec.DeviceID)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, ptr(1.5), rec.Rain)
}
