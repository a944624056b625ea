package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/pkg/api"
)

const seriesBody = `{"total_chuva":2,"dados":[
{"registro":"2024-01-01T10:15:00Z","equipamento":"A","chuva":1.5,"temperatura":22,"umidade":null},
{"registro":"2024-01-01T10:45:00Z","equipamento":"A","chuva":0.5,"temperatura":null,"umidade":null},
{"registro":"2024-01-01T11:05:00Z","equipamento":"A","chuva":null,"temperatura":20,"umidade":80}
]}`

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client())
}

func TestClient_Series(t *testing.T) {
	var gotQuery string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathSeries, r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(seriesBody))
	})

	res, err := c.Series(context.Background(), Query{
		DeviceID: "A",
		Start:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Period:   "7d",
	})
	require.NoError(t, err)
	assert.Equal(t, "data_inicial=2024-01-01+10%3A00%3A00&equipamento=A&periodo=7d", gotQuery)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 2.0, res.TotalRain)
	assert.Nil(t, res.Records[0].Humidity)
}

func TestClient_HourlySeriesBucketsLocally(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(seriesBody))
	})

	res, err := c.HourlySeries(context.Background(), Query{DeviceID: "A"})
	require.NoError(t, err)
	require.Len(t, res.Buckets, 2)

	first := res.Buckets[0]
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), first.HourStart)
	assert.Equal(t, 2, first.SampleCount)
	assert.Equal(t, 2.0, first.Rain)
	assert.Equal(t, 22.0, first.Temperature)
	assert.Zero(t, first.HumiditySamples)

	second := res.Buckets[1]
	assert.Equal(t, 80.0, second.Humidity)
	assert.Zero(t, second.Rain)
	assert.Equal(t, 2.0, res.TotalRain)
}

func TestClient_Devices(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathDevices, r.URL.Path)
		_, _ = w.Write([]byte(`{"equipamentos":["A","B"]}`))
	})

	devices, err := c.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, devices)
}

func TestClient_ErrorResponse(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Service Unavailable","message":"store unavailable"}`))
	})

	_, err := c.Hourly(context.Background(), Query{DeviceID: "A"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.EqualError(t, err, "api: 503 Service Unavailable: store unavailable")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "store unavailable", apiErr.Message)
}

func TestClient_BadRequestWithoutBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Series(context.Background(), Query{DeviceID: "A"})
	assert.EqualError(t, err, "api: 400 Bad Request")
	assert.False(t, IsUnavailable(err))
}
