package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/pkg/api"
)

func TestRunQuery_SeriesUsesFallbackDevice(t *testing.T) {
	var gotDevice, gotPeriod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathDevices:
			w.WriteHeader(http.StatusServiceUnavailable)
		case api.PathSeries:
			gotDevice = r.URL.Query().Get(api.ParamDevice)
			gotPeriod = r.URL.Query().Get(api.ParamPeriod)
			_, _ = w.Write([]byte(`{"total_chuva":1.5,"dados":[{"registro":"2024-01-01T10:15:00Z","equipamento":"Pluviometro_01","chuva":1.5,"temperatura":null,"umidade":null}]}`))
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runQuery(context.Background(), "series", []string{"-server", srv.URL}, &out)
	require.NoError(t, err)

	assert.Equal(t, fallbackDevice, gotDevice)
	assert.Equal(t, "24h", gotPeriod)
	assert.Contains(t, out.String(), "2024-01-01 10:15:00")
	assert.Contains(t, out.String(), "1.50 mm")
}

func TestRunQuery_HourlyExplicitRange(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathHourly, r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"device": q.Get(api.ParamDevice),
			"start":  q.Get(api.ParamStart),
			"period": q.Get(api.ParamPeriod),
		}
		_, _ = w.Write([]byte(`{"total_chuva":0,"horas":[{"hora":"2024-01-01T10:00:00Z","amostras":2,"temperatura":21.5,"umidade":0,"chuva":0,"amostras_temperatura":2,"amostras_umidade":0,"amostras_chuva":0}]}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runQuery(context.Background(), "hourly",
		[]string{"-server", srv.URL, "-device", "A", "-from", "2024-01-01 00:00:00"}, &out)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"device": "A", "start": "2024-01-01 00:00:00", "period": ""}, gotQuery)
	assert.Contains(t, out.String(), "2024-01-01 10:00")
	assert.Contains(t, out.String(), "21.50")
}

func TestRunQuery_Devices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"equipamentos":["A","B"]}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runQuery(context.Background(), "devices", []string{"-server", srv.URL, "-json"}, &out))
	assert.JSONEq(t, `["A","B"]`, out.String())
}

func TestRunQuery_BadFlags(t *testing.T) {
	var out bytes.Buffer
	err := runQuery(context.Background(), "series", []string{"-server", "http://127.0.0.1:1", "-device", "A", "-from", "yesterday"}, &out)
	assert.ErrorContains(t, err, "-from")
}

func TestWindowKeys_ListsLabels(t *testing.T) {
	assert.Equal(t, "24h (Últimas 24h), 7d (Últimos 7 dias), 30d (Último mês)", windowKeys())
}
