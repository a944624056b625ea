// Package api holds the JSON bodies of the HTTP API, shared by the server
// and pkg/client.
package api

import "github.com/jonas9200/clima-AGS/pkg/readings"

// Query parameter names.
const (
	ParamDevice = "equipamento"
	ParamStart  = "data_inicial"
	ParamEnd    = "data_final"
	ParamPeriod = "periodo"
)

// Routes.
const (
	PathSeries  = "/api/series"
	PathHourly  = "/api/series/horaria"
	PathDevices = "/api/equipamentos"
)

type SeriesResponse struct {
	TotalRain float64           `json:"total_chuva"`
	Records   []readings.Record `json:"dados"`
}

type HourlyResponse struct {
	TotalRain float64           `json:"total_chuva"`
	Buckets   []readings.Bucket `json:"horas"`
}

type DevicesResponse struct {
	Devices []string `json:"equipamentos"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
