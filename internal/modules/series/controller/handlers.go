package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonas9200/clima-AGS/internal/utils"
	"github.com/jonas9200/clima-AGS/pkg/api"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

const banner = "API do clima-AGS está funcionando"

func (c *seriesControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	utils.WriteText(w, http.StatusOK, banner)
}

func (c *seriesControllerImpl) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := c.service.Devices(r.Context())
	if err != nil {
		c.writeServiceError(w, "list devices", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.DevicesResponse{Devices: devices})
}

func (c *seriesControllerImpl) handleSeries(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilterQuery(r, c.now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := c.service.Series(r.Context(), f)
	if err != nil {
		c.writeServiceError(w, "series", err)
		return
	}
	c.logger.Debug("series served",
		"equipamento", f.DeviceID,
		"registros", len(s.Records),
		"skipped", s.Report.SkippedTotal(),
	)
	utils.WriteJSON(w, http.StatusOK, api.SeriesResponse{
		TotalRain: s.TotalRain,
		Records:   nonNil(s.Records),
	})
}

func (c *seriesControllerImpl) handleHourly(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilterQuery(r, c.now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := c.service.Hourly(r.Context(), f)
	if err != nil {
		c.writeServiceError(w, "hourly series", err)
		return
	}
	c.logger.Debug("hourly series served",
		"equipamento", f.DeviceID,
		"horas", len(h.Buckets),
	)
	utils.WriteJSON(w, http.StatusOK, api.HourlyResponse{
		TotalRain: h.TotalRain,
		Buckets:   nonNil(h.Buckets),
	})
}

// writeServiceError maps store failures to 503; nothing partial is written.
func (c *seriesControllerImpl) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, readings.ErrStoreUnavailable):
		c.logger.Error(op+" failed: store unavailable", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "store unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn(op+" aborted", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		c.logger.Error(op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load "+op)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
