package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonas9200/clima-AGS/internal/modules/series/service"
	"github.com/jonas9200/clima-AGS/pkg/api"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// SeriesService is the part of service.Service the handlers need.
type SeriesService interface {
	Series(ctx context.Context, f readings.Filter) (service.Series, error)
	Hourly(ctx context.Context, f readings.Filter) (service.HourlySeries, error)
	Devices(ctx context.Context) ([]string, error)
}

type SeriesController interface {
	RegisterRoutes(r chi.Router)
}

type seriesControllerImpl struct {
	service SeriesService
	logger  *slog.Logger
	now     func() time.Time
}

func NewSeriesController(svc SeriesService, logger *slog.Logger) SeriesController {
	if logger == nil {
		logger = slog.Default()
	}
	return &seriesControllerImpl{service: svc, logger: logger, now: time.Now}
}

func (c *seriesControllerImpl) RegisterRoutes(r chi.Router) {
	r.Get("/", c.handleRoot)
	r.Get(api.PathDevices, c.handleDevices)
	r.Get(api.PathSeries, c.handleSeries)
	r.Get(api.PathHourly, c.handleHourly)
}
