package series

import (
	"database/sql"

	"github.com/go-chi/chi/v5"

	"github.com/jonas9200/clima-AGS/internal/db"
	"github.com/jonas9200/clima-AGS/internal/modules/series/controller"
	"github.com/jonas9200/clima-AGS/internal/modules/series/repository"
	"github.com/jonas9200/clima-AGS/internal/modules/series/service"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// RegisterFeature wires repository, service and controller for the series
// API onto r and returns the service so ingestion can share it.
func RegisterFeature(r chi.Router, conn *sql.DB, dialect db.Dialect, layout readings.Layout, opts service.Options) (*service.Service, error) {
	seriesRepository, err := repository.NewRepository(conn, dialect, layout)
	if err != nil {
		return nil, err
	}
	seriesService := service.NewService(seriesRepository, opts)
	seriesController := controller.NewSeriesController(seriesService, opts.Logger)
	seriesController.RegisterRoutes(r)
	return seriesService, nil
}
