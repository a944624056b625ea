package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/internal/db"
	"github.com/jonas9200/clima-AGS/internal/httpapi"
	"github.com/jonas9200/clima-AGS/internal/kafka"
	"github.com/jonas9200/clima-AGS/internal/metrics"
	"github.com/jonas9200/clima-AGS/internal/migrate"
	"github.com/jonas9200/clima-AGS/internal/modules/series"
	"github.com/jonas9200/clima-AGS/internal/modules/series/service"
	"github.com/jonas9200/clima-AGS/internal/mqtt"
)

// App owns the store connection, the HTTP server and the optional
// ingestion adapters.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	service *service.Service
	server  *http.Server

	mqtt  *mqtt.Subscriber
	kafka *kafka.Consumer
}

// New opens the store, applies pending migrations when configured and
// builds the HTTP handler. Ingestion adapters are created but not started.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, dialect, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, db: conn, metrics: metrics.New()}

	if cfg.MigrateOnStart {
		applied, err := migrate.Run(ctx, conn, dialect, logger)
		if err != nil {
			_ = db.Close(conn)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "versions", applied)
		}
	}

	router := httpapi.NewRouter(cfg, conn, a.metrics, logger)
	a.service, err = series.RegisterFeature(router, conn, dialect, cfg.StoreLayout, service.Options{
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		Logger:             logger,
		Metrics:            a.metrics,
	})
	if err != nil {
		_ = db.Close(conn)
		return nil, err
	}
	a.server = httpapi.NewServer(cfg, router)

	if cfg.MQTTEnabled() {
		a.mqtt = mqtt.NewSubscriber(cfg, logger)
		a.mqtt.SetMessageHandler(a.service.Handler("mqtt"))
	}
	if cfg.KafkaEnabled() {
		a.kafka, err = kafka.NewConsumer(cfg, a.service.Handler("kafka"), logger)
		if err != nil {
			_ = db.Close(conn)
			return nil, err
		}
	}

	logger.Info("store ready",
		"driver", string(dialect),
		"layout", cfg.StoreLayout.String(),
		"mqtt", cfg.MQTTEnabled(),
		"kafka", cfg.KafkaEnabled(),
	)
	return a, nil
}

// Handler is the full HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP on the configured address until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It shuts the server down
// gracefully, stops ingestion and closes the store before returning.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info("http server shutting down")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.mqtt != nil {
		g.Go(func() error {
			// Connect blocks while the client retries; the API keeps
			// serving without a broker.
			if err := a.mqtt.Connect(gctx); err != nil && gctx.Err() == nil {
				a.logger.Warn("mqtt connect failed", "broker", a.cfg.MQTTBroker, "error", err)
			}
			<-gctx.Done()
			a.mqtt.Disconnect()
			return nil
		})
	}

	if a.kafka != nil {
		g.Go(func() error {
			return a.kafka.Run(gctx)
		})
	}

	return g.Wait()
}

func (a *App) close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("kafka close failed", "error", err)
		}
	}
	if err := db.Close(a.db); err != nil {
		a.logger.Warn("db close failed", "error", err)
	}
}
