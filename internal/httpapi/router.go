package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/klauspost/compress/gzhttp"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/internal/metrics"
)

// NewRouter returns a router with the shared middleware stack, /healthz and
// /metrics. Feature modules register their routes on it.
func NewRouter(cfg config.Config, db *sql.DB, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(requestLogger(logger, m))
	r.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	registerHealthcheck(r, db)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

// NewHandler adds CORS and response compression around the router.
func NewHandler(cfg config.Config, router http.Handler) http.Handler {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
	)
	return gzhttp.GzipHandler(cors(router))
}

func NewServer(cfg config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, router),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
