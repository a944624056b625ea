package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/jonas9200/clima-AGS/internal/metrics"
	"github.com/jonas9200/clima-AGS/internal/modules/series/repository"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// Series is a raw series response: the records in ascending order and the
// rain total over exactly those records.
type Series struct {
	Filter    readings.Filter
	Records   []readings.Record
	TotalRain float64
	Report    readings.NormalizeReport
}

// HourlySeries is Series with the records bucketed by hour.
type HourlySeries struct {
	Series
	Buckets []readings.Bucket
}

type Options struct {
	// BreakerMaxFailures consecutive store failures open the breaker for
	// BreakerOpenTimeout.
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	Logger             *slog.Logger
	Metrics            *metrics.Metrics
}

type Service struct {
	repository repository.SeriesRepository
	breaker    *gobreaker.CircuitBreaker[any]
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(repo repository.SeriesRepository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerOpenTimeout <= 0 {
		opts.BreakerOpenTimeout = 30 * time.Second
	}

	s := &Service{
		repository: repo,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			s.metrics.SetBreakerState(int(to))
		},
	})
	return s
}

// Layout is the store layout the service reads.
func (s *Service) Layout() readings.Layout {
	return s.repository.Layout()
}

// BreakerState reports the store breaker state (closed, half-open, open).
func (s *Service) BreakerState() string {
	return s.breaker.State().String()
}

// storeCall runs fn through the breaker and maps any store failure, including
// a rejected call while the breaker is open, to ErrStoreUnavailable.
func storeCall[T any](ctx context.Context, cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	v, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, fmt.Errorf("%w: %w", readings.ErrStoreUnavailable, err)
	}
	return v.(T), nil
}

// Devices lists the known device ids, ascending. An empty store yields an
// empty, non-nil list.
func (s *Service) Devices(ctx context.Context) ([]string, error) {
	devices, err := storeCall(ctx, s.breaker, func() ([]string, error) {
		return s.repository.ListDevices(ctx)
	})
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []string{}
	}
	return devices, nil
}

func (s *Service) fetch(ctx context.Context, f readings.Filter) ([]readings.Record, readings.NormalizeReport, error) {
	if f.IsEmpty() {
		return []readings.Record{}, readings.NormalizeReport{Skipped: map[readings.SkipReason]int{}}, nil
	}

	started := time.Now()
	rows, err := storeCall(ctx, s.breaker, func() (readings.RawRows, error) {
		return s.repository.FetchRows(ctx, f)
	})
	s.metrics.ObserveFetch(time.Since(started))
	if err != nil {
		return nil, readings.NormalizeReport{}, err
	}

	records, report, err := readings.Normalize(rows)
	if err != nil {
		return nil, readings.NormalizeReport{}, fmt.Errorf("normalize %s rows: %w", rows.Layout, err)
	}
	s.metrics.ObserveNormalize(report)
	if n := report.SkippedTotal(); n > 0 {
		s.logger.Warn("skipped malformed rows",
			"equipamento", f.DeviceID,
			"skipped", n,
			"bad_timestamp", report.Skipped[readings.SkipBadTimestamp],
			"unknown_metric", report.Skipped[readings.SkipUnknownMetric],
		)
	}
	return records, report, nil
}

// Series fetches and normalizes the records selected by f and totals their
// rain. The empty filter yields an empty series without a store call.
func (s *Service) Series(ctx context.Context, f readings.Filter) (Series, error) {
	records, report, err := s.fetch(ctx, f)
	if err != nil {
		s.metrics.SeriesRequest("raw", outcome(err))
		return Series{}, err
	}
	s.metrics.SeriesRequest("raw", "ok")
	return Series{
		Filter:    f,
		Records:   records,
		TotalRain: readings.TotalRain(records),
		Report:    report,
	}, nil
}

// Hourly is Series plus hourly buckets. Total and buckets are computed from
// the same record slice.
func (s *Service) Hourly(ctx context.Context, f readings.Filter) (HourlySeries, error) {
	records, report, err := s.fetch(ctx, f)
	if err != nil {
		s.metrics.SeriesRequest("hourly", outcome(err))
		return HourlySeries{}, err
	}

	s.metrics.SeriesRequest("hourly", "ok")
	return HourlySeries{
		Series: Series{
			Filter:    f,
			Records:   records,
			TotalRain: readings.TotalRain(records),
			Report:    report,
		},
		Buckets: readings.Hourly(records),
	}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, readings.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
