package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jonas9200/clima-AGS/internal/db"
	"github.com/jonas9200/clima-AGS/pkg/readings"
	"github.com/jonas9200/clima-AGS/pkg/telemetry"
)

//go:embed sql
var sqlFS embed.FS

// SeriesRepository reads raw rows in the layout the deployment is bound to.
type SeriesRepository interface {
	Layout() readings.Layout
	ListDevices(ctx context.Context) ([]string, error)
	FetchRows(ctx context.Context, f readings.Filter) (readings.RawRows, error)
	InsertReading(ctx context.Context, r telemetry.Reading) error
}

type queries struct {
	listDevices string
	fetch       string
	insert      string
}

type repositoryImpl struct {
	db      *sql.DB
	dialect db.Dialect
	layout  readings.Layout
	q       queries
}

func NewRepository(conn *sql.DB, dialect db.Dialect, layout readings.Layout) (SeriesRepository, error) {
	q, err := loadQueries(dialect, layout)
	if err != nil {
		return nil, err
	}
	return &repositoryImpl{db: conn, dialect: dialect, layout: layout, q: q}, nil
}

func loadQueries(dialect db.Dialect, layout readings.Layout) (queries, error) {
	var suffix string
	switch layout {
	case readings.LayoutWide:
		suffix = "wide"
	case readings.LayoutLong:
		suffix = "long"
	default:
		return queries{}, fmt.Errorf("%w: %s", readings.ErrUnknownLayout, layout)
	}

	read := func(name string) (string, error) {
		b, err := fs.ReadFile(sqlFS, fmt.Sprintf("sql/%s/%s-%s.sql", dialect, name, suffix))
		if err != nil {
			return "", fmt.Errorf("load %s query for %s: %w", name, dialect, err)
		}
		return string(b), nil
	}

	var q queries
	var err error
	if q.listDevices, err = read("list-devices"); err != nil {
		return queries{}, err
	}
	if q.fetch, err = read("fetch"); err != nil {
		return queries{}, err
	}
	if q.insert, err = read("insert"); err != nil {
		return queries{}, err
	}
	return q, nil
}

func (r *repositoryImpl) Layout() readings.Layout { return r.layout }

func (r *repositoryImpl) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listDevices)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close devices rows", "error", err)
		}
	}()

	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FetchRows returns the rows matching f in ascending timestamp order. The
// empty filter selects nothing and does not touch the store.
func (r *repositoryImpl) FetchRows(ctx context.Context, f readings.Filter) (readings.RawRows, error) {
	out := readings.RawRows{Layout: r.layout}
	if f.IsEmpty() {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, r.q.fetch, f.DeviceID, r.bindTime(f.Start), r.bindTime(f.End))
	if err != nil {
		return out, fmt.Errorf("fetch rows: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close series rows", "error", err)
		}
	}()

	switch r.layout {
	case readings.LayoutWide:
		out.Wide, err = scanWide(rows)
	case readings.LayoutLong:
		out.Long, err = scanLong(rows)
	}
	if err != nil {
		return readings.RawRows{Layout: r.layout}, err
	}
	return out, nil
}

// bindTime renders a timestamp for the dialect. SQLite keeps registro as
// text, so values are written and compared lexically with sub-second
// precision kept; Postgres takes the value and keeps its wall clock.
func (r *repositoryImpl) bindTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	if r.dialect == db.DialectPostgres {
		return *t
	}
	return t.Format(readings.StoreWriteLayout)
}

func scanWide(rows *sql.Rows) ([]readings.WideRow, error) {
	var out []readings.WideRow
	for rows.Next() {
		var (
			ts, device           sql.NullString
			rain, temp, humidity sql.NullFloat64
		)
		if err := rows.Scan(&ts, &device, &rain, &temp, &humidity); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, readings.WideRow{
			Timestamp:   ts.String,
			DeviceID:    device.String,
			Rain:        nullFloat(rain),
			Temperature: nullFloat(temp),
			Humidity:    nullFloat(humidity),
		})
	}
	return out, rows.Err()
}

func scanLong(rows *sql.Rows) ([]readings.LongRow, error) {
	var out []readings.LongRow
	for rows.Next() {
		var (
			ts, device sql.NullString
			metric     int
			value      float64
		)
		if err := rows.Scan(&ts, &device, &metric, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, readings.LongRow{
			Timestamp: ts.String,
			DeviceID:  device.String,
			Metric:    readings.MetricCode(metric),
			Value:     value,
		})
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// InsertReading stores one telemetry sample: a single row in the wide
// layout, or one row per present metric in the long layout.
func (r *repositoryImpl) InsertReading(ctx context.Context, rd telemetry.Reading) error {
	if err := rd.Validate(); err != nil {
		return err
	}
	rec := rd.Record()
	ts := r.bindTime(&rec.Timestamp)

	if r.layout == readings.LayoutWide {
		_, err := r.db.ExecContext(ctx, r.q.insert, ts, rec.DeviceID, rec.Rain, rec.Temperature, rec.Humidity)
		if err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	slots := []struct {
		code readings.MetricCode
		v    *float64
	}{
		{readings.MetricRain, rec.Rain},
		{readings.MetricTemperature, rec.Temperature},
		{readings.MetricHumidity, rec.Humidity},
	}
	for _, s := range slots {
		if s.v == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, r.q.insert, ts, rec.DeviceID, int(s.code), *s.v); err != nil {
			return fmt.Errorf("insert %s reading: %w", s.code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}
