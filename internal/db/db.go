package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/jonas9200/clima-AGS/internal/config"
)

// Dialect names a supported store driver. The value is also the
// database/sql driver name and the directory of the embedded SQL files.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// ParseDialect validates a DB_DRIVER value.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.TrimSpace(s)); d {
	case DialectSQLite, DialectPostgres:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported db driver %q (allowed: sqlite3, pgx)", s)
	}
}

func Open(cfg config.Config, logger *slog.Logger) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	dsn, err := buildDSN(dialect, cfg)
	if err != nil {
		return nil, "", err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(driverFor(dialect), dsn, logger)
		if err != nil {
			return nil, "", err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(string(dialect), dsn)
		if err != nil {
			return nil, "", fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("db ping: %w", err)
	}

	return db, dialect, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func driverFor(d Dialect) driver.Driver {
	if d == DialectPostgres {
		return stdlib.GetDefaultDriver()
	}
	return &sqlite3.SQLiteDriver{}
}

func buildDSN(d Dialect, cfg config.Config) (string, error) {
	if d == DialectPostgres {
		if cfg.DSN == "" {
			return "", fmt.Errorf("DATABASE_URL is required for driver %s", d)
		}
		return cfg.DSN, nil
	}

	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on", nil
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// busy_timeout avoids "database is locked" while ingestion writes and
	// the API reads; WAL lets both proceed.
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
