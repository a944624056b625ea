package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jonas9200/clima-AGS/pkg/readings"
)

type Config struct {
	AppEnv       string     `envconfig:"APP_ENV" default:"dev" validate:"oneof=dev prod"`
	LogLevelName string     `envconfig:"LOG_LEVEL" default:"info"`
	LogLevel     slog.Level `ignored:"true"`

	// HTTPAddr is overridden by PORT when set, as hosting platforms do.
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":10000"`
	Port              string        `envconfig:"PORT" validate:"omitempty,numeric"`
	ReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	Driver          string        `envconfig:"DB_DRIVER" default:"sqlite3" validate:"oneof=sqlite3 pgx"`
	DSN             string        `envconfig:"DATABASE_URL" validate:"required_if=Driver pgx"`
	Path            string        `envconfig:"SQLITE_PATH" default:"data/clima.db"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"1" validate:"gte=1"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"1" validate:"gte=0"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"0s"`
	LogSQL          bool          `envconfig:"DB_LOG_SQL" default:"false"`
	MigrateOnStart  bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`

	StoreLayoutName string          `envconfig:"STORE_LAYOUT" default:"wide" validate:"oneof=wide long"`
	StoreLayout     readings.Layout `ignored:"true"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitRPS       float64  `envconfig:"RATE_LIMIT_RPS" default:"20" validate:"gte=0"`
	RateLimitBurst     int      `envconfig:"RATE_LIMIT_BURST" default:"40" validate:"gte=1"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5" validate:"gte=1"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`

	// MQTT ingestion is disabled when MQTT_BROKER is empty.
	MQTTBroker   string `envconfig:"MQTT_BROKER"`
	MQTTPort     int    `envconfig:"MQTT_PORT" default:"1883" validate:"gte=1,lte=65535"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID" default:"clima-ags-server"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"clima/+/telemetria" validate:"required"`

	// Kafka ingestion is disabled when KAFKA_BROKERS is empty.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"clima.telemetria" validate:"required"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"clima-ags" validate:"required"`
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool { return strings.TrimSpace(c.MQTTBroker) != "" }

// KafkaEnabled reports whether any Kafka broker was configured.
func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// LoadFromEnv reads .env (if present), then the process environment.
// Variables already set in the environment win over .env.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	level, err := parseLogLevel(cfg.LogLevelName)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	layout, err := readings.ParseLayout(cfg.StoreLayoutName)
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORE_LAYOUT: %w", err)
	}
	cfg.StoreLayout = layout

	if p := strings.TrimSpace(cfg.Port); p != "" {
		cfg.HTTPAddr = ":" + p
	}
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)

	return cfg, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
