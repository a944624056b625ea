package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// unsetEnv clears keys for the duration of the test; t.Setenv restores them.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "PORT", "DB_DRIVER", "DATABASE_URL",
	"STORE_LAYOUT", "CORS_ALLOWED_ORIGINS", "MQTT_BROKER", "KAFKA_BROKERS",
	"DB_MAX_OPEN_CONNS", "BREAKER_OPEN_TIMEOUT",
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	unsetEnv(t, allKeys...)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ":10000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite3", cfg.Driver)
	assert.Equal(t, readings.LayoutWide, cfg.StoreLayout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
	assert.False(t, cfg.MQTTEnabled())
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	unsetEnv(t, allKeys...)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/clima")
	t.Setenv("STORE_LAYOUT", "long")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MQTT_BROKER", "localhost")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "pgx", cfg.Driver)
	assert.Equal(t, readings.LayoutLong, cfg.StoreLayout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.MQTTEnabled())
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "app env", key: "APP_ENV", val: "staging"},
		{name: "log level", key: "LOG_LEVEL", val: "loud"},
		{name: "driver", key: "DB_DRIVER", val: "mysql"},
		{name: "pgx without url", key: "DB_DRIVER", val: "pgx"},
		{name: "layout", key: "STORE_LAYOUT", val: "pivot"},
		{name: "port", key: "PORT", val: "http"},
		{name: "pool size", key: "DB_MAX_OPEN_CONNS", val: "many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, allKeys...)
			t.Setenv(tt.key, tt.val)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}
