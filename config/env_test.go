package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, "sqlite", DatabaseDriver())
	assert.Equal(t, time.Hour, JWTExpiry())
	assert.Equal(t, 100, PaginationMaxLimit())
	assert.False(t, CacheStrictOwnership())
	assert.False(t, OrderStrictTransitions())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "90m")
	assert.Equal(t, 90*time.Minute, JWTExpiry())

	t.Setenv("JWT_EXPIRES_IN", "120")
	assert.Equal(t, 2*time.Minute, JWTExpiry())

	t.Setenv("JWT_EXPIRES_IN", "soon")
	assert.Equal(t, time.Hour, JWTExpiry(), "unparseable durations fall back")

	t.Setenv("CACHE_STRICT_OWNERSHIP", "true")
	assert.True(t, CacheStrictOwnership())
}

func TestDatabaseDSNPrecedence(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	assert.Contains(t, DatabaseDSN(), "dbname=ordersvc")

	t.Setenv("DB_DSN", "postgres://db/orders")
	assert.Equal(t, "postgres://db/orders", DatabaseDSN())

	t.Setenv("DATABASE_URL", "postgres://primary/orders")
	assert.Equal(t, "postgres://primary/orders", DatabaseDSN())

	t.Setenv("DB_DRIVER", "oracle")
	assert.Equal(t, "sqlite", DatabaseDriver(), "unknown drivers fall back to sqlite")
}

func TestPortPrefersPORT(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	assert.Equal(t, "9000", AppPort())

	t.Setenv("PORT", "3000")
	assert.Equal(t, "3000", AppPort())
}

func TestListsAndSet(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, KafkaBrokers())

	Set("ORDERSVC_TEST_ONLY", "yes")
	assert.Equal(t, "yes", Get("ORDERSVC_TEST_ONLY", "no"))
	assert.Equal(t, "fallback", Get("ORDERSVC_MISSING_KEY", "fallback"))
}
