package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTOCOMPLETE_LIMIT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, 5, cfg.Session.AutocompleteLimit)
	assert.Equal(t, "X-Owner-ID", cfg.Session.OwnerHeader)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 24*time.Hour, cfg.Session.IdempotencyTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTOCOMPLETE_LIMIT", "8")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.Equal(t, 8, cfg.Session.AutocompleteLimit)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsBadAutocompleteLimit(t *testing.T) {
	t.Setenv("AUTOCOMPLETE_LIMIT", "0")
	assert.Equal(t, 5, Load().Session.AutocompleteLimit)

	t.Setenv("AUTOCOMPLETE_LIMIT", "many")
	assert.Equal(t, 5, Load().Session.AutocompleteLimit)
}
