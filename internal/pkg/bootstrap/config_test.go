package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshal(t *testing.T) {
	raw := `
app:
  reservation:
    max_per_reservation: 50
    soft_hold_ttl: 15m
    retry_attempts: 5
    retry_backoff: 10ms
  reaper:
    interval: 1m
    batch_size: 20
  cache:
    availability_ttl: 2s
infra:
  kafka:
    brokers:
      - broker-1:9092
      - broker-2:9092
    stock_events_topic: stock-events
store:
  driver: memory
`
	cfg := defaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(raw), cfg))

	assert.Equal(t, 50, cfg.App.Reservation.MaxPerReservation)
	assert.Equal(t, 15*time.Minute, cfg.App.Reservation.SoftHoldTTL.Duration)
	assert.Equal(t, 10*time.Millisecond, cfg.App.Reservation.RetryBackoff.Duration)
	assert.Equal(t, time.Minute, cfg.App.Reaper.Interval.Duration)
	assert.Equal(t, 2*time.Second, cfg.App.Cache.AvailabilityTTL.Duration)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "memory", cfg.Store.Driver)

	// 未覆盖的键保留默认值
	assert.Equal(t, 3306, cfg.Infra.Mysql.Port)
	assert.NotEmpty(t, cfg.App.Reservation.AdmissionRule)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("STORE_DRIVER", "memory")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d Duration
	err := yaml.Unmarshal([]byte(`"not-a-duration"`), &d)
	assert.Error(t, err)
}
