package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "rcc")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, Database: "postgres", SSLMode: "disable", MaxConns: 10}
	cfg.LoadFromEnv("DB")

	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "rcc", cfg.Database)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Equal(t, "host=pg.internal port=6543 user= password= dbname=rcc sslmode=disable", cfg.GetDSN())
}

func TestMQTTConfig_LoadFromEnv_IgnoresInvalidQoS(t *testing.T) {
	t.Setenv("MQTT_QOS", "7")
	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), cfg.QoS)

	t.Setenv("MQTT_QOS", "2")
	cfg.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), cfg.QoS)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.True(t, ParseBool("true", false))
	assert.False(t, ParseBool("nope", false))
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("x", time.Minute))
}
