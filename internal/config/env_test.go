package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("MONITOR_TEST_STRING", "value")

	assert.Equal(t, "value", GetEnvString("MONITOR_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnvString("MONITOR_TEST_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("MONITOR_TEST_INT", "42")
	t.Setenv("MONITOR_TEST_INT_BAD", "forty-two")

	assert.Equal(t, 42, GetEnvInt("MONITOR_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("MONITOR_TEST_INT_BAD", 7))
	assert.Equal(t, 7, GetEnvInt("MONITOR_TEST_UNSET", 7))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("MONITOR_TEST_DUR_UNITS", "2m")
	t.Setenv("MONITOR_TEST_DUR_SECONDS", "90")
	t.Setenv("MONITOR_TEST_DUR_BAD", "soon")

	assert.Equal(t, 2*time.Minute, GetEnvDuration("MONITOR_TEST_DUR_UNITS", time.Second))
	assert.Equal(t, 90*time.Second, GetEnvDuration("MONITOR_TEST_DUR_SECONDS", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("MONITOR_TEST_DUR_BAD", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("MONITOR_TEST_UNSET", time.Second))
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	t.Setenv("MONITOR_CLASSIFIER_URL", "https://inference.example/model")
	t.Setenv("MONITOR_CLASSIFIER_TIMEOUT", "30")

	cfg := DefaultConfig()
	assert.Equal(t, "https://inference.example/model", cfg.ClassifierURL)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout)
}
