package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 3, cfg.Gemini.UploadAttempts)
	assert.Equal(t, 30*time.Second, cfg.Gemini.IngestionTimeout)
	assert.Equal(t, time.Second, cfg.Gemini.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Gemini.RetryBackoff)
	assert.Equal(t, 1024*1024, cfg.Materializer.ChunkBytes)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "us-east-1", cfg.Storage.S3Region)
	assert.Equal(t, 16, cfg.Worker.PoolSize)
	assert.Equal(t, 8, cfg.Worker.AiPoolSize)
	assert.False(t, cfg.IsProduction())
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "45s", want: 45 * time.Second},
		{name: "plain seconds", value: "90", want: 90 * time.Second},
		{name: "garbage falls back", value: "soon", want: 5 * time.Second},
		{name: "empty falls back", value: "", want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", 5*time.Second))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")
	assert.True(t, getEnvAsBool("TEST_FLAG", false))

	t.Setenv("TEST_FLAG", "nope")
	assert.False(t, getEnvAsBool("TEST_FLAG", false))
}
