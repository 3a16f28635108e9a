package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, SourceSample, cfg.Source.Kind)
	assert.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
server:
  port: 9001
search:
  defaultLimit: 5
  maxResults: 50
  fieldWeights:
    title: 4.5
source:
  kind: csv
  csvPath: /data/medicines.csv
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))
	t.Setenv("MS_SERVER_PORT", "9100")
	t.Setenv("MS_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 4.5, cfg.Search.FieldWeights["title"])
	assert.Equal(t, "/data/medicines.csv", cfg.Source.CSVPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"csv without path", func(c *Config) { c.Source.Kind = SourceCSV }},
		{"unknown source", func(c *Config) { c.Source.Kind = "s3" }},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 3 }},
		{"negative weight", func(c *Config) { c.Search.FieldWeights = map[string]float64{"title": -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRateLimitOverride(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RateLimit)

	t.Setenv("MS_SERVER_RATE_LIMIT", "120")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Server.RateLimit)
}
