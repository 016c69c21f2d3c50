package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "clinics.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 500, cfg.Store.WriteBatchSize)
	assert.Equal(t, 10, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, 1024, cfg.Geocode.CacheSize)
	assert.Equal(t, 5, cfg.Geocode.BreakerFailures)
	assert.Equal(t, 20, cfg.Import.BatchSize)
	assert.Equal(t, 250, cfg.Import.RecordDelayMs)
	assert.Equal(t, 1000, cfg.Import.BatchDelayMs)
	assert.Equal(t, 100, cfg.Import.MaxSlugAttempts)
	assert.Equal(t, 100, cfg.Import.MaxSuccessIDs)
	assert.True(t, cfg.Import.ProbeWebsites)
	assert.False(t, cfg.Import.CrawlServices)
	assert.Contains(t, cfg.Import.SamplePaths, "data/clinics.csv")
	assert.Equal(t, 10, cfg.Crawl.MaxCandidates)
	assert.Equal(t, 10, cfg.Crawl.PageTimeoutSecs)
	assert.NotEmpty(t, cfg.Crawl.UserAgent)
	assert.Equal(t, 512, cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 0.25, cfg.Metrics.FailureRateThreshold, 1e-9)
	assert.Equal(t, 24, cfg.Metrics.LookbackHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/clinics
log:
  level: debug
  format: console
import:
  batch_size: 5
  crawl_services: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/clinics", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Import.BatchSize)
	assert.True(t, cfg.Import.CrawlServices)
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.Import.MaxSlugAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CLINIC_STORE_DRIVER", "memory")
	t.Setenv("CLINIC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CLINIC_IMPORT_BATCH_SIZE", "7")
	t.Setenv("CLINIC_GEOCODE_GOOGLE_API_KEY", "gkey")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Import.BatchSize)
	assert.Equal(t, "gkey", cfg.Geocode.GoogleAPIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "clinics.db"
	cfg.Store.WriteBatchSize = 500
	cfg.Import.BatchSize = 20
	cfg.Import.MaxSlugAttempts = 100
	cfg.Crawl.MaxCandidates = 10
	cfg.Crawl.PageTimeoutSecs = 10
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		mode    string
		wantErr string
	}{
		{name: "defaults import", mode: "import"},
		{name: "defaults crawl", mode: "crawl"},
		{name: "memory needs no url", mode: "verify", mutate: func(c *Config) {
			c.Store.Driver = "memory"
			c.Store.DatabaseURL = ""
		}},
		{name: "missing url", mode: "import", wantErr: "store.database_url is required", mutate: func(c *Config) {
			c.Store.DatabaseURL = ""
		}},
		{name: "bad driver", mode: "logs", wantErr: "not supported", mutate: func(c *Config) {
			c.Store.Driver = "mysql"
		}},
		{name: "zero batch", mode: "import", wantErr: "import.batch_size", mutate: func(c *Config) {
			c.Import.BatchSize = 0
		}},
		{name: "zero slug attempts", mode: "import", wantErr: "max_slug_attempts", mutate: func(c *Config) {
			c.Import.MaxSlugAttempts = 0
		}},
		{name: "zero candidates", mode: "crawl", wantErr: "crawl.max_candidates", mutate: func(c *Config) {
			c.Crawl.MaxCandidates = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
