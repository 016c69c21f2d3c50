package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy" mapstructure:"taxonomy"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver         string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	WriteBatchSize int    `yaml:"write_batch_size" mapstructure:"write_batch_size"`
}

// GeocodeConfig configures the geocoder adapter.
type GeocodeConfig struct {
	GoogleAPIKey     string `yaml:"google_api_key" mapstructure:"google_api_key"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheSize        int    `yaml:"cache_size" mapstructure:"cache_size"`
	BreakerFailures  int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ImportConfig configures the import orchestrator.
type ImportConfig struct {
	BatchSize         int      `yaml:"batch_size" mapstructure:"batch_size"`
	RecordDelayMs     int      `yaml:"record_delay_ms" mapstructure:"record_delay_ms"`
	BatchDelayMs      int      `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	MaxSlugAttempts   int      `yaml:"max_slug_attempts" mapstructure:"max_slug_attempts"`
	StoreRetryDelayMs int      `yaml:"store_retry_delay_ms" mapstructure:"store_retry_delay_ms"`
	MaxSuccessIDs     int      `yaml:"max_success_ids" mapstructure:"max_success_ids"`
	ProbeWebsites     bool     `yaml:"probe_websites" mapstructure:"probe_websites"`
	CrawlServices     bool     `yaml:"crawl_services" mapstructure:"crawl_services"`
	SamplePaths       []string `yaml:"sample_paths" mapstructure:"sample_paths"`
}

// CrawlConfig configures the service-extraction crawler.
type CrawlConfig struct {
	MaxCandidates   int      `yaml:"max_candidates" mapstructure:"max_candidates"`
	PageTimeoutSecs int      `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
	MaxBodyKB       int      `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	Concurrency     int      `yaml:"concurrency" mapstructure:"concurrency"`
	CacheSize       int      `yaml:"cache_size" mapstructure:"cache_size"`
	UserAgent       string   `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludePaths    []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// AnthropicConfig holds Anthropic API settings for marketing copy.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TaxonomyConfig points at an optional YAML override for the lookup tables.
type TaxonomyConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// MetricsConfig configures the Prometheus textfile export and import-health
// alerting.
type MetricsConfig struct {
	Textfile             string  `yaml:"textfile" mapstructure:"textfile"`
	AlertWebhook         string  `yaml:"alert_webhook" mapstructure:"alert_webhook"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "clinics.db")
	v.SetDefault("store.write_batch_size", 500)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.cache_size", 1024)
	v.SetDefault("geocode.breaker_failures", 5)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("import.batch_size", 20)
	v.SetDefault("import.record_delay_ms", 250)
	v.SetDefault("import.batch_delay_ms", 1000)
	v.SetDefault("import.max_slug_attempts", 100)
	v.SetDefault("import.store_retry_delay_ms", 1000)
	v.SetDefault("import.max_success_ids", 100)
	v.SetDefault("import.probe_websites", true)
	v.SetDefault("import.crawl_services", false)
	v.SetDefault("import.sample_paths", []string{
		"data/clinics.csv", "data/clinics.json", "data/clinics.xlsx", "sample.csv", "sample.json",
	})
	v.SetDefault("crawl.max_candidates", 10)
	v.SetDefault("crawl.page_timeout_secs", 10)
	v.SetDefault("crawl.max_body_kb", 1024)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.cache_size", 256)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; ClinicIngestBot/1.0)")
	v.SetDefault("crawl.exclude_paths", []string{"/blog/*", "/news/*", "/careers/*", "/privacy*", "/terms*"})
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("taxonomy.file", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.alert_webhook", "")
	v.SetDefault("metrics.failure_rate_threshold", 0.25)
	v.SetDefault("metrics.lookback_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts work.
// Mode is one of "import", "verify", "crawl" or "logs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.WriteBatchSize <= 0 {
		errs = append(errs, "store.write_batch_size must be positive")
	}

	switch mode {
	case "import":
		if c.Import.BatchSize <= 0 {
			errs = append(errs, "import.batch_size must be positive")
		}
		if c.Import.MaxSlugAttempts <= 0 {
			errs = append(errs, "import.max_slug_attempts must be positive")
		}
		if c.Import.RecordDelayMs < 0 || c.Import.BatchDelayMs < 0 {
			errs = append(errs, "import delays must not be negative")
		}
	case "crawl":
		if c.Crawl.MaxCandidates <= 0 {
			errs = append(errs, "crawl.max_candidates must be positive")
		}
		if c.Crawl.PageTimeoutSecs <= 0 {
			errs = append(errs, "crawl.page_timeout_secs must be positive")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
