package config

import (
	"fmt"
	"time"

	"github.com/funnelmon/funnelmon/anomaly"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/db/restdb"
	"github.com/funnelmon/funnelmon/helpers"
	"github.com/funnelmon/funnelmon/models"
	"github.com/funnelmon/funnelmon/summarizer"
)

const (
	DefaultLoggingLevel     = "info"
	DefaultServerPort       = 8080
	DefaultHealthServerPort = 8081

	DefaultSweepInterval        = 10 * time.Minute
	DefaultDailyLookbackDays    = 30
	DefaultRetryInitialInterval = 500 * time.Millisecond

	DefaultForecastLookbackDays = 30
	DefaultForecastHorizonDays  = 7

	DefaultPruneInterval      = 24 * time.Hour
	DefaultAlertRetentionDays = 90

	DefaultRuleDomain = "funnel"

	DefaultAlertCacheCapacity = 4096

	DefaultRateLimitMaxAmount     = 10
	DefaultRateLimitValidDuration = 1 * time.Second
)

var DefaultHttpClientTimeout = 5 * time.Second

type StoreMode string

const (
	StoreModeRest StoreMode = "rest"
	StoreModeSql  StoreMode = "sql"
)

// StoreConfig selects the backing store for alerts, metrics and mapping
// rules. Mode "rest" talks to a PostgREST-style endpoint, "sql" connects
// directly.
type StoreConfig struct {
	Mode     StoreMode              `yaml:"mode" json:"mode"`
	Database db.DatabaseConfig      `yaml:"database" json:"database"`
	Rest     restdb.RestStoreConfig `yaml:"rest" json:"rest"`
}

type DetectionConfig struct {
	ThresholdPercent float64 `yaml:"threshold_percent" json:"threshold_percent"`
}

type CorrelationConfig struct {
	ToleranceMinutes   int           `yaml:"tolerance_minutes" json:"tolerance_minutes"`
	RuleCacheTTL       time.Duration `yaml:"rule_cache_ttl" json:"rule_cache_ttl"`
	RuleDomain         string        `yaml:"rule_domain" json:"rule_domain"`
	AlertCacheCapacity int           `yaml:"alert_cache_capacity" json:"alert_cache_capacity"`
}

type SweeperConfig struct {
	Interval             time.Duration `yaml:"interval" json:"interval"`
	DailyLookbackDays    int           `yaml:"daily_lookback_days" json:"daily_lookback_days"`
	HourlyMetrics        []string      `yaml:"hourly_metrics" json:"hourly_metrics"`
	DailyMetrics         []string      `yaml:"daily_metrics" json:"daily_metrics"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" json:"retry_initial_interval"`
}

// PrunerConfig drives the alert retention job. Pruning only runs against a
// directly connected database; rest mode leaves retention to the endpoint.
type PrunerConfig struct {
	Interval           time.Duration `yaml:"interval" json:"interval"`
	AlertRetentionDays int           `yaml:"alert_retention_days" json:"alert_retention_days"`
}

type ForecastConfig struct {
	LookbackDays       int `yaml:"lookback_days" json:"lookback_days"`
	DefaultHorizonDays int `yaml:"default_horizon_days" json:"default_horizon_days"`
}

type RateLimitConfig struct {
	MaxAmount     int           `yaml:"max_amount" json:"max_amount"`
	ValidDuration time.Duration `yaml:"valid_duration" json:"valid_duration"`
}

type Config struct {
	Logging           helpers.LoggingConfig `yaml:"logging" json:"logging"`
	Server            helpers.ServerConfig  `yaml:"server" json:"server"`
	Health            helpers.HealthConfig  `yaml:"health" json:"health"`
	Store             StoreConfig           `yaml:"store" json:"store"`
	Detection         DetectionConfig       `yaml:"detection" json:"detection"`
	Correlation       CorrelationConfig     `yaml:"correlation" json:"correlation"`
	Sweeper           SweeperConfig         `yaml:"sweeper" json:"sweeper"`
	Pruner            PrunerConfig          `yaml:"pruner" json:"pruner"`
	Forecast          ForecastConfig        `yaml:"forecast" json:"forecast"`
	Summarizer        summarizer.Config     `yaml:"summarizer" json:"summarizer"`
	RateLimit         RateLimitConfig       `yaml:"rate_limit" json:"rate_limit"`
	HttpClientTimeout time.Duration         `yaml:"http_client_timeout" json:"http_client_timeout"`
}

func defaultConfig() Config {
	return Config{
		Logging: helpers.LoggingConfig{
			Level: DefaultLoggingLevel,
		},
		Server: helpers.ServerConfig{
			Port: DefaultServerPort,
		},
		Health: helpers.HealthConfig{
			ServerConfig: helpers.ServerConfig{
				Port: DefaultHealthServerPort,
			},
		},
		Store: StoreConfig{
			Mode: StoreModeRest,
		},
		Detection: DetectionConfig{
			ThresholdPercent: anomaly.DefaultThresholdPercent,
		},
		Correlation: CorrelationConfig{
			ToleranceMinutes:   correlation.DefaultToleranceMinutes,
			RuleCacheTTL:       correlation.DefaultRuleCacheTTL,
			RuleDomain:         DefaultRuleDomain,
			AlertCacheCapacity: DefaultAlertCacheCapacity,
		},
		Sweeper: SweeperConfig{
			Interval:             DefaultSweepInterval,
			DailyLookbackDays:    DefaultDailyLookbackDays,
			HourlyMetrics:        models.HourlyMetricFields(),
			DailyMetrics:         models.DailyMetricFields(),
			RetryInitialInterval: DefaultRetryInitialInterval,
		},
		Pruner: PrunerConfig{
			Interval:           DefaultPruneInterval,
			AlertRetentionDays: DefaultAlertRetentionDays,
		},
		Forecast: ForecastConfig{
			LookbackDays:       DefaultForecastLookbackDays,
			DefaultHorizonDays: DefaultForecastHorizonDays,
		},
		RateLimit: RateLimitConfig{
			MaxAmount:     DefaultRateLimitMaxAmount,
			ValidDuration: DefaultRateLimitValidDuration,
		},
		HttpClientTimeout: DefaultHttpClientTimeout,
	}
}

// LoadConfig reads the yaml file at path over the defaults. An empty path
// yields the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	conf := defaultConfig()
	if err := helpers.LoadYamlFile(path, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.Detection.ThresholdPercent <= 0 {
		return fmt.Errorf("Configuration error: detection.threshold_percent is less-equal than 0")
	}
	if c.Correlation.ToleranceMinutes <= 0 {
		return fmt.Errorf("Configuration error: correlation.tolerance_minutes is less-equal than 0")
	}
	if c.Correlation.RuleCacheTTL <= 0 {
		return fmt.Errorf("Configuration error: correlation.rule_cache_ttl is less-equal than 0")
	}
	if c.Correlation.AlertCacheCapacity <= 0 {
		return fmt.Errorf("Configuration error: correlation.alert_cache_capacity is less-equal than 0")
	}
	if err := c.validateSweeper(); err != nil {
		return err
	}
	if c.Pruner.Interval <= 0 {
		return fmt.Errorf("Configuration error: pruner.interval is less-equal than 0")
	}
	if c.Pruner.AlertRetentionDays <= 0 {
		return fmt.Errorf("Configuration error: pruner.alert_retention_days is less-equal than 0")
	}
	if err := c.validateForecast(); err != nil {
		return err
	}
	if c.Summarizer.URL != "" && c.Summarizer.APIKey == "" {
		return fmt.Errorf("Configuration error: summarizer.api_key is empty")
	}
	if c.RateLimit.MaxAmount <= 0 {
		return fmt.Errorf("Configuration error: rate_limit.max_amount is less-equal than 0")
	}
	if c.RateLimit.ValidDuration <= 0 {
		return fmt.Errorf("Configuration error: rate_limit.valid_duration is less-equal than 0")
	}
	if c.HttpClientTimeout <= 0 {
		return fmt.Errorf("Configuration error: http_client_timeout is less-equal than 0")
	}
	return c.Health.Validate()
}

func (c *Config) validateStore() error {
	switch c.Store.Mode {
	case StoreModeRest:
		if c.Store.Rest.BaseURL == "" {
			return fmt.Errorf("Configuration error: store.rest.base_url is empty")
		}
	case StoreModeSql:
		if c.Store.Database.URL == "" {
			return fmt.Errorf("Configuration error: store.database.url is empty")
		}
	default:
		return fmt.Errorf("Configuration error: store.mode must be %q or %q", StoreModeRest, StoreModeSql)
	}
	return nil
}

func (c *Config) validateSweeper() error {
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("Configuration error: sweeper.interval is less-equal than 0")
	}
	if c.Sweeper.DailyLookbackDays <= 0 {
		return fmt.Errorf("Configuration error: sweeper.daily_lookback_days is less-equal than 0")
	}
	if c.Sweeper.RetryInitialInterval <= 0 {
		return fmt.Errorf("Configuration error: sweeper.retry_initial_interval is less-equal than 0")
	}
	for _, m := range c.Sweeper.HourlyMetrics {
		if !models.IsHourlyMetricField(m) {
			return fmt.Errorf("Configuration error: sweeper.hourly_metrics contains unknown metric %q", m)
		}
	}
	for _, m := range c.Sweeper.DailyMetrics {
		if !models.IsDailyMetricField(m) {
			return fmt.Errorf("Configuration error: sweeper.daily_metrics contains unknown metric %q", m)
		}
	}
	return nil
}

func (c *Config) validateForecast() error {
	if c.Forecast.LookbackDays <= 0 {
		return fmt.Errorf("Configuration error: forecast.lookback_days is less-equal than 0")
	}
	if c.Forecast.DefaultHorizonDays <= 0 {
		return fmt.Errorf("Configuration error: forecast.default_horizon_days is less-equal than 0")
	}
	return nil
}
