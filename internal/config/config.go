package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

// Config is the root configuration for the CareerOS aggregator.
type Config struct {
	FetchInterval time.Duration // how often the scheduler re-runs tracked searches
	Sources       []model.Source
	SerpAPIKey    string // expanded from env var by Load
	HTTPTimeout   time.Duration
	Store         StoreConfig
	Aggregation   AggregationConfig
	Pacing        PacingConfig
	Filters       FilterConfig
	Notification  NotificationConfig
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AggregationConfig bounds one aggregation run.
type AggregationConfig struct {
	MaxJobsPerSource  int  `yaml:"max_jobs_per_source"`
	FilterToWeek      bool `yaml:"filter_to_week"`
	PerPartitionLimit int  `yaml:"per_partition_limit"`
	TotalLimit        int  `yaml:"total_limit"`
}

// PacingConfig controls the randomized pause between source calls.
type PacingConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// FilterConfig holds keyword and location filter settings for notifications.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
	ExcludeLocations     []string `yaml:"exclude_locations"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	FetchInterval string             `yaml:"fetch_interval"`
	Sources       []string           `yaml:"sources"`
	SerpAPIKey    string             `yaml:"serpapi_key"`
	HTTPTimeout   string             `yaml:"http_timeout"`
	Store         StoreConfig        `yaml:"store"`
	Aggregation   rawAggregation     `yaml:"aggregation"`
	Pacing        rawPacing          `yaml:"pacing"`
	Filters       FilterConfig       `yaml:"filters"`
	Notification  NotificationConfig `yaml:"notification"`
}

type rawAggregation struct {
	MaxJobsPerSource  int   `yaml:"max_jobs_per_source"`
	FilterToWeek      *bool `yaml:"filter_to_week"`
	PerPartitionLimit int   `yaml:"per_partition_limit"`
	TotalLimit        int   `yaml:"total_limit"`
}

type rawPacing struct {
	MinDelay string `yaml:"min_delay"`
	MaxDelay string `yaml:"max_delay"`
}

// Defaults applied when the file omits a field.
const (
	defaultFetchInterval = 24 * time.Hour
	defaultHTTPTimeout   = 15 * time.Second
	defaultPacingMin     = 2 * time.Second
	defaultPacingMax     = 4 * time.Second
	defaultStorePath     = "careeros.db"

	defaultMaxJobsPerSource  = 25
	defaultPerPartitionLimit = 10
	defaultTotalLimit        = 20
)

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Environment variable references in the file are expanded
// before parsing, so secrets like the SerpAPI key can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval := defaultFetchInterval
	if raw.FetchInterval != "" {
		interval, err = time.ParseDuration(raw.FetchInterval)
		if err != nil {
			return nil, fmt.Errorf("parse fetch_interval %q: %w", raw.FetchInterval, err)
		}
	}

	httpTimeout := defaultHTTPTimeout
	if raw.HTTPTimeout != "" {
		httpTimeout, err = time.ParseDuration(raw.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse http_timeout %q: %w", raw.HTTPTimeout, err)
		}
	}

	sources := model.AllSources()
	if len(raw.Sources) > 0 {
		sources = sources[:0]
		for _, s := range raw.Sources {
			src, err := model.ParseSource(s)
			if err != nil {
				return nil, fmt.Errorf("parse sources: %w", err)
			}
			sources = append(sources, src)
		}
	}

	pacingMin := defaultPacingMin
	if raw.Pacing.MinDelay != "" {
		pacingMin, err = time.ParseDuration(raw.Pacing.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse pacing.min_delay %q: %w", raw.Pacing.MinDelay, err)
		}
	}
	pacingMax := defaultPacingMax
	if raw.Pacing.MaxDelay != "" {
		pacingMax, err = time.ParseDuration(raw.Pacing.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("parse pacing.max_delay %q: %w", raw.Pacing.MaxDelay, err)
		}
	}

	agg := AggregationConfig{
		MaxJobsPerSource:  raw.Aggregation.MaxJobsPerSource,
		FilterToWeek:      true,
		PerPartitionLimit: raw.Aggregation.PerPartitionLimit,
		TotalLimit:        raw.Aggregation.TotalLimit,
	}
	if raw.Aggregation.FilterToWeek != nil {
		agg.FilterToWeek = *raw.Aggregation.FilterToWeek
	}
	if agg.MaxJobsPerSource == 0 {
		agg.MaxJobsPerSource = defaultMaxJobsPerSource
	}
	if agg.PerPartitionLimit == 0 {
		agg.PerPartitionLimit = defaultPerPartitionLimit
	}
	if agg.TotalLimit == 0 {
		agg.TotalLimit = defaultTotalLimit
	}

	store := raw.Store
	if store.Path == "" {
		store.Path = defaultStorePath
	}

	cfg := &Config{
		FetchInterval: interval,
		Sources:       sources,
		SerpAPIKey:    raw.SerpAPIKey,
		HTTPTimeout:   httpTimeout,
		Store:         store,
		Aggregation:   agg,
		Pacing: PacingConfig{
			MinDelay: pacingMin,
			MaxDelay: pacingMax,
		},
		Filters:      raw.Filters,
		Notification: raw.Notification,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.FetchInterval <= 0 {
		return fmt.Errorf("fetch_interval must be positive, got %v", cfg.FetchInterval)
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %v", cfg.HTTPTimeout)
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	if cfg.Pacing.MinDelay < 0 || cfg.Pacing.MaxDelay < cfg.Pacing.MinDelay {
		return fmt.Errorf("pacing delays must satisfy 0 <= min_delay <= max_delay, got %v..%v",
			cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay)
	}
	if cfg.Aggregation.PerPartitionLimit > cfg.Aggregation.TotalLimit {
		return fmt.Errorf("aggregation.per_partition_limit %d exceeds total_limit %d",
			cfg.Aggregation.PerPartitionLimit, cfg.Aggregation.TotalLimit)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if len(cfg.Notification.WebhookURL) < len("https://hooks.slack.com/") ||
			cfg.Notification.WebhookURL[:len("https://hooks.slack.com/")] != "https://hooks.slack.com/" {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	return nil
}
