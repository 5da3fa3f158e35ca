// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DiscoveryConfig configures geo-target sweeps.
type DiscoveryConfig struct {
	PrimaryQueries   []string `yaml:"primary_queries" mapstructure:"primary_queries"`
	SecondaryQueries []string `yaml:"secondary_queries" mapstructure:"secondary_queries"`
	MapsBaseURL      string   `yaml:"maps_base_url" mapstructure:"maps_base_url"`
	QueryTimeoutSecs int      `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	MaxResults       int      `yaml:"max_results" mapstructure:"max_results"`
	RatePerMinute    float64  `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxErrors        int      `yaml:"max_errors" mapstructure:"max_errors"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// ClassifyConfig holds the classifier keyword sets. These are tuned
// empirically and meant to be edited in config, not code.
type ClassifyConfig struct {
	IrrelevantCategories []string `yaml:"irrelevant_categories" mapstructure:"irrelevant_categories"`
	ManagementSignals    []string `yaml:"management_signals" mapstructure:"management_signals"`
	ManagementCategories []string `yaml:"management_categories" mapstructure:"management_categories"`
}

// EnrichConfig configures contact enrichment probes.
type EnrichConfig struct {
	ProbeTimeoutSecs    int      `yaml:"probe_timeout_secs" mapstructure:"probe_timeout_secs"`
	FetchTimeoutSecs    int      `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MinSlugLen          int      `yaml:"min_slug_len" mapstructure:"min_slug_len"`
	MinVerifyTokenLen   int      `yaml:"min_verify_token_len" mapstructure:"min_verify_token_len"`
	MaxVerifyTokens     int      `yaml:"max_verify_tokens" mapstructure:"max_verify_tokens"`
	CorporateSuffixes   []string `yaml:"corporate_suffixes" mapstructure:"corporate_suffixes"`
	IndustryWords       []string `yaml:"industry_words" mapstructure:"industry_words"`
	DomainSuffixes      []string `yaml:"domain_suffixes" mapstructure:"domain_suffixes"`
	DomainIndustryWords []string `yaml:"domain_industry_words" mapstructure:"domain_industry_words"`
	ContactPaths        []string `yaml:"contact_paths" mapstructure:"contact_paths"`
	Concurrency         int      `yaml:"concurrency" mapstructure:"concurrency"`
	PauseBetweenLeadsMS int      `yaml:"pause_between_leads_ms" mapstructure:"pause_between_leads_ms"`
}

// OutreachConfig configures the SMTP mailer and send pacing.
type OutreachConfig struct {
	SMTPHost      string  `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort      int     `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser      string  `yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword  string  `yaml:"smtp_password" mapstructure:"smtp_password"`
	From          string  `yaml:"from" mapstructure:"from"`
	Subject       string  `yaml:"subject" mapstructure:"subject"`
	SendPerSecond float64 `yaml:"send_per_second" mapstructure:"send_per_second"`
}

// MonitoringConfig configures background health checks. Alerts are delivered
// to a webhook; an empty URL disables delivery but checks still log.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	SweepFailureThreshold float64 `yaml:"sweep_failure_threshold" mapstructure:"sweep_failure_threshold"`
	SendFailureThreshold  float64 `yaml:"send_failure_threshold" mapstructure:"send_failure_threshold"`
	EnrichBacklogMax      int     `yaml:"enrich_backlog_max" mapstructure:"enrich_backlog_max"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospector.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("discovery.primary_queries", []string{
		"homeowners association {location}",
		"HOA {location}",
		"community association {location}",
		"condominium association {location}",
		"property owners association {location}",
	})
	v.SetDefault("discovery.secondary_queries", []string{
		"HOA management {location}",
		"condo association {location}",
		"master planned community {location}",
		"townhome association {location}",
	})
	v.SetDefault("discovery.maps_base_url", "https://www.google.com/maps")
	v.SetDefault("discovery.query_timeout_secs", 30)
	v.SetDefault("discovery.max_results", 100)
	v.SetDefault("discovery.rate_per_minute", 20)
	v.SetDefault("discovery.max_errors", 25)
	v.SetDefault("discovery.user_agent", "Mozilla/5.0 (compatible; ProspectorBot/1.0)")

	v.SetDefault("classify.irrelevant_categories", []string{
		"restaurant", "cafe", "bar", "store", "shop", "salon",
		"gym", "church", "school", "hospital", "doctor", "dentist",
		"gas station", "car wash", "auto repair", "bank", "pharmacy",
	})
	v.SetDefault("classify.management_signals", []string{
		"management", "property management", "association management",
		"community management", "hoa management", "cam services",
		"realty", "real estate management",
	})
	v.SetDefault("classify.management_categories", []string{
		"property management", "real estate agent",
	})

	v.SetDefault("enrich.probe_timeout_secs", 5)
	v.SetDefault("enrich.fetch_timeout_secs", 6)
	v.SetDefault("enrich.min_slug_len", 4)
	v.SetDefault("enrich.min_verify_token_len", 5)
	v.SetDefault("enrich.max_verify_tokens", 3)
	v.SetDefault("enrich.corporate_suffixes", []string{
		"corporation", "incorporated", "limited", "company",
		"llc", "inc", "corp", "ltd", "co", "and", "the",
	})
	v.SetDefault("enrich.industry_words", []string{
		"construction", "contractors", "contracting", "builder", "builders",
		"building", "services", "service", "group", "associates",
		"enterprises", "general", "gc", "management", "association",
		"community", "homeowners", "hoa",
	})
	v.SetDefault("enrich.domain_suffixes", []string{"inc", "llc"})
	v.SetDefault("enrich.domain_industry_words", []string{"hoa", "management", "community"})
	v.SetDefault("enrich.contact_paths", []string{
		"", "/contact", "/about", "/about-us", "/contact-us", "/team",
	})
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.pause_between_leads_ms", 3000)

	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.sweep_failure_threshold", 0.5)
	v.SetDefault("monitoring.send_failure_threshold", 0.25)
	v.SetDefault("monitoring.enrich_backlog_max", 500)

	v.SetDefault("outreach.smtp_port", 587)
	v.SetDefault("outreach.subject", "Quick question about your community")
	v.SetDefault("outreach.send_per_second", 1)

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

// Validate checks that the configuration required for a given scope is
// present. Missing required configuration is a hard error that aborts the
// run.
func (c *Config) Validate(scope string) error {
	switch scope {
	case "store":
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
		}
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required")
		}
	case "outreach":
		if c.Outreach.SMTPHost == "" {
			return eris.New("config: outreach.smtp_host is required (PROSPECTOR_OUTREACH_SMTP_HOST)")
		}
		if c.Outreach.From == "" {
			return eris.New("config: outreach.from is required")
		}
	case "discovery":
		if len(c.Discovery.PrimaryQueries) == 0 {
			return eris.New("config: discovery.primary_queries must not be empty")
		}
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
