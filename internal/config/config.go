package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/resilience"
	"github.com/sells-group/finresearch/internal/store"
	"github.com/sells-group/finresearch/internal/validate"
)

// Config holds the full application configuration.
type Config struct {
	Store      store.Config        `yaml:"store" mapstructure:"store"`
	Perplexity PerplexityConfig    `yaml:"perplexity" mapstructure:"perplexity"`
	Portal     PortalConfig        `yaml:"portal" mapstructure:"portal"`
	Cache      CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Research   ResearchConfig      `yaml:"research" mapstructure:"research"`
	Validation validate.Thresholds `yaml:"validation" mapstructure:"validation"`
	Companies  CompaniesConfig     `yaml:"companies" mapstructure:"companies"`
	Report     ReportConfig        `yaml:"report" mapstructure:"report"`
	Server     ServerConfig        `yaml:"server" mapstructure:"server"`
	Log        LogConfig           `yaml:"log" mapstructure:"log"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Model             string `yaml:"model" mapstructure:"model" validate:"required"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1,lte=10"`
	InitialBackoffMs  int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"gte=0"`
	RecencyFilter     string `yaml:"recency_filter" mapstructure:"recency_filter" validate:"omitempty,oneof=hour day week month year"`
	FinanceDomain     bool   `yaml:"finance_domain" mapstructure:"finance_domain"`
}

// Timeout is the per-request timeout.
func (c PerplexityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Retry is the backoff policy for AI requests.
func (c PerplexityConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxRetries, c.InitialBackoffMs, 2)
}

// PortalConfig configures the Moneycontrol scrape fallback.
type PortalConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=1"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1,lte=10"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"gte=0"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold" validate:"gte=1"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs" validate:"gte=1"`
}

// Timeout is the page fetch timeout.
func (c PortalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Retry is the backoff policy for page fetches.
func (c PortalConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxRetries, c.InitialBackoffMs, 2)
}

// Breaker configures the portal circuit breaker.
func (c PortalConfig) Breaker() resilience.CircuitBreakerConfig {
	return resilience.FromCircuitConfig(c.BreakerThreshold, c.BreakerResetSecs)
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir      string `yaml:"dir" mapstructure:"dir" validate:"required_if=Enabled true"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours" validate:"gt=0"`
}

// TTL is the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ResearchConfig holds batch defaults.
type ResearchConfig struct {
	Year       int      `yaml:"year" mapstructure:"year" validate:"gte=2000,lte=2100"`
	Quarters   []string `yaml:"quarters" mapstructure:"quarters" validate:"min=1,dive,oneof=Q1 Q2 Q3 Q4"`
	DelayMs    int      `yaml:"delay_ms" mapstructure:"delay_ms" validate:"gte=0"`
	Parallel   bool     `yaml:"parallel" mapstructure:"parallel"`
	MaxWorkers int      `yaml:"max_workers" mapstructure:"max_workers" validate:"gte=1,lte=50"`
}

// Delay is the pause between consecutive items.
func (c ResearchConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// QuarterList parses Quarters.
func (c ResearchConfig) QuarterList() ([]model.Quarter, error) {
	out := make([]model.Quarter, 0, len(c.Quarters))
	for _, s := range c.Quarters {
		q, err := model.ParseQuarter(s)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// CompaniesConfig locates the custom company registry.
type CompaniesConfig struct {
	CustomFile string `yaml:"custom_file" mapstructure:"custom_file"`
}

// ReportConfig configures exports.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("perplexity.key", "RESEARCH_PERPLEXITY_KEY", "PERPLEXITY_API_KEY")
	_ = v.BindEnv("store.database_url", "RESEARCH_STORE_DATABASE_URL", "DATABASE_URL")

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "data/research_results")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.requests_per_minute", 20)
	v.SetDefault("perplexity.timeout_secs", 30)
	v.SetDefault("perplexity.max_retries", 3)
	v.SetDefault("perplexity.initial_backoff_ms", 1000)
	v.SetDefault("perplexity.recency_filter", "month")
	v.SetDefault("perplexity.finance_domain", false)
	v.SetDefault("portal.enabled", true)
	v.SetDefault("portal.user_agent", "")
	v.SetDefault("portal.timeout_secs", 15)
	v.SetDefault("portal.requests_per_second", 1.0)
	v.SetDefault("portal.burst", 1)
	v.SetDefault("portal.max_retries", 2)
	v.SetDefault("portal.initial_backoff_ms", 1000)
	v.SetDefault("portal.breaker_threshold", 5)
	v.SetDefault("portal.breaker_reset_secs", 60)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "data/cache")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("research.year", 2024)
	v.SetDefault("research.quarters", []string{"Q1", "Q2", "Q3", "Q4"})
	v.SetDefault("research.delay_ms", 500)
	v.SetDefault("research.parallel", false)
	v.SetDefault("research.max_workers", 3)
	v.SetDefault("companies.custom_file", "data/custom_companies.yaml")
	v.SetDefault("report.dir", "data/reports")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	th := validate.DefaultThresholds()
	v.SetDefault("validation.collision_delta", th.CollisionDelta)
	v.SetDefault("validation.percent_pat_max", th.PercentPATMax)
	v.SetDefault("validation.percent_income_min", th.PercentIncomeMin)
	v.SetDefault("validation.pbt_over_ebit", th.PBTOverEBIT)
	v.SetDefault("validation.ebitda_margin_max", th.EBITDAMarginMax)
	v.SetDefault("validation.company_penalty", th.CompanyPenalty)
	v.SetDefault("validation.period_penalty", th.PeriodPenalty)
	v.SetDefault("validation.required_for_op_pbt", th.RequiredForOpPBT)
	v.SetDefault("validation.amount_min", th.AmountMin)
	v.SetDefault("validation.amount_max", th.AmountMax)
	v.SetDefault("validation.margin_min", th.MarginMin)
	v.SetDefault("validation.margin_max", th.MarginMax)
	v.SetDefault("validation.qoq_change_max", th.QoQChangeMax)
	v.SetDefault("validation.consistency_tolerance", th.ConsistencyTol)
}

// Validate checks the configuration for the given mode: "research",
// "batch" or "serve". Every problem found is reported in one error.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "research", "batch":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Perplexity.Key == "" && !c.Portal.Enabled {
		errs = append(errs, "perplexity.key is required when portal.enabled is false")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	if (c.Store.Driver == "" || c.Store.Driver == "file") && c.Store.Dir == "" {
		errs = append(errs, "store.dir is required for the file driver")
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s fails %q", fieldPath(fe), fe.Tag()))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// fieldPath renders a validator namespace ("Config.Research.MaxWorkers")
// without the root type.
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
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
