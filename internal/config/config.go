package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Delta      DeltaConfig      `yaml:"delta" mapstructure:"delta"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the fund files and reference lists.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// FundsFile is an optional YAML fund registry; built-in funds are used
	// when empty.
	FundsFile string `yaml:"funds_file" mapstructure:"funds_file"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FetchConfig tunes the upstream HTTP clients.
type FetchConfig struct {
	GetroAPIBase   string  `yaml:"getro_api_base" mapstructure:"getro_api_base"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	PageBatchSize  int     `yaml:"page_batch_size" mapstructure:"page_batch_size"`
	BatchDelayMS   int     `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
}

// PipelineConfig configures reconciliation.
type PipelineConfig struct {
	StaleAfterDays int `yaml:"stale_after_days" mapstructure:"stale_after_days"`
}

// AuditConfig configures the geography audit.
type AuditConfig struct {
	NamePatterns []string `yaml:"name_patterns" mapstructure:"name_patterns"`
	ReportFile   string   `yaml:"report_file" mapstructure:"report_file"`
}

// DeltaConfig configures the snapshot delta report.
type DeltaConfig struct {
	Funds     []string `yaml:"funds" mapstructure:"funds"`
	OutDir    string   `yaml:"out_dir" mapstructure:"out_dir"`
	TopMovers int      `yaml:"top_movers" mapstructure:"top_movers"`
}

// ServerConfig configures the data API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures alert thresholds and delivery.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	JobDropPct           float64 `yaml:"job_drop_pct" mapstructure:"job_drop_pct"`
	MaxUnresolved        int     `yaml:"max_unresolved" mapstructure:"max_unresolved"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PJOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.funds_file", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "portfolio-jobs.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("fetch.getro_api_base", "https://api.getro.com/api/v2")
	v.SetDefault("fetch.user_agent", "portfolio-jobs/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.requests_per_sec", 5.0)
	v.SetDefault("fetch.page_batch_size", 10)
	v.SetDefault("fetch.batch_delay_ms", 100)
	v.SetDefault("pipeline.stale_after_days", 30)
	v.SetDefault("audit.name_patterns", []string{"^thought", "^crowd", "^new relic", "^stripe", "^atlassian"})
	v.SetDefault("audit.report_file", "audit-report.json")
	v.SetDefault("delta.funds", []string{"accel", "gc", "blume"})
	v.SetDefault("delta.out_dir", "artifacts")
	v.SetDefault("delta.top_movers", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.job_drop_pct", 0.5)
	v.SetDefault("monitoring.max_unresolved", 50)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.check_interval_secs", 0)
	v.SetDefault("monitoring.lookback_window_hours", 24)
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

// Validate checks the settings a command mode depends on. Modes are
// "fetch", "serve" and "report" (audit, delta, stats, sectors, validate).
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Data.Dir == "" {
		errs = append(errs, "data.dir is required")
	}
	if c.Pipeline.StaleAfterDays <= 0 {
		errs = append(errs, fmt.Sprintf("pipeline.stale_after_days must be > 0, got %d", c.Pipeline.StaleAfterDays))
	}
	if c.Monitoring.JobDropPct < 0 || c.Monitoring.JobDropPct > 1 {
		errs = append(errs, fmt.Sprintf("monitoring.job_drop_pct must be between 0 and 1, got %v", c.Monitoring.JobDropPct))
	}

	switch mode {
	case "fetch":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Fetch.PageBatchSize < 1 || c.Fetch.PageBatchSize > 50 {
			errs = append(errs, fmt.Sprintf("fetch.page_batch_size must be between 1 and 50, got %d", c.Fetch.PageBatchSize))
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "report":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
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
