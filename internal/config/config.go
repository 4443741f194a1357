// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/brandtrack-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Detector   DetectorConfig   `yaml:"detector" mapstructure:"detector"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ExtractionConfig configures the mention-extraction pass.
type ExtractionConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Attempts          int    `yaml:"attempts" mapstructure:"attempts"`
	BackoffSecs       int    `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// BrowserConfig configures the chromedp session.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	ProxyURL  string `yaml:"proxy_url" mapstructure:"proxy_url"`
}

// QueryConfig configures the browser query phase.
type QueryConfig struct {
	MaxConcurrentPlatforms int `yaml:"max_concurrent_platforms" mapstructure:"max_concurrent_platforms"`
	SubmitAttempts         int `yaml:"submit_attempts" mapstructure:"submit_attempts"`
	SubmitBackoffSecs      int `yaml:"submit_backoff_secs" mapstructure:"submit_backoff_secs"`
	PromptGapSecs          int `yaml:"prompt_gap_secs" mapstructure:"prompt_gap_secs"`
	RunTimeoutSecs         int `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// DetectorConfig configures answer-completion detection. The values are
// empirically calibrated per platform pacing, not load-bearing constants.
type DetectorConfig struct {
	PollIntervalMillis int `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	TurnTimeoutSecs    int `yaml:"turn_timeout_secs" mapstructure:"turn_timeout_secs"`
	StableReads        int `yaml:"stable_reads" mapstructure:"stable_reads"`
	OverallTimeoutSecs int `yaml:"overall_timeout_secs" mapstructure:"overall_timeout_secs"`
}

// ServerConfig configures the read-only HTTP server.
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
	v.SetEnvPrefix("BRANDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a meaningful default still get an empty one so
	// AutomaticEnv can surface them through Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.proxy_url", "")
	v.SetDefault("store.path", "brandtrack.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("extraction.provider", "anthropic")
	v.SetDefault("extraction.max_tokens", 8192)
	v.SetDefault("extraction.attempts", 3)
	v.SetDefault("extraction.backoff_secs", 2)
	v.SetDefault("extraction.requests_per_minute", 10)
	v.SetDefault("browser.headless", true)
	v.SetDefault("query.max_concurrent_platforms", 3)
	v.SetDefault("query.submit_attempts", 3)
	v.SetDefault("query.submit_backoff_secs", 2)
	v.SetDefault("query.prompt_gap_secs", 2)
	v.SetDefault("query.run_timeout_secs", 900)
	v.SetDefault("detector.poll_interval_ms", 1000)
	v.SetDefault("detector.turn_timeout_secs", 30)
	v.SetDefault("detector.stable_reads", 3)
	v.SetDefault("detector.overall_timeout_secs", 90)

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

	// Pricing maps don't compose well with viper defaults; fall back to the
	// built-in rates when the file sets none.
	if cfg.Pricing.Anthropic == nil && cfg.Pricing.OpenAI == nil {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
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
