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
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Roster    RosterConfig    `yaml:"roster" mapstructure:"roster"`
	EDINET    EDINETConfig    `yaml:"edinet" mapstructure:"edinet"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	LandPrice LandPriceConfig `yaml:"land_price" mapstructure:"land_price"`
	Filing    FilingConfig    `yaml:"filing" mapstructure:"filing"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the on-disk lookup cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RosterConfig configures the TOPIX constituent roster source.
type RosterConfig struct {
	WeightURL   string `yaml:"weight_url" mapstructure:"weight_url"`
	CodeListURL string `yaml:"code_list_url" mapstructure:"code_list_url"`
	Limit       int    `yaml:"limit" mapstructure:"limit"`
}

// EDINETConfig holds the disclosure repository API settings.
type EDINETConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds the extraction service settings.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	Model        string `yaml:"model" mapstructure:"model"`
	MaxTokens    int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxInputRune int    `yaml:"max_input_runes" mapstructure:"max_input_runes"`
}

// GeocodeConfig holds the address-search service settings.
type GeocodeConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	FallbackBaseURL string  `yaml:"fallback_base_url" mapstructure:"fallback_base_url"`
	FallbackEnabled bool    `yaml:"fallback_enabled" mapstructure:"fallback_enabled"`
	FallbackContact string  `yaml:"fallback_contact" mapstructure:"fallback_contact"`
	RatePerSec      float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LandPriceConfig holds the transaction-price API settings.
type LandPriceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	SurveyYear  int     `yaml:"survey_year" mapstructure:"survey_year"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FilingConfig configures the filing search window.
type FilingConfig struct {
	WindowDays      int `yaml:"window_days" mapstructure:"window_days"`
	SampleEveryDays int `yaml:"sample_every_days" mapstructure:"sample_every_days"`
	CacheDays       int `yaml:"cache_days" mapstructure:"cache_days"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	CheckpointPath string `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	TopN           int    `yaml:"top_n" mapstructure:"top_n"`
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
	v.SetEnvPrefix("LANDGAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so env-only values survive Unmarshal.
	v.SetDefault("edinet.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("cache.path", "landgain-cache.db")
	v.SetDefault("roster.weight_url", "https://www.jpx.co.jp/markets/indices/topix/tvdivq00000030ne-att/topix_weight_j.xlsx")
	v.SetDefault("roster.code_list_url", "https://disclosure.edinet-fsa.go.jp/codelist/Edinetcode.zip")
	v.SetDefault("roster.limit", 500)
	v.SetDefault("edinet.base_url", "https://api.edinet-fsa.go.jp/api/v2")
	v.SetDefault("edinet.rate_per_sec", 2)
	v.SetDefault("edinet.timeout_secs", 120)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.max_input_runes", 50000)
	v.SetDefault("geocode.base_url", "https://msearch.gsi.go.jp/address-search/AddressSearch")
	v.SetDefault("geocode.fallback_base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.fallback_enabled", true)
	v.SetDefault("geocode.fallback_contact", "landgain/1.0")
	v.SetDefault("geocode.rate_per_sec", 1)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("land_price.base_url", "https://www.land.mlit.go.jp/webland/api/TradeListSearch")
	v.SetDefault("land_price.survey_year", 2024)
	v.SetDefault("land_price.rate_per_sec", 2)
	v.SetDefault("land_price.timeout_secs", 30)
	v.SetDefault("filing.window_days", 730)
	v.SetDefault("filing.sample_every_days", 7)
	v.SetDefault("filing.cache_days", 30)
	v.SetDefault("batch.checkpoint_path", "output/analysis_results.json")
	v.SetDefault("batch.top_n", 10)
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
