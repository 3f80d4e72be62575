package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	RxNorm       RxNormConfig
	Mapping      MappingConfig
	Cache        CacheConfig
	Dictionaries DictionaryConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RxNormConfig holds RxNav API connection parameters
type RxNormConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	RateLimit time.Duration `mapstructure:"rate_limit"` // delay between calls
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	Debug     bool          `mapstructure:"debug"`
}

// MappingConfig holds the resolver's scoring and validation knobs
type MappingConfig struct {
	ConfidenceThresholds ConfidenceThresholds `mapstructure:"confidence_thresholds"`
	Validation           ValidationConfig     `mapstructure:"validation"`
	Fuzzy                FuzzyConfig          `mapstructure:"fuzzy"`
}

// ConfidenceThresholds define the tier boundaries for final scores
type ConfidenceThresholds struct {
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
	Low    float64 `mapstructure:"low"`
}

// ValidationConfig holds the post-match penalty factors
type ValidationConfig struct {
	NameSimilarityThreshold int     `mapstructure:"name_similarity_threshold"` // 0-100
	FormMismatchPenalty     float64 `mapstructure:"form_mismatch_penalty"`
	CombinationDrugPenalty  float64 `mapstructure:"combination_drug_penalty"`
}

// FuzzyConfig controls the approximate-search strategy
type FuzzyConfig struct {
	ScoreThreshold int `mapstructure:"score_threshold"` // 0-100 acceptance bar
	MaxCandidates  int `mapstructure:"max_candidates"`
}

// CacheConfig holds lookup-cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DictionaryConfig points at optional JSON translation files that merge
// over the built-in tables
type DictionaryConfig struct {
	IngredientsPath string `mapstructure:"ingredients_path"`
	DoseFormsPath   string `mapstructure:"dose_forms_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pharmamap/")

	// Environment variable settings
	v.SetEnvPrefix("PHARMAMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// RxNav defaults
	v.SetDefault("rxnorm.base_url", "https://rxnav.nlm.nih.gov/REST")
	v.SetDefault("rxnorm.rate_limit", "200ms")
	v.SetDefault("rxnorm.timeout", "30s")
	v.SetDefault("rxnorm.retries", 3)
	v.SetDefault("rxnorm.debug", false)

	// Mapping defaults
	v.SetDefault("mapping.confidence_thresholds.high", 0.8)
	v.SetDefault("mapping.confidence_thresholds.medium", 0.5)
	v.SetDefault("mapping.confidence_thresholds.low", 0.3)
	v.SetDefault("mapping.validation.name_similarity_threshold", 70)
	v.SetDefault("mapping.validation.form_mismatch_penalty", 0.8)
	v.SetDefault("mapping.validation.combination_drug_penalty", 0.7)
	v.SetDefault("mapping.fuzzy.score_threshold", 80)
	v.SetDefault("mapping.fuzzy.max_candidates", 5)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.RxNorm.BaseURL == "" {
		return fmt.Errorf("RxNorm base URL is required (set PHARMAMAP_RXNORM_BASE_URL)")
	}

	if config.RxNorm.Retries < 1 {
		return fmt.Errorf("rxnorm.retries must be at least 1, got: %d", config.RxNorm.Retries)
	}

	t := config.Mapping.ConfidenceThresholds
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low > 0) {
		return fmt.Errorf("confidence thresholds must be descending and positive, got high=%v medium=%v low=%v",
			t.High, t.Medium, t.Low)
	}

	val := config.Mapping.Validation
	if val.FormMismatchPenalty <= 0 || val.FormMismatchPenalty > 1 {
		return fmt.Errorf("form_mismatch_penalty must be in (0, 1], got: %v", val.FormMismatchPenalty)
	}
	if val.CombinationDrugPenalty <= 0 || val.CombinationDrugPenalty > 1 {
		return fmt.Errorf("combination_drug_penalty must be in (0, 1], got: %v", val.CombinationDrugPenalty)
	}
	if val.NameSimilarityThreshold < 0 || val.NameSimilarityThreshold > 100 {
		return fmt.Errorf("name_similarity_threshold must be in [0, 100], got: %d", val.NameSimilarityThreshold)
	}

	if config.Mapping.Fuzzy.ScoreThreshold < 0 || config.Mapping.Fuzzy.ScoreThreshold > 100 {
		return fmt.Errorf("fuzzy.score_threshold must be in [0, 100], got: %d", config.Mapping.Fuzzy.ScoreThreshold)
	}
	if config.Mapping.Fuzzy.MaxCandidates < 1 {
		return fmt.Errorf("fuzzy.max_candidates must be at least 1, got: %d", config.Mapping.Fuzzy.MaxCandidates)
	}

	return nil
}
