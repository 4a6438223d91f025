package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "KEIBA_EDGE"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	// A missing file leaves defaults and environment variables
	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ConfigPath returns explicit when set, then KEIBA_EDGE_CONFIG_PATH, then the default path
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return "config/config.yaml"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "keiba-edge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("features.windows", []string{"5", "9", "all"})
	v.SetDefault("features.nominal_columns", []string{"weather", "race_type", "ground_state", "sex"})
	v.SetDefault("features.pedigree_columns", 62)
	v.SetDefault("features.workers", 4)
	v.SetDefault("features.test_fraction", 0.3)
	v.SetDefault("features.codec_state_path", "data/codec.msgpack")
	v.SetDefault("features.output_dir", "data/features")
	v.SetDefault("features.compression", "snappy")

	v.SetDefault("backtest.standardize", true)
	v.SetDefault("backtest.sample_count", 100)
	v.SetDefault("backtest.min_bets", 50)
	v.SetDefault("backtest.stake_unit", 100)
	v.SetDefault("backtest.bet_types", []string{"place"})
	v.SetDefault("backtest.top_features", 20)
	v.SetDefault("backtest.output_path", "output/evaluation")

	v.SetDefault("model_service.timeout_seconds", 30)
	v.SetDefault("model_service.max_retries", 3)
	v.SetDefault("model_service.rate_limit", 10)
	v.SetDefault("model_service.batch_size", 1000)
	v.SetDefault("model_service.cache_enabled", true)
	v.SetDefault("model_service.cache_ttl_seconds", 3600)
	v.SetDefault("model_service.cache_max_size", 100000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
