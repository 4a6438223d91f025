// Package config provides configuration management for the keiba-edge application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Features     FeaturesConfig     `mapstructure:"features" validate:"required"`
	Backtest     BacktestConfig     `mapstructure:"backtest" validate:"required"`
	ModelService ModelServiceConfig `mapstructure:"model_service" validate:"required"`
	Metrics      MetricsConfig      `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	Environment string        `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string        `mapstructure:"log_level" validate:"required,loglevel"`
	LogFile     LogFileConfig `mapstructure:"log_file"`
}

// LogFileConfig represents the optional rotating log file
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// FeaturesConfig represents feature pipeline configuration
type FeaturesConfig struct {
	Windows         []string `mapstructure:"windows" validate:"required,min=1,dive,window"`
	NominalColumns  []string `mapstructure:"nominal_columns" validate:"required,min=1,dive,oneof=weather race_type ground_state sex"`
	PedigreeColumns int      `mapstructure:"pedigree_columns" validate:"gte=0"`
	Workers         int      `mapstructure:"workers" validate:"required,gt=0"`
	TestFraction    float64  `mapstructure:"test_fraction" validate:"gt=0,lt=1"`
	StartDate       string   `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string   `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	CodecStatePath  string   `mapstructure:"codec_state_path" validate:"required"`
	OutputDir       string   `mapstructure:"output_dir" validate:"required"`
	Compression     string   `mapstructure:"compression" validate:"omitempty,oneof=snappy gzip uncompressed"`
	Schedule        string   `mapstructure:"schedule" validate:"omitempty,cronexpr"`
	RaceDaySchedule string   `mapstructure:"race_day_schedule" validate:"omitempty,cronexpr"`
}

// BacktestConfig represents return-simulation configuration
type BacktestConfig struct {
	Standardize bool     `mapstructure:"standardize"`
	SampleCount int      `mapstructure:"sample_count" validate:"required,gt=0"`
	MinBets     int      `mapstructure:"min_bets" validate:"gte=0"`
	StakeUnit   float64  `mapstructure:"stake_unit" validate:"required,gt=0"`
	BetTypes    []string `mapstructure:"bet_types" validate:"required,min=1,dive,bettype"`
	TopFeatures int      `mapstructure:"top_features" validate:"gte=0"`
	OutputPath  string   `mapstructure:"output_path" validate:"required"`
}

// ModelServiceConfig represents the classifier service configuration
type ModelServiceConfig struct {
	URL             string  `mapstructure:"url" validate:"required,url"`
	Token           string  `mapstructure:"token"`
	ModelVersion    string  `mapstructure:"model_version" validate:"required"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	BatchSize       int     `mapstructure:"batch_size" validate:"required,gt=0"`
	CacheEnabled    bool    `mapstructure:"cache_enabled"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DateRange returns the parsed feature date range
func (f FeaturesConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", f.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", f.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	return start, end, nil
}

// CacheTTL returns the prediction cache TTL
func (m ModelServiceConfig) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLSeconds) * time.Second
}
