package config

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for empty tags or nil functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("window", validateWindow)
	_ = v.RegisterValidation("bettype", validateBetType)
	_ = v.RegisterValidation("cronexpr", validateCronExpr)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWindow accepts "all" or a positive integer
func validateWindow(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "all" {
		return true
	}
	n, err := strconv.Atoi(value)
	return err == nil && n > 0
}

// validateBetType validates the settlement kinds
func validateBetType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "place", "win", "win_proper":
		return true
	default:
		return false
	}
}

// validateCronExpr validates a standard five-field cron expression
func validateCronExpr(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	start, end, err := cfg.Features.DateRange()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("features start_date must be before end_date")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	seen := make(map[string]bool, len(cfg.Features.Windows))
	for _, w := range cfg.Features.Windows {
		if seen[w] {
			return fmt.Errorf("duplicate feature window %q", w)
		}
		seen[w] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "window":
			errMsg += fmt.Sprintf("- Field '%s' must be a positive integer or 'all', got '%v'\n", field, value)
		case "bettype":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: place, win, win_proper, got '%v'\n", field, value)
		case "cronexpr":
			errMsg += fmt.Sprintf("- Field '%s' must be a cron expression, got '%v'\n", field, value)
		case "datetime":
			errMsg += fmt.Sprintf("- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
		}
		if isTestCredential(cfg.Database.Password) {
			return fmt.Errorf("production environment should not use test database credentials")
		}
		if cfg.ModelService.Token == "" {
			return fmt.Errorf("production environment requires a model service token")
		}
	}

	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)test|demo|example|placeholder|YOUR_`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return testCredentialPattern.MatchString(credential)
}
