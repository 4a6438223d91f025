// Package main provides the keiba command line tool: feature builds, splits,
// evaluations and scheduled rebuilds.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-edge/internal/backtest"
	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/logger"
	"github.com/yourusername/keiba-edge/internal/ml"
	"github.com/yourusername/keiba-edge/internal/repository"
	"github.com/yourusername/keiba-edge/internal/service"
	"github.com/yourusername/keiba-edge/internal/storage"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:     "keiba",
	Short:   "Horse-race feature pipeline and betting-return simulator",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfigWithSecrets(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		appLog = logger.NewFileLogger(cfg.App.LogLevel, logger.FileConfig{
			Path:       cfg.App.LogFile.Path,
			MaxSizeMB:  cfg.App.LogFile.MaxSizeMB,
			MaxBackups: cfg.App.LogFile.MaxBackups,
			MaxAgeDays: cfg.App.LogFile.MaxAgeDays,
			Compress:   cfg.App.LogFile.Compress,
		})
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default $KEIBA_EDGE_CONFIG_PATH or config/config.yaml)")
	rootCmd.AddCommand(importCmd, featuresCmd, splitCmd, evaluateCmd, predictCmd, runsCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfigWithSecrets(ctx context.Context, path string) (*config.Config, error) {
	loaded, err := config.LoadWithDefaults(config.ConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, loaded, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := config.Validate(loaded); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateEnvironment(loaded); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loaded, nil
}

// dependencies are the long-lived resources shared by subcommands
type dependencies struct {
	db    *database.DB
	repos *repository.Repositories
}

func openDependencies(ctx context.Context) (*dependencies, error) {
	db, err := database.Initialize(ctx, cfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	return &dependencies{db: db, repos: repos}, nil
}

func (d *dependencies) Close() {
	d.db.Close()
}

func (d *dependencies) featureService() *service.FeatureService {
	return service.NewFeatureService(
		cfg.Features,
		d.repos.Entry,
		d.repos.History,
		d.repos.Pedigree,
		d.repos.Feature,
		storage.NewCodecStore(cfg.Features.CodecStatePath),
		appLog,
	)
}

// evaluationService builds the evaluation service around the model-service
// classifier, cached when configured. The returned func releases the client.
func (d *dependencies) evaluationService(btConfig backtest.BacktestConfig) (*service.EvaluationService, func(), error) {
	client, err := ml.NewHTTPClassifier(&cfg.ModelService, appLog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create model service client: %w", err)
	}

	var classifier backtest.Classifier = client
	var cached *ml.CachedClassifier
	if cfg.ModelService.CacheEnabled {
		cached = ml.NewCachedClassifier(client, cfg.ModelService.CacheTTL(), cfg.ModelService.CacheMaxSize, appLog)
		classifier = cached
	}

	svc := service.NewEvaluationService(btConfig, classifier, d.repos.Feature, d.repos.Payout, d.repos.Evaluation, appLog)
	release := func() {
		if cached != nil {
			hits, misses, ratio := cached.GetCacheStats()
			appLog.WithFields(logrus.Fields{
				"hits":      hits,
				"misses":    misses,
				"hit_ratio": ratio,
			}).Debug("Prediction cache stats")
		}
		if err := client.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close model service client")
		}
	}
	return svc, release, nil
}
