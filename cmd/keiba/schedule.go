package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-edge/internal/health"
	"github.com/yourusername/keiba-edge/internal/metrics"
	"github.com/yourusername/keiba-edge/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled feature builds until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Features.Schedule == "" && cfg.Features.RaceDaySchedule == "" {
			return fmt.Errorf("no schedule configured: set features.schedule or features.race_day_schedule")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		deps, err := openDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		sched := scheduler.NewScheduler(deps.featureService(), appLog)
		if cfg.Features.Schedule != "" {
			if err := sched.ScheduleFeatureRebuild(cfg.Features.Schedule); err != nil {
				return err
			}
		}
		if cfg.Features.RaceDaySchedule != "" {
			if err := sched.ScheduleRaceDayBuild(cfg.Features.RaceDaySchedule); err != nil {
				return err
			}
		}

		serverCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Logger:      appLog,
			DB:          deps.db,
			Jobs:        sched,
		}
		if cfg.Metrics.Enabled {
			metrics.InitRegistry()
			serverCfg.MetricsHandler = metrics.Handler()
		}
		server := health.NewServer(serverCfg)
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		if err := sched.Start(); err != nil {
			return err
		}
		server.SetReady(true)

		appLog.WithFields(logrus.Fields{
			"rebuild":  cfg.Features.Schedule,
			"race_day": cfg.Features.RaceDaySchedule,
			"next_run": sched.GetNextRun(),
			"metrics":  cfg.Metrics.Enabled,
		}).Info("Scheduler running")

		sig := <-sigChan
		appLog.WithField("signal", sig).Info("Shutdown signal received")

		server.SetReady(false)
		sched.Stop()
		cancel()
		if err := server.Shutdown(); err != nil {
			appLog.WithError(err).Error("Error during health server shutdown")
		}

		appLog.Info("Scheduler shut down successfully")
		return nil
	},
}
