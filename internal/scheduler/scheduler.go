// Package scheduler runs feature builds on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/keiba-edge/internal/service"
)

// FeatureBuilder is the part of the feature service the scheduler drives
type FeatureBuilder interface {
	BuildLabeled(ctx context.Context) (*service.BuildSummary, error)
	BuildUnlabeled(ctx context.Context, date time.Time) (*service.BuildSummary, error)
}

// Scheduler manages scheduled feature build jobs
type Scheduler struct {
	cron       *cron.Cron
	builder    FeatureBuilder
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
	now        func() time.Time
}

// NewScheduler creates a new scheduler. Runs of a job that is still busy are skipped.
func NewScheduler(builder FeatureBuilder, log *logrus.Logger) *Scheduler {
	entry := log.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(entry))),
		),
		builder:    builder,
		logger:     entry,
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 4 * time.Hour,
		now:        time.Now,
	}
}

// ScheduleFeatureRebuild schedules the labeled reference table rebuild
func (s *Scheduler) ScheduleFeatureRebuild(cronExpression string) error {
	return s.schedule(cronExpression, "feature_rebuild", s.runRebuild)
}

// ScheduleRaceDayBuild schedules the unlabeled build of the current day's entries
func (s *Scheduler) ScheduleRaceDayBuild(cronExpression string) error {
	return s.schedule(cronExpression, "race_day_build", s.runRaceDay)
}

func (s *Scheduler) schedule(cronExpression, name string, job func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start).String(),
		}).Info("Scheduled job completed")
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": cronExpression,
	}).Info("Scheduled job")

	return nil
}

func (s *Scheduler) runRebuild(ctx context.Context) error {
	summary, err := s.builder.BuildLabeled(ctx)
	if err != nil {
		return err
	}
	s.logSummary(summary)
	return nil
}

func (s *Scheduler) runRaceDay(ctx context.Context) error {
	summary, err := s.builder.BuildUnlabeled(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	s.logSummary(summary)
	return nil
}

func (s *Scheduler) logSummary(summary *service.BuildSummary) {
	s.logger.WithFields(logrus.Fields{
		"table":            summary.Table,
		"rows":             summary.Rows,
		"columns":          summary.Columns,
		"codec_version":    summary.CodecVersion,
		"missing_pedigree": summary.MissingPedigree,
		"entries_skipped":  summary.EntryReport.Skipped,
		"history_skipped":  summary.HistoryReport.Skipped,
	}).Info("Feature table built")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
