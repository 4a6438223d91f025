package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/service"
)

type fakeBuilder struct {
	labeled   int
	unlabeled []time.Time
	err       error
}

func (f *fakeBuilder) BuildLabeled(ctx context.Context) (*service.BuildSummary, error) {
	f.labeled++
	if f.err != nil {
		return nil, f.err
	}
	return &service.BuildSummary{Table: service.TableLabeled, Rows: 10}, nil
}

func (f *fakeBuilder) BuildUnlabeled(ctx context.Context, date time.Time) (*service.BuildSummary, error) {
	f.unlabeled = append(f.unlabeled, date)
	if f.err != nil {
		return nil, f.err
	}
	return &service.BuildSummary{Table: service.UnlabeledTable(date), Rows: 2}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScheduleRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler(&fakeBuilder{}, quietLogger())
	assert.Error(t, s.ScheduleFeatureRebuild("every monday"))
	assert.Empty(t, s.Entries())
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(&fakeBuilder{}, quietLogger())
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeBuilder{}, quietLogger())
	require.NoError(t, s.ScheduleFeatureRebuild("0 6 * * 1"))
	require.NoError(t, s.ScheduleRaceDayBuild("30 8 * * 6,0"))
	assert.Len(t, s.Entries(), 2)

	assert.True(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())

	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleFeatureRebuild("0 7 * * 1"))

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestRunJobs(t *testing.T) {
	builder := &fakeBuilder{}
	s := NewScheduler(builder, quietLogger())
	s.now = func() time.Time { return time.Date(2023, 6, 4, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, s.runRebuild(context.Background()))
	require.NoError(t, s.runRaceDay(context.Background()))

	assert.Equal(t, 1, builder.labeled)
	require.Len(t, builder.unlabeled, 1)
	assert.Equal(t, 4, builder.unlabeled[0].Day())

	builder.err = errors.New("database down")
	assert.Error(t, s.runRebuild(context.Background()))
}
